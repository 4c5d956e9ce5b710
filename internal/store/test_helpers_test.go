package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/featureplan/internal/model"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var testTime = time.Date(2026, 2, 3, 4, 5, 6, 789, time.UTC)

// createTestState builds a state that exercises every entity shape.
func createTestState() *model.State {
	s := model.NewState()
	s.Projects["p1"] = model.Project{
		ID: "p1", Name: "Launch <beta>", Purpose: "ship & learn", Description: "ship & learn",
		CreatedAt: testTime, UpdatedAt: testTime.Add(time.Hour),
	}
	s.Projects["p2"] = model.Project{ID: "p2", Name: "Bare", Purpose: "", CreatedAt: testTime}
	s.Features["f1"] = model.Feature{
		ID: "f1", ProjectID: "p1", Name: "Login", Description: "OAuth",
		Category: model.CategoryEssential, Priority: model.PriorityHigh, Notes: "π ≈ 3.14",
		History: []model.HistoryEntry{{
			ID: "h1", Timestamp: testTime,
			PreviousValues: model.PreviousValues{Name: "Auth", Description: "", Category: model.CategoryFuture},
		}},
		CreatedAt: testTime, UpdatedAt: testTime,
	}
	s.Features["f2"] = model.Feature{
		ID: "f2", ProjectID: "p1", Name: "Sessions", Category: model.CategoryNiceToHave,
		Priority: model.PriorityLow, CreatedAt: testTime, UpdatedAt: testTime,
	}
	s.Dependencies["f1"] = []model.Dependency{{ID: "d1", FeatureID: "f1", DependsOnID: "f2"}}
	s.FeatureOrders["p1"] = []string{"f2", "f1"}
	s.FeatureOrders["p2"] = []string{}
	s.NodePositions["f1"] = model.Position{X: 12.5, Y: -3}
	return s
}
