package export

import (
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"

	"github.com/roach88/featureplan/internal/model"
)

var at = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func sampleProject() (model.Project, []model.Feature, map[string][]model.Dependency) {
	p := model.Project{ID: "p", Name: "Launch Plan", Purpose: "Ship v1", CreatedAt: at}
	features := []model.Feature{
		{ID: "login", ProjectID: "p", Name: "Login", Description: "Email and OAuth sign in.", Category: model.CategoryEssential, Priority: model.PriorityHigh, Notes: "Start with GitHub."},
		{ID: "db", ProjectID: "p", Name: "Database", Description: "Persistent storage.", Category: model.CategoryEssential, Priority: model.PriorityHigh},
		{ID: "theme", ProjectID: "p", Name: "Dark mode", Category: model.CategoryNiceToHave, Priority: model.PriorityLow},
		{ID: "ai", ProjectID: "p", Name: "AI suggestions", Description: "Suggest features.", Category: model.CategoryFuture, Priority: model.PriorityMedium},
	}
	deps := map[string][]model.Dependency{
		"login": {{ID: "d1", FeatureID: "login", DependsOnID: "db"}},
		"ai":    {{ID: "d2", FeatureID: "ai", DependsOnID: "login"}, {ID: "d3", FeatureID: "ai", DependsOnID: "elsewhere"}},
	}
	return p, features, deps
}

func TestMarkdown_Golden(t *testing.T) {
	p, features, deps := sampleProject()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "launch-plan", []byte(Markdown(p, features, deps)))
}

func TestMarkdown_PrefersDescriptionOverPurpose(t *testing.T) {
	p := model.Project{Name: "X", Purpose: "purpose", Description: "described"}
	assert.Equal(t, "# X\n\ndescribed\n\n", Markdown(p, nil, nil))
}

func TestMarkdown_SkipsEmptySections(t *testing.T) {
	p, features, deps := sampleProject()
	out := Markdown(p, features[:2], deps)

	assert.Contains(t, out, "## Essential Features")
	assert.NotContains(t, out, "## Nice-to-Have Features")
	assert.NotContains(t, out, "## Future Ideas")
}

func TestFileName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Launch Plan", "launch-plan-features.md"},
		{"  Two\tSpaces  ", "-two-spaces--features.md"},
		{"Café", "café-features.md"},
		{"Cafe\u0301", "café-features.md"},
		{"a/b", "a-b-features.md"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(model.Project{Name: tt.name}))
		})
	}
}
