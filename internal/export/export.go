// Package export renders a project as a markdown feature document.
package export

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/featureplan/internal/model"
)

// Markdown renders project and its features as a markdown document.
//
// Features are grouped into the category sections Essential Features,
// Nice-to-Have Features and Future Ideas; sections without features are
// omitted. Within a section features keep their input order. Each feature
// lists its notes and the names of the features it depends on, resolved
// through deps among the given features.
func Markdown(project model.Project, features []model.Feature, deps map[string][]model.Dependency) string {
	byID := make(map[string]model.Feature, len(features))
	for _, f := range features {
		byID[f.ID] = f
	}

	var b strings.Builder
	b.WriteString("# " + project.Name + "\n\n")
	summary := project.Description
	if summary == "" {
		summary = project.Purpose
	}
	if summary != "" {
		b.WriteString(summary + "\n\n")
	}

	for _, c := range model.Categories {
		var section []model.Feature
		for _, f := range features {
			if f.Category == c {
				section = append(section, f)
			}
		}
		if len(section) == 0 {
			continue
		}

		b.WriteString("## " + c.Title() + "\n\n")
		for _, f := range section {
			b.WriteString("### " + f.Name + "\n")
			if f.Description != "" {
				b.WriteString(f.Description + "\n")
			}
			b.WriteString("\n")
			if f.Priority != "" {
				b.WriteString("**Priority:** " + string(f.Priority) + "\n\n")
			}
			if f.Notes != "" {
				b.WriteString("**Notes:** " + f.Notes + "\n\n")
			}

			var names []string
			for _, d := range deps[f.ID] {
				if target, ok := byID[d.DependsOnID]; ok {
					names = append(names, target.Name)
				}
			}
			if len(names) > 0 {
				b.WriteString("**Dependencies:**\n")
				for _, n := range names {
					b.WriteString("- " + n + "\n")
				}
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}

var whitespace = regexp.MustCompile(`\s+`)

// FileName returns the export file name for project: the NFC-normalized,
// lowercased name with whitespace runs replaced by "-", plus
// "-features.md". Path separators are replaced as well.
func FileName(project model.Project) string {
	slug := strings.ToLower(norm.NFC.String(project.Name))
	slug = whitespace.ReplaceAllString(slug, "-")
	slug = strings.NewReplacer("/", "-", "\\", "-").Replace(slug)
	return slug + "-features.md"
}
