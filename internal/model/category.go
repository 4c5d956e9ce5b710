package model

import "fmt"

// Category groups features into ordering columns.
type Category string

const (
	CategoryEssential  Category = "essential"
	CategoryNiceToHave Category = "nice-to-have"
	CategoryFuture     Category = "future"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryEssential, CategoryNiceToHave, CategoryFuture}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryEssential, CategoryNiceToHave, CategoryFuture:
		return true
	}
	return false
}

// Title returns the section heading used when exporting a category.
func (c Category) Title() string {
	switch c {
	case CategoryEssential:
		return "Essential Features"
	case CategoryNiceToHave:
		return "Nice-to-Have Features"
	case CategoryFuture:
		return "Future Ideas"
	}
	return string(c)
}

// ParseCategory converts a string to a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("invalid category %q: must be one of: essential, nice-to-have, future", s)
	}
	return c, nil
}

// Priority ranks features inside a category.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// ParsePriority converts a string to a Priority.
func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	if !p.Valid() {
		return "", fmt.Errorf("invalid priority %q: must be one of: high, medium, low", s)
	}
	return p, nil
}
