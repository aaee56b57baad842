package model

import "time"

// Group is a named collection of topics. Name is the group's slug and
// doubles as its URL segment.
type Group struct {
	Name      string    `json:"name"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// reservedNames collide with fixed top-level routes.
var reservedNames = map[string]bool{
	"groups": true,
	"reddit": true,
	"api":    true,
	"login":  true,
	"logout": true,
}

// ValidateGroupName checks that name is non-empty, equal to its own slug
// form and not reserved by a fixed route.
func ValidateGroupName(name string) error {
	if name == "" {
		return &ValidationError{Field: "name", Message: "Enter a name for your group"}
	}
	if name != Slugify(name) {
		return &ValidationError{Field: "name", Message: "Names may only contain letters, numbers, dashes and underscores."}
	}
	if reservedNames[name] {
		return &ValidationError{Field: "name", Message: "That name is reserved."}
	}
	return nil
}

// NewGroup creates a Group with CreatedAt set to now.
func NewGroup(name, title string) Group {
	return Group{
		Name:      name,
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
}
