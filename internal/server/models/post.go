// Package models defines server-side data models persisted in the database.
package models

import (
	"fmt"
	"strings"
)

// Post is the single resource served by the API.
type Post struct {
	// ID is unique and immutable once assigned; 0 means "let storage assign one".
	ID int `json:"id"`
	// UserID names the nominal author. It is not checked against any user store.
	UserID int    `json:"userId"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	// Version is the optimistic-lock token kept by storage; nil until one is set.
	Version *int `json:"version"`
}

// Posts is the document shape of the seed dataset.
type Posts struct {
	Posts []Post `json:"posts"`
}

// ValidationError lists the fields of a Post that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s must not be empty", strings.Join(e.Fields, ", "))
}

// Validate checks that title and body are present. It returns nil or a
// *ValidationError naming every empty field.
func Validate(p Post) error {
	var fields []string
	if strings.TrimSpace(p.Title) == "" {
		fields = append(fields, "title")
	}
	if strings.TrimSpace(p.Body) == "" {
		fields = append(fields, "body")
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Merge applies an update payload to an existing post: identity, author and
// version come from existing, title and body from incoming.
func Merge(existing, incoming Post) Post {
	merged := Post{
		ID:     existing.ID,
		UserID: existing.UserID,
		Title:  incoming.Title,
		Body:   incoming.Body,
	}
	if existing.Version != nil {
		v := *existing.Version
		merged.Version = &v
	}
	return merged
}
