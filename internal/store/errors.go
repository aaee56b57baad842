package store

import (
	"fmt"
	"strings"

	"github.com/vector76/forum_server/internal/model"
)

// NotFoundError represents a 404 Not Found error for lookups.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// ConflictError represents a 409 Conflict error.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func groupNotFound(name string) error {
	return &NotFoundError{Message: fmt.Sprintf("group %s not found", name)}
}

func topicNotFound(id int64) error {
	return &NotFoundError{Message: fmt.Sprintf("topic %d not found", id)}
}

// checkTopic validates the fields every backend requires on a topic.
func checkTopic(t model.Topic) error {
	if strings.TrimSpace(t.Title) == "" {
		return &model.ValidationError{Field: "title", Message: "title is required"}
	}
	if strings.TrimSpace(t.Body) == "" {
		return &model.ValidationError{Field: "body", Message: "body is required"}
	}
	return nil
}

func checkComment(c model.Comment) error {
	if strings.TrimSpace(c.Body) == "" {
		return &model.ValidationError{Field: "body", Message: "body is required"}
	}
	return nil
}

func badParent(parentID, topicID int64) error {
	return &model.ValidationError{
		Field:   "parent_id",
		Message: fmt.Sprintf("comment %d is not a reply target on topic %d", parentID, topicID),
	}
}
