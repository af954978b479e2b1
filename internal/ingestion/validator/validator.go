// Package validator checks content change requests before they are stored.
// Entity names end up as single lines of the index's entity table, so line
// breaks are rejected along with empty or oversized values.
package validator

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/ingestion"
)

const (
	maxEntityLength  = 255
	maxContentLength = 1048576
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	var parts []string
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	return strings.Join(parts, "; ")
}

// ValidateEntity checks an entity name on its own, as for deletions.
func ValidateEntity(entity string) error {
	errs := make(map[string]string)
	checkEntity(entity, errs)
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// ValidateContentRequest checks the entity name and the new content.
func ValidateContentRequest(entity string, req *ingestion.ContentRequest) error {
	errs := make(map[string]string)
	checkEntity(entity, errs)
	if len(req.Content) > maxContentLength {
		errs["content"] = fmt.Sprintf("content must be at most %d bytes", maxContentLength)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func checkEntity(entity string, errs map[string]string) {
	switch {
	case strings.TrimSpace(entity) == "":
		errs["entity"] = "entity name is required"
	case len(entity) > maxEntityLength:
		errs["entity"] = fmt.Sprintf("entity name must be at most %d characters", maxEntityLength)
	case strings.ContainsAny(entity, "\r\n"):
		errs["entity"] = "entity name must not contain line breaks"
	}
}
