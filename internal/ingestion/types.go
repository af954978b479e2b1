// Package ingestion defines the request/response types and Kafka event schemas
// that connect the content service, the indexer and the search cache.
package ingestion

import "time"

// ContentRequest is the JSON body accepted when an entity's text changes.
type ContentRequest struct {
	Content string `json:"content"`
}

// ContentResponse is returned after a change has been stored.
type ContentResponse struct {
	Entity   string `json:"entity"`
	Revision int64  `json:"revision"`
	Status   string `json:"status"`
}

// ChangeEvent is published on the content-changes topic for every stored
// revision. The indexer fetches the revision text itself.
type ChangeEvent struct {
	Entity    string    `json:"entity"`
	Revision  int64     `json:"revision"`
	Deleted   bool      `json:"deleted"`
	ChangedAt time.Time `json:"changed_at"`
}

// IndexedEvent is published on the index-updates topic once a change is
// reflected in the index.
type IndexedEvent struct {
	Entity    string    `json:"entity"`
	Revision  int64     `json:"revision"`
	Deleted   bool      `json:"deleted"`
	Tokens    int       `json:"tokens"`
	IndexedAt time.Time `json:"indexed_at"`
}

// Change statuses reported in ContentResponse.
const (
	StatusPending = "PENDING"
	StatusDeleted = "DELETED"
)
