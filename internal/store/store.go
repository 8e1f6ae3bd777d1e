// Package store persists fitted BM25 models.
//
// A StateStore maps a model name to a bm25.Snapshot. Two backends exist: a
// directory of JSON files (optionally zstd-compressed) guarded by
// cross-process file locks, and a single SQLite database. Both round-trip
// every float bit-for-bit.
package store

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/Aman-CERP/bm25vec/internal/bm25"
	vecerrors "github.com/Aman-CERP/bm25vec/internal/errors"
)

// DefaultModelName is used when the caller does not name a model.
const DefaultModelName = "default"

// StateStore saves and loads fitted model snapshots by name.
type StateStore interface {
	// Save stores snap under name, replacing any previous model.
	Save(ctx context.Context, name string, snap *bm25.Snapshot) error

	// Load returns the snapshot stored under name.
	// Returns an ErrCodeModelNotFound error if there is none.
	Load(ctx context.Context, name string) (*bm25.Snapshot, error)

	// List returns summaries of all stored models, sorted by name.
	List(ctx context.Context) ([]ModelInfo, error)

	// Delete removes the named model. Deleting a missing model is not an error.
	Delete(ctx context.Context, name string) error

	// Close releases resources. It is safe to call more than once.
	Close() error
}

// ModelInfo summarizes a stored model.
type ModelInfo struct {
	Name     string    `json:"name"`
	Features int       `json:"features"`
	NumDocs  int       `json:"num_docs"`
	IDF      string    `json:"idf"`
	SavedAt  time.Time `json:"saved_at"`
	Backend  Backend   `json:"backend"`
}

var validModelName = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateModelName checks that name is safe to use as a file stem.
func ValidateModelName(name string) error {
	if name == "" {
		return vecerrors.ValidationError("model name cannot be empty", nil)
	}
	if len(name) > 64 {
		return vecerrors.ValidationError("model name too long (max 64 characters)", nil)
	}
	if !validModelName.MatchString(name) {
		return vecerrors.ValidationError(
			fmt.Sprintf("model name %q can only contain letters, numbers, hyphens, and underscores", name), nil)
	}
	return nil
}

func modelNotFound(name string) error {
	return vecerrors.New(vecerrors.ErrCodeModelNotFound, fmt.Sprintf("model %q not found", name), nil).
		WithSuggestion("Run 'bm25vec fit' first to create it")
}

func countFeatures(snap *bm25.Snapshot) int {
	return len(snap.Vocabulary)
}
