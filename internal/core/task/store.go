package task

import "context"

// Store is the row-oriented backend the task service is built on.
type Store interface {
	// Insert persists a new record and returns the stored row. The store
	// assigns ID, CreatedAt and UpdatedAt.
	Insert(ctx context.Context, rec Record) (Record, error)

	// List returns every record ordered by due_date_time ascending.
	List(ctx context.Context) ([]Record, error)

	// Get returns a record by ID.
	// Returns ErrNotFound if the record does not exist.
	Get(ctx context.Context, id string) (Record, error)

	// Update applies a partial patch and returns the updated row.
	// Returns ErrNotFound if the record does not exist.
	Update(ctx context.Context, id string, patch RecordPatch) (Record, error)

	// Delete removes a record by ID. Deleting a missing ID is not an error.
	Delete(ctx context.Context, id string) error
}
