// Package ordering computes new task orders after a drag operation.
// It is purely in-memory and knows nothing about persistence; callers
// translate its output into position updates.
package ordering

import (
	"errors"

	"github.com/google/uuid"

	"github.com/taskdeck/core/internal/domain/entities"
)

var ErrIndexOutOfRange = errors.New("index out of range")

// Move returns a copy of list with the element at source repositioned
// to destination, shifting the elements in between by one. An empty
// list is a no-op, as is moving an in-range element onto itself.
// Out-of-range indices are rejected rather than clamped; supplying
// valid indices is the caller's job.
func Move[T any](list []T, source, destination int) ([]T, error) {
	out := make([]T, len(list))
	copy(out, list)
	if len(list) == 0 {
		return out, nil
	}
	if source < 0 || source >= len(list) || destination < 0 || destination >= len(list) {
		return nil, ErrIndexOutOfRange
	}
	if source == destination {
		return out, nil
	}

	moved := out[source]
	out = append(out[:source], out[source+1:]...)
	out = append(out[:destination], append([]T{moved}, out[destination:]...)...)
	return out, nil
}

// Position pairs a task with its new sort order.
type Position struct {
	ID        uuid.UUID `json:"id"`
	SortOrder int       `json:"sortOrder"`
}

// Positions derives the dense zero-based position assignment for every
// task in the list, top to bottom.
func Positions(tasks []entities.Task) []Position {
	positions := make([]Position, len(tasks))
	for i, t := range tasks {
		positions[i] = Position{ID: t.ID, SortOrder: i}
	}
	return positions
}
