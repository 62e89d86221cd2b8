package ordering

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/core/internal/domain/entities"
)

func TestMove(t *testing.T) {
	tests := []struct {
		name        string
		list        []string
		source      int
		destination int
		want        []string
	}{
		{"move down", []string{"a", "b", "c", "d"}, 0, 2, []string{"b", "c", "a", "d"}},
		{"move up", []string{"a", "b", "c", "d"}, 3, 0, []string{"d", "a", "b", "c"}},
		{"adjacent swap", []string{"a", "b"}, 0, 1, []string{"b", "a"}},
		{"same index is a no-op", []string{"a", "b", "c"}, 1, 1, []string{"a", "b", "c"}},
		{"single element", []string{"a"}, 0, 0, []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Move(tt.list, tt.source, tt.destination)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMoveEmptyList(t *testing.T) {
	got, err := Move([]string{}, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMoveOutOfRange(t *testing.T) {
	list := []string{"a", "b", "c"}

	for _, pair := range [][2]int{{-1, 1}, {3, 1}, {1, -1}, {1, 3}, {7, 7}, {-2, -2}} {
		_, err := Move(list, pair[0], pair[1])
		assert.ErrorIs(t, err, ErrIndexOutOfRange, "source=%d destination=%d", pair[0], pair[1])
	}
}

func TestMoveDoesNotMutateInput(t *testing.T) {
	list := []string{"a", "b", "c"}
	_, err := Move(list, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, list)
}

// Every valid (source, destination) pair must yield a permutation of
// the input with the moved element sitting at the destination.
func TestMovePermutationProperty(t *testing.T) {
	list := []int{10, 20, 30, 40, 50}

	for source := 0; source < len(list); source++ {
		for destination := 0; destination < len(list); destination++ {
			got, err := Move(list, source, destination)
			require.NoError(t, err)
			require.Len(t, got, len(list))

			assert.Equal(t, list[source], got[destination],
				"moved element must land at destination (source=%d destination=%d)", source, destination)

			seen := make(map[int]int)
			for _, v := range got {
				seen[v]++
			}
			for _, v := range list {
				assert.Equal(t, 1, seen[v], "element %d must appear exactly once", v)
			}
		}
	}
}

func TestPositions(t *testing.T) {
	tasks := []entities.Task{
		{ID: uuid.New(), Title: "first", CreatedAt: time.Now()},
		{ID: uuid.New(), Title: "second", CreatedAt: time.Now()},
		{ID: uuid.New(), Title: "third", CreatedAt: time.Now()},
	}

	positions := Positions(tasks)
	require.Len(t, positions, 3)
	for i, p := range positions {
		assert.Equal(t, tasks[i].ID, p.ID)
		assert.Equal(t, i, p.SortOrder)
	}
}

func TestPositionsEmpty(t *testing.T) {
	assert.Empty(t, Positions(nil))
}
