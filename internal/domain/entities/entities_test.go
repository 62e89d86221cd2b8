package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetCompleted(t *testing.T) {
	now := time.Now()
	task := Task{Status: TaskStatusPending}

	task.SetCompleted(true, now)
	assert.True(t, task.Completed)
	assert.Equal(t, TaskStatusCompleted, task.Status)
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, now, *task.CompletedAt)

	task.SetCompleted(false, now.Add(time.Minute))
	assert.False(t, task.Completed)
	assert.Equal(t, TaskStatusPending, task.Status)
	assert.Nil(t, task.CompletedAt)
}

func TestIsOverdue(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.False(t, (&Task{}).IsOverdue(now), "no due date")
	assert.True(t, (&Task{DueDate: &past}).IsOverdue(now))
	assert.False(t, (&Task{DueDate: &future}).IsOverdue(now))
	assert.False(t, (&Task{DueDate: &past, Completed: true}).IsOverdue(now), "completed tasks are never overdue")
}

func TestMatchesSearch(t *testing.T) {
	desc := "milk and eggs"
	task := Task{Title: "Buy milk", Description: &desc}

	assert.True(t, task.MatchesSearch("MILK"))
	assert.True(t, task.MatchesSearch("eggs"))
	assert.True(t, task.MatchesSearch(""))
	assert.False(t, task.MatchesSearch("bread"))

	noDesc := Task{Title: "Call bank"}
	assert.True(t, noDesc.MatchesSearch("call"))
	assert.False(t, noDesc.MatchesSearch("milk"))
}

func TestEnumValidity(t *testing.T) {
	for _, s := range []TaskStatus{TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled} {
		assert.True(t, s.IsValid())
	}
	assert.False(t, TaskStatus("DONE").IsValid())

	for _, p := range []TaskPriority{TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent} {
		assert.True(t, p.IsValid())
	}
	assert.False(t, TaskPriority("CRITICAL").IsValid())
}

func TestDisplayName(t *testing.T) {
	first, last := "Ada", "Lovelace"

	assert.Equal(t, "Ada Lovelace", (&User{Username: "ada", FirstName: &first, LastName: &last}).DisplayName())
	assert.Equal(t, "Ada", (&User{Username: "ada", FirstName: &first}).DisplayName())
	assert.Equal(t, "ada", (&User{Username: "ada"}).DisplayName())
}
