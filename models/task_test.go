package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo(t *testing.T) {
	cases := []struct {
		from    TaskStatus
		to      TaskStatus
		allowed bool
	}{
		{StatusAvailable, StatusInProgress, true},
		{StatusInProgress, StatusSubmitted, true},
		{StatusSubmitted, StatusCompleted, true},
		{StatusAvailable, StatusSubmitted, false},
		{StatusAvailable, StatusCompleted, false},
		{StatusInProgress, StatusAvailable, false},
		{StatusSubmitted, StatusInProgress, false},
		{StatusCompleted, StatusAvailable, false},
		{StatusCompleted, StatusCompleted, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestAssigneeID(t *testing.T) {
	var task Task
	assert.Equal(t, "", task.AssigneeID())

	task.Assignment = &Assignment{AssignedTo: "u1"}
	assert.Equal(t, "u1", task.AssigneeID())
}

func TestIsDone(t *testing.T) {
	task := Task{Status: StatusInfo{Current: StatusSubmitted}}
	assert.True(t, task.IsDone())

	task.Status.Current = StatusCompleted
	assert.True(t, task.IsDone())

	task.Status.Current = StatusInProgress
	assert.False(t, task.IsDone())
}
