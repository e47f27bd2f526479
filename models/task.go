package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TaskStatus string

const (
	StatusAvailable  TaskStatus = "available"
	StatusInProgress TaskStatus = "in_progress"
	StatusSubmitted  TaskStatus = "submitted"
	StatusCompleted  TaskStatus = "completed"
)

type TaskCategory string

const (
	CategoryAdvert TaskCategory = "advert"
	CategorySocial TaskCategory = "social"
	CategoryData   TaskCategory = "data"
)

type TaskPriority string

const (
	PriorityHigh   TaskPriority = "high"
	PriorityMedium TaskPriority = "medium"
	PriorityLow    TaskPriority = "low"
)

type TaskDetails struct {
	Title          string       `json:"title" bson:"title"`
	Description    string       `json:"description" bson:"description"`
	Category       TaskCategory `json:"category" bson:"category"`
	Priority       TaskPriority `json:"priority" bson:"priority"`
	Budget         float64      `json:"budget" bson:"budget"`
	EstimatedHours float64      `json:"estimatedHours" bson:"estimatedHours"`
	Deadline       time.Time    `json:"deadline" bson:"deadline"`
	CreatedAt      time.Time    `json:"createdAt" bson:"createdAt"`
}

// Assignment binds a task to exactly one freelancer. A task with no
// assignment document is available for anyone to accept.
type Assignment struct {
	AssignedTo      string    `json:"assignedTo" bson:"assignedTo"`
	AssignedBy      string    `json:"assignedBy" bson:"assignedBy"`
	AssignedAt      time.Time `json:"assignedAt" bson:"assignedAt"`
	IsPriorityMatch bool      `json:"isPriorityMatch" bson:"isPriorityMatch"`
}

type StatusInfo struct {
	Current     TaskStatus `json:"current" bson:"current"`
	AcceptedAt  *time.Time `json:"acceptedAt,omitempty" bson:"acceptedAt,omitempty"`
	StartedAt   *time.Time `json:"startedAt,omitempty" bson:"startedAt,omitempty"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty" bson:"submittedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
}

type FileReference struct {
	FileID   primitive.ObjectID `json:"fileId" bson:"fileId"`
	FileName string             `json:"fileName" bson:"fileName"`
	URL      string             `json:"url" bson:"url"`
}

type Deliverables struct {
	Files           []FileReference `json:"files,omitempty" bson:"files,omitempty"`
	SubmissionNotes string          `json:"submissionNotes,omitempty" bson:"submissionNotes,omitempty"`
	Feedback        string          `json:"feedback,omitempty" bson:"feedback,omitempty"`
	Rating          *float64        `json:"rating,omitempty" bson:"rating,omitempty"`
}

type Task struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Details      TaskDetails        `json:"details" bson:"details"`
	Assignment   *Assignment        `json:"assignment,omitempty" bson:"assignment,omitempty"`
	Status       StatusInfo         `json:"status" bson:"status"`
	Deliverables Deliverables       `json:"deliverables" bson:"deliverables"`
}

// AssigneeID returns the id of the current assignee, or "" when the task
// is available.
func (t *Task) AssigneeID() string {
	if t.Assignment == nil {
		return ""
	}
	return t.Assignment.AssignedTo
}

// IsDone reports whether the task has passed the submission point of its
// lifecycle. Submitted and completed tasks both count toward earnings.
func (t *Task) IsDone() bool {
	return t.Status.Current == StatusSubmitted || t.Status.Current == StatusCompleted
}

var statusRank = map[TaskStatus]int{
	StatusAvailable:  0,
	StatusInProgress: 1,
	StatusSubmitted:  2,
	StatusCompleted:  3,
}

// CanTransitionTo reports whether moving from s to next is a legal
// lifecycle step. A status never regresses and never skips a state.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to == from+1
}
