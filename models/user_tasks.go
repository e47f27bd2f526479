package models

import "time"

// AssignedTaskSummary is the denormalized entry kept per accepted task in
// the user's task index, so dashboard views do not scan the full task
// collection.
type AssignedTaskSummary struct {
	Title         string     `bson:"title" json:"title"`
	Budget        float64    `bson:"budget" json:"budget"`
	AssignedAt    time.Time  `bson:"assignedAt" json:"assignedAt"`
	CurrentStatus TaskStatus `bson:"currentStatus" json:"currentStatus"`
	PriorityMatch bool       `bson:"priorityMatch" json:"priorityMatch"`
}

type UserStats struct {
	TasksInProgress int     `bson:"tasksInProgress" json:"tasksInProgress"`
	TasksAvailable  int     `bson:"tasksAvailable" json:"tasksAvailable"`
	TasksCompleted  int     `bson:"tasksCompleted" json:"tasksCompleted"`
	TotalEarned     float64 `bson:"totalEarned" json:"totalEarned"`
	AverageRating   float64 `bson:"averageRating" json:"averageRating"`
}

// UserTaskIndex is derived data. It must always be recomputable from the
// task collection; the repair pass overwrites it wholesale on every reload.
type UserTaskIndex struct {
	UserID        string                         `bson:"_id" json:"userId"`
	AssignedTasks map[string]AssignedTaskSummary `bson:"assignedTasks" json:"assignedTasks"`
	Stats         UserStats                      `bson:"stats" json:"stats"`
}

// EmptyTaskIndex initializes the index document written together with a
// fresh profile.
func EmptyTaskIndex(userID string) UserTaskIndex {
	return UserTaskIndex{
		UserID:        userID,
		AssignedTasks: map[string]AssignedTaskSummary{},
	}
}
