package models

import "time"

// SiteStatistics is a single advisory counters document. It is updated
// with best effort and never treated as a source of truth.
type SiteStatistics struct {
	ID              string    `bson:"_id" json:"-"`
	TotalMembers    int64     `bson:"totalMembers" json:"totalMembers"`
	AwaitingReview  int64     `bson:"awaitingReview" json:"awaitingReview"`
	ApprovedMembers int64     `bson:"approvedMembers" json:"approvedMembers"`
	TasksAvailable  int64     `bson:"tasksAvailable" json:"tasksAvailable"`
	LastUpdate      time.Time `bson:"lastUpdate" json:"lastUpdate"`
}

const SiteStatisticsID = "global"

// WorkCategory tracks the freelancers registered under one task category.
type WorkCategory struct {
	Category    TaskCategory    `bson:"_id" json:"category"`
	MemberCount int64           `bson:"memberCount" json:"memberCount"`
	Freelancers map[string]bool `bson:"freelancers" json:"freelancers"`
}
