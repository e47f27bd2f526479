package models

// TaskBuckets is the view model the dashboard renders from. Submitted and
// completed are kept as separate buckets because feedback and rating only
// exist after review.
type TaskBuckets struct {
	Priority   []Task `json:"priority"`
	Assigned   []Task `json:"assigned"`
	InProgress []Task `json:"inProgress"`
	Submitted  []Task `json:"submitted"`
	Completed  []Task `json:"completed"`
}

// Done returns the union of submitted and completed tasks, the set the
// aggregate stats are computed over.
func (b *TaskBuckets) Done() []Task {
	done := make([]Task, 0, len(b.Submitted)+len(b.Completed))
	done = append(done, b.Submitted...)
	done = append(done, b.Completed...)
	return done
}
