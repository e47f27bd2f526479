package services

import (
	"context"
	"fmt"
	"io"
	"time"

	errs "flexkazi/freelancer-service/errors"
	"flexkazi/freelancer-service/logging"
	"flexkazi/freelancer-service/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TaskStore is the slice of the task repository the service depends on.
type TaskStore interface {
	GetTask(ctx context.Context, taskID primitive.ObjectID) (*models.Task, error)
	GetAllTasks(ctx context.Context) ([]models.Task, error)
	TryAssign(ctx context.Context, taskID primitive.ObjectID, assignment models.Assignment) (*models.Task, error)
	StartTask(ctx context.Context, taskID primitive.ObjectID, userID string, now time.Time) (bool, error)
	SubmitDeliverables(ctx context.Context, taskID primitive.ObjectID, userID string, files []models.FileReference, notes string, now time.Time) (*models.Task, error)
	CompleteTask(ctx context.Context, taskID primitive.ObjectID, feedback string, rating *float64, now time.Time) (*models.Task, error)
	GetUserIndex(ctx context.Context, userID string) (*models.UserTaskIndex, error)
	SaveUserIndex(ctx context.Context, index models.UserTaskIndex) error
	AppendIndexEntry(ctx context.Context, userID, taskID string, summary models.AssignedTaskSummary) error
}

// ProfileStore looks up the accepting freelancer's profile and keeps the
// advisory counters.
type ProfileStore interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
	IncrementSiteStats(ctx context.Context, deltas map[string]int64)
}

// FileStore uploads deliverable attachments to object storage.
type FileStore interface {
	Upload(fileName string, source io.Reader) (models.FileReference, error)
}

// Notifier posts to the user's notification feed; implementations must be
// safe to fail.
type Notifier interface {
	Notify(userID, message string)
}

type TaskService struct {
	store    TaskStore
	users    ProfileStore
	files    FileStore
	notifier Notifier
	timeout  time.Duration
}

func NewTaskService(store TaskStore, users ProfileStore, files FileStore, notifier Notifier) *TaskService {
	return &TaskService{
		store:    store,
		users:    users,
		files:    files,
		notifier: notifier,
		timeout:  10 * time.Second,
	}
}

// Dashboard is everything a freelancer's main view renders from, produced
// by one full scan of the task collection.
type Dashboard struct {
	Buckets   models.TaskBuckets `json:"buckets"`
	Available []models.Task      `json:"available"`
	Stats     models.UserStats   `json:"stats"`
}

// BucketTasks partitions the full task collection for one user. Pure
// function; re-run after every mutation instead of patching buckets
// incrementally, so a full recompute is always correct.
func BucketTasks(tasks []models.Task, userID string) models.TaskBuckets {
	var buckets models.TaskBuckets
	for _, task := range tasks {
		if task.Assignment == nil || task.AssigneeID() != userID {
			continue
		}
		switch task.Status.Current {
		case models.StatusAvailable:
			if task.Assignment.IsPriorityMatch {
				buckets.Priority = append(buckets.Priority, task)
			} else {
				buckets.Assigned = append(buckets.Assigned, task)
			}
		case models.StatusInProgress:
			buckets.InProgress = append(buckets.InProgress, task)
		case models.StatusSubmitted:
			buckets.Submitted = append(buckets.Submitted, task)
		case models.StatusCompleted:
			buckets.Completed = append(buckets.Completed, task)
		}
	}
	return buckets
}

// AvailableTasks filters the collection down to tasks nobody holds.
func AvailableTasks(tasks []models.Task) []models.Task {
	var available []models.Task
	for _, task := range tasks {
		if task.AssigneeID() == "" {
			available = append(available, task)
		}
	}
	return available
}

// ComputeStats aggregates earnings and rating over the done (submitted or
// completed) tasks. Unrated tasks stay out of the rating denominator.
func ComputeStats(done []models.Task) (count int, totalEarned float64, averageRating float64) {
	count = len(done)

	ratingSum := 0.0
	rated := 0
	for _, task := range done {
		totalEarned += task.Details.Budget
		if task.Deliverables.Rating != nil {
			ratingSum += *task.Deliverables.Rating
			rated++
		}
	}
	if rated > 0 {
		averageRating = ratingSum / float64(rated)
	}
	return count, totalEarned, averageRating
}

// BuildUserIndex derives the whole per-user index document from the task
// collection. This is the repair pass: whatever a partial multi-path write
// left behind, the next build overwrites with values recomputed from the
// source of truth.
func BuildUserIndex(tasks []models.Task, userID string) models.UserTaskIndex {
	index := models.EmptyTaskIndex(userID)
	buckets := BucketTasks(tasks, userID)

	for _, task := range tasks {
		if task.Assignment == nil || task.AssigneeID() != userID {
			continue
		}
		index.AssignedTasks[task.ID.Hex()] = summarize(&task)
	}

	done := buckets.Done()
	count, totalEarned, averageRating := ComputeStats(done)
	index.Stats = models.UserStats{
		TasksInProgress: len(buckets.InProgress),
		TasksAvailable:  len(AvailableTasks(tasks)),
		TasksCompleted:  count,
		TotalEarned:     totalEarned,
		AverageRating:   averageRating,
	}
	return index
}

func summarize(task *models.Task) models.AssignedTaskSummary {
	summary := models.AssignedTaskSummary{
		Title:         task.Details.Title,
		Budget:        task.Details.Budget,
		CurrentStatus: task.Status.Current,
	}
	if task.Assignment != nil {
		summary.AssignedAt = task.Assignment.AssignedAt
		summary.PriorityMatch = task.Assignment.IsPriorityMatch
	}
	return summary
}

func (s *TaskService) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// LoadDashboard scans the task collection, buckets it for the user and
// persists the freshly rebuilt index so it never drifts from the tasks.
func (s *TaskService) LoadDashboard(ctx context.Context, userID string) (*Dashboard, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	tasks, err := s.store.GetAllTasks(ctx)
	if err != nil {
		return nil, err
	}

	index := BuildUserIndex(tasks, userID)
	if err := s.store.SaveUserIndex(ctx, index); err != nil {
		logging.Logger.Warnf("Event ID: INDEX_SAVE_FAILED, Description: Failed to persist task index for user %s: %v", userID, err)
	}

	return &Dashboard{
		Buckets:   BucketTasks(tasks, userID),
		Available: AvailableTasks(tasks),
		Stats:     index.Stats,
	}, nil
}

// RefreshUserIndex is the reload trigger target of the realtime sync: one
// full recompute and persist of the user's index.
func (s *TaskService) RefreshUserIndex(ctx context.Context, userID string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	tasks, err := s.store.GetAllTasks(ctx)
	if err != nil {
		return err
	}
	return s.store.SaveUserIndex(ctx, BuildUserIndex(tasks, userID))
}

// AcceptTask claims an available task for the user. The assignment itself
// is one conditional write at the store, so a lost race never mutates
// anything and surfaces as ErrTaskConflict.
func (s *TaskService) AcceptTask(ctx context.Context, userID string, taskID primitive.ObjectID) (*models.Task, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	assignment := models.Assignment{
		AssignedTo:      userID,
		AssignedBy:      "system",
		AssignedAt:      time.Now(),
		IsPriorityMatch: user.Professional.MainCategory != "" && user.Professional.MainCategory == task.Details.Category,
	}

	task, err = s.store.TryAssign(ctx, taskID, assignment)
	if err != nil {
		return nil, err
	}

	if err := s.store.AppendIndexEntry(ctx, userID, taskID.Hex(), summarize(task)); err != nil {
		// The repair pass rebuilds the index on the next reload.
		logging.Logger.Warnf("Event ID: INDEX_APPEND_FAILED, Description: Failed to index accepted task %s for user %s: %v", taskID.Hex(), userID, err)
	}

	s.users.IncrementSiteStats(ctx, map[string]int64{"tasksAvailable": -1})
	s.notifier.Notify(userID, fmt.Sprintf("You accepted \"%s\".", task.Details.Title))

	logging.Logger.Infof("Event ID: TASK_ACCEPTED, Description: Task %s accepted by user %s (priority match: %t).", taskID.Hex(), userID, assignment.IsPriorityMatch)
	return task, nil
}

// OpenWorkspace starts an accepted task the first time its workspace is
// opened. Reopening a running or finished task changes nothing.
func (s *TaskService) OpenWorkspace(ctx context.Context, userID string, taskID primitive.ObjectID) (*models.Task, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.AssigneeID() != userID {
		return nil, errs.ErrNotAssignee
	}

	if task.Status.Current != models.StatusAvailable {
		return task, nil
	}

	started, err := s.store.StartTask(ctx, taskID, userID, time.Now())
	if err != nil {
		return nil, err
	}
	if !started {
		// Someone beat us to it; the stored timestamps win.
		return s.store.GetTask(ctx, taskID)
	}

	task, err = s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if err := s.store.AppendIndexEntry(ctx, userID, taskID.Hex(), summarize(task)); err != nil {
		logging.Logger.Warnf("Event ID: INDEX_APPEND_FAILED, Description: Failed to index started task %s for user %s: %v", taskID.Hex(), userID, err)
	}

	logging.Logger.Infof("Event ID: TASK_STARTED, Description: Task %s moved to in_progress by user %s.", taskID.Hex(), userID)
	return task, nil
}

// Attachment is one uploaded deliverable file.
type Attachment struct {
	FileName string
	Content  io.Reader
}

// SubmitWork uploads the attachments, records the deliverables and
// advances the task to submitted.
func (s *TaskService) SubmitWork(ctx context.Context, userID string, taskID primitive.ObjectID, notes string, attachments []Attachment) (*models.Task, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	// Re-check state before the uploads so a rejected submit leaves no
	// orphan files behind. The conditional write below still decides.
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.AssigneeID() != userID {
		return nil, errs.ErrNotAssignee
	}
	if task.Status.Current != models.StatusInProgress {
		return nil, errs.ErrInvalidTransition
	}

	var files []models.FileReference
	for _, attachment := range attachments {
		ref, err := s.files.Upload(attachment.FileName, attachment.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to upload attachment %s: %v", attachment.FileName, err)
		}
		files = append(files, ref)
	}

	task, err = s.store.SubmitDeliverables(ctx, taskID, userID, files, notes, time.Now())
	if err != nil {
		return nil, err
	}

	if err := s.store.AppendIndexEntry(ctx, userID, taskID.Hex(), summarize(task)); err != nil {
		logging.Logger.Warnf("Event ID: INDEX_APPEND_FAILED, Description: Failed to index submitted task %s for user %s: %v", taskID.Hex(), userID, err)
	}

	s.notifier.Notify(userID, fmt.Sprintf("Work for \"%s\" submitted for review.", task.Details.Title))

	logging.Logger.Infof("Event ID: TASK_SUBMITTED, Description: Task %s submitted by user %s with %d attachments.", taskID.Hex(), userID, len(files))
	return task, nil
}

// ReviewTask closes a submitted task with feedback and an optional rating,
// then rebuilds the assignee's index so earnings and rating pick it up.
func (s *TaskService) ReviewTask(ctx context.Context, taskID primitive.ObjectID, feedback string, rating *float64) (*models.Task, error) {
	if rating != nil && (*rating < 0 || *rating > 5) {
		return nil, fmt.Errorf("%w: rating must be between 0 and 5", errs.ErrValidation)
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	task, err := s.store.CompleteTask(ctx, taskID, feedback, rating, time.Now())
	if err != nil {
		return nil, err
	}

	assignee := task.AssigneeID()
	if assignee != "" {
		if err := s.RefreshUserIndex(ctx, assignee); err != nil {
			logging.Logger.Warnf("Event ID: INDEX_REFRESH_FAILED, Description: Failed to refresh index for user %s after review: %v", assignee, err)
		}
		s.notifier.Notify(assignee, fmt.Sprintf("\"%s\" was reviewed and marked completed.", task.Details.Title))
	}

	logging.Logger.Infof("Event ID: TASK_COMPLETED, Description: Task %s reviewed and completed.", taskID.Hex())
	return task, nil
}

// GetTask returns a single task for the details view.
func (s *TaskService) GetTask(ctx context.Context, taskID primitive.ObjectID) (*models.Task, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.store.GetTask(ctx, taskID)
}

// ListAvailable returns unassigned tasks, optionally filtered by category
// and priority.
func (s *TaskService) ListAvailable(ctx context.Context, category models.TaskCategory, priority models.TaskPriority) ([]models.Task, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	tasks, err := s.store.GetAllTasks(ctx)
	if err != nil {
		return nil, err
	}

	var filtered []models.Task
	for _, task := range AvailableTasks(tasks) {
		if category != "" && task.Details.Category != category {
			continue
		}
		if priority != "" && task.Details.Priority != priority {
			continue
		}
		filtered = append(filtered, task)
	}
	return filtered, nil
}
