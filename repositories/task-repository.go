package repositories

import (
	"context"
	"fmt"
	"time"

	errs "flexkazi/freelancer-service/errors"
	"flexkazi/freelancer-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TaskRepository struct {
	tasksCollection     *mongo.Collection
	userTasksCollection *mongo.Collection
}

func NewTaskRepository(db *mongo.Database) *TaskRepository {
	return &TaskRepository{
		tasksCollection:     db.Collection("tasks"),
		userTasksCollection: db.Collection("user_tasks"),
	}
}

func (r *TaskRepository) GetTask(ctx context.Context, taskID primitive.ObjectID) (*models.Task, error) {
	var task models.Task
	err := r.tasksCollection.FindOne(ctx, bson.M{"_id": taskID}).Decode(&task)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrRemoteUnavailable, err)
	}
	return &task, nil
}

func (r *TaskRepository) GetAllTasks(ctx context.Context) ([]models.Task, error) {
	cursor, err := r.tasksCollection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrRemoteUnavailable, err)
	}
	defer cursor.Close(ctx)

	var tasks []models.Task
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %v", err)
	}
	return tasks, nil
}

// TryAssign claims an available task for a freelancer in one conditional
// write. The filter matches only while no assignee exists, so two racing
// accepts cannot both succeed; the loser gets ErrTaskConflict.
func (r *TaskRepository) TryAssign(ctx context.Context, taskID primitive.ObjectID, assignment models.Assignment) (*models.Task, error) {
	filter := bson.M{
		"_id":                   taskID,
		"assignment.assignedTo": nil, // matches a missing assignment document too
	}
	update := bson.M{"$set": bson.M{
		"assignment": assignment,
		"status": models.StatusInfo{
			Current: models.StatusAvailable,
		},
	}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var task models.Task
	err := r.tasksCollection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&task)
	if err == mongo.ErrNoDocuments {
		// Either the task is gone or somebody else won the race.
		if _, getErr := r.GetTask(ctx, taskID); getErr != nil {
			return nil, getErr
		}
		return nil, errs.ErrTaskConflict
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrRemoteUnavailable, err)
	}
	return &task, nil
}

// StartTask moves an accepted task into in_progress and stamps the accept
// and start times. The status filter makes the write a no-op when the task
// is already running, so reopening the workspace never touches the
// timestamps again.
func (r *TaskRepository) StartTask(ctx context.Context, taskID primitive.ObjectID, userID string, now time.Time) (bool, error) {
	filter := bson.M{
		"_id":                   taskID,
		"assignment.assignedTo": userID,
		"status.current":        models.StatusAvailable,
	}
	update := bson.M{"$set": bson.M{
		"status.current":    models.StatusInProgress,
		"status.acceptedAt": now,
		"status.startedAt":  now,
	}}

	result, err := r.tasksCollection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("%w: %v", errs.ErrRemoteUnavailable, err)
	}
	return result.ModifiedCount > 0, nil
}

// SubmitDeliverables records the work product and advances the task to
// submitted. Only the assignee of a running task matches the filter.
func (r *TaskRepository) SubmitDeliverables(ctx context.Context, taskID primitive.ObjectID, userID string, files []models.FileReference, notes string, now time.Time) (*models.Task, error) {
	filter := bson.M{
		"_id":                   taskID,
		"assignment.assignedTo": userID,
		"status.current":        models.StatusInProgress,
	}
	update := bson.M{"$set": bson.M{
		"deliverables.files":           files,
		"deliverables.submissionNotes": notes,
		"status.current":               models.StatusSubmitted,
		"status.submittedAt":           now,
	}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var task models.Task
	err := r.tasksCollection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&task)
	if err == mongo.ErrNoDocuments {
		current, getErr := r.GetTask(ctx, taskID)
		if getErr != nil {
			return nil, getErr
		}
		if current.AssigneeID() != userID {
			return nil, errs.ErrNotAssignee
		}
		return nil, errs.ErrInvalidTransition
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrRemoteUnavailable, err)
	}
	return &task, nil
}

// CompleteTask closes the review loop on a submitted task.
func (r *TaskRepository) CompleteTask(ctx context.Context, taskID primitive.ObjectID, feedback string, rating *float64, now time.Time) (*models.Task, error) {
	filter := bson.M{
		"_id":            taskID,
		"status.current": models.StatusSubmitted,
	}
	set := bson.M{
		"deliverables.feedback": feedback,
		"status.current":        models.StatusCompleted,
		"status.completedAt":    now,
	}
	if rating != nil {
		set["deliverables.rating"] = *rating
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var task models.Task
	err := r.tasksCollection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&task)
	if err == mongo.ErrNoDocuments {
		if _, getErr := r.GetTask(ctx, taskID); getErr != nil {
			return nil, getErr
		}
		return nil, errs.ErrInvalidTransition
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrRemoteUnavailable, err)
	}
	return &task, nil
}

func (r *TaskRepository) GetUserIndex(ctx context.Context, userID string) (*models.UserTaskIndex, error) {
	var index models.UserTaskIndex
	err := r.userTasksCollection.FindOne(ctx, bson.M{"_id": userID}).Decode(&index)
	if err == mongo.ErrNoDocuments {
		empty := models.EmptyTaskIndex(userID)
		return &empty, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrRemoteUnavailable, err)
	}
	return &index, nil
}

// SaveUserIndex overwrites the denormalized index document. Used both by
// the coordinators and by the repair pass, which rebuilds the index from
// the task collection wholesale.
func (r *TaskRepository) SaveUserIndex(ctx context.Context, index models.UserTaskIndex) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.userTasksCollection.ReplaceOne(ctx, bson.M{"_id": index.UserID}, index, opts)
	if err != nil {
		return fmt.Errorf("failed to save user task index: %v", err)
	}
	return nil
}

// AppendIndexEntry adds a single assigned-task summary without rewriting
// the rest of the index.
func (r *TaskRepository) AppendIndexEntry(ctx context.Context, userID, taskID string, summary models.AssignedTaskSummary) error {
	opts := options.Update().SetUpsert(true)
	update := bson.M{"$set": bson.M{"assignedTasks." + taskID: summary}}
	_, err := r.userTasksCollection.UpdateOne(ctx, bson.M{"_id": userID}, update, opts)
	if err != nil {
		return fmt.Errorf("failed to update user task index: %v", err)
	}
	return nil
}
