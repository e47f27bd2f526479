package services

import (
	"context"
	"fmt"
	"sync"

	"flexkazi/freelancer-service/logging"
	"flexkazi/freelancer-service/models"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Refresher rebuilds one user's denormalized task index.
type Refresher interface {
	RefreshUserIndex(ctx context.Context, userID string) error
}

// SyncService watches the task collection and triggers index rebuilds for
// the users a change touches. Triggers are a per-user pending set, not a
// queue: a burst of changes for a user collapses into at most one queued
// rebuild, and one user's backlog can never evict another user's trigger.
type SyncService struct {
	tasks     *mongo.Collection
	refresher Refresher

	cancel context.CancelFunc
	done   chan struct{}
	wake   chan struct{}

	mu      sync.Mutex
	pending map[string]struct{}
	running bool
}

func NewSyncService(tasks *mongo.Collection, refresher Refresher) *SyncService {
	return &SyncService{
		tasks:     tasks,
		refresher: refresher,
		wake:      make(chan struct{}, 1),
		pending:   map[string]struct{}{},
	}
}

type changeEvent struct {
	OperationType string      `bson:"operationType"`
	FullDocument  models.Task `bson:"fullDocument"`
}

// Start opens the change stream and launches the watcher and dispatcher
// goroutines. Calling Start on a running service is an error.
func (s *SyncService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("sync service already running")
	}

	streamCtx, cancel := context.WithCancel(ctx)
	streamOpts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, err := s.tasks.Watch(streamCtx, mongo.Pipeline{}, streamOpts)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to open task change stream: %v", err)
	}

	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.watch(streamCtx, stream)
	go s.dispatch(streamCtx)

	logging.Logger.Info("Event ID: SYNC_STARTED, Description: Task change stream watcher started.")
	return nil
}

// Stop tears down the stream and waits for the watcher to exit.
func (s *SyncService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.cancel()
	<-s.done
	s.running = false
	logging.Logger.Info("Event ID: SYNC_STOPPED, Description: Task change stream watcher stopped.")
}

func (s *SyncService) watch(ctx context.Context, stream *mongo.ChangeStream) {
	defer close(s.done)
	defer stream.Close(context.Background())

	for stream.Next(ctx) {
		var event changeEvent
		if err := stream.Decode(&event); err != nil {
			logging.Logger.Warnf("Event ID: SYNC_DECODE_FAILED, Description: Failed to decode change event: %v", err)
			continue
		}
		s.handle(event)
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		logging.Logger.Errorf("Event ID: SYNC_STREAM_ERROR, Description: Task change stream ended: %v", err)
	}
}

func (s *SyncService) handle(event changeEvent) {
	userID := event.FullDocument.AssigneeID()
	if userID == "" {
		return
	}
	s.enqueue(userID)
}

// enqueue marks the user's index as stale. Membership in the pending set
// is the whole trigger state, so repeat changes for a queued user are
// absorbed, and a rebuild already in flight picks up at most one more.
func (s *SyncService) enqueue(userID string) {
	s.mu.Lock()
	s.pending[userID] = struct{}{}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *SyncService) next() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID := range s.pending {
		delete(s.pending, userID)
		return userID, true
	}
	return "", false
}

// dispatch serializes rebuilds: one goroutine drains the pending set, so
// concurrent change bursts never run overlapping rebuilds.
func (s *SyncService) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		}

		for {
			userID, ok := s.next()
			if !ok {
				break
			}
			if err := s.refresher.RefreshUserIndex(ctx, userID); err != nil && ctx.Err() == nil {
				logging.Logger.Warnf("Event ID: SYNC_REFRESH_FAILED, Description: Failed to rebuild index for user %s: %v", userID, err)
			}
		}
	}
}
