package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"flexkazi/freelancer-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeRefresher struct {
	mu     sync.Mutex
	counts map[string]int
	calls  chan string

	inFlight    int32
	maxInFlight int32
	gate        chan struct{}
}

func newFakeRefresher(buffer int) *fakeRefresher {
	return &fakeRefresher{
		counts: map[string]int{},
		calls:  make(chan string, buffer),
	}
}

func (f *fakeRefresher) RefreshUserIndex(ctx context.Context, userID string) error {
	current := atomic.AddInt32(&f.inFlight, 1)
	for {
		max := atomic.LoadInt32(&f.maxInFlight)
		if current <= max || atomic.CompareAndSwapInt32(&f.maxInFlight, max, current) {
			break
		}
	}

	if f.gate != nil {
		<-f.gate
	}

	f.mu.Lock()
	f.counts[userID]++
	f.mu.Unlock()
	atomic.AddInt32(&f.inFlight, -1)

	f.calls <- userID
	return nil
}

func (f *fakeRefresher) countFor(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[userID]
}

func waitForCall(t *testing.T, calls <-chan string) string {
	t.Helper()
	select {
	case userID := <-calls:
		return userID
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an index rebuild")
		return ""
	}
}

func changedTask(userID string) changeEvent {
	return changeEvent{
		OperationType: "update",
		FullDocument: models.Task{
			ID: primitive.NewObjectID(),
			Assignment: &models.Assignment{
				AssignedTo: userID,
				AssignedAt: time.Now(),
			},
			Status: models.StatusInfo{Current: models.StatusInProgress},
		},
	}
}

func TestHandleIgnoresUnassignedTasks(t *testing.T) {
	refresher := newFakeRefresher(1)
	service := NewSyncService(nil, refresher)

	service.handle(changeEvent{OperationType: "insert", FullDocument: models.Task{ID: primitive.NewObjectID()}})

	_, ok := service.next()
	assert.False(t, ok)
}

func TestBurstOfChangesCollapsesToOneRebuild(t *testing.T) {
	refresher := newFakeRefresher(16)
	service := NewSyncService(nil, refresher)

	for i := 0; i < 10; i++ {
		service.handle(changedTask("u1"))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go service.dispatch(ctx)

	assert.Equal(t, "u1", waitForCall(t, refresher.calls))

	// Give the dispatcher a chance to run any extra rebuild it queued.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, refresher.countFor("u1"))
}

func TestChangesDuringRebuildQueueAtMostOneMore(t *testing.T) {
	refresher := newFakeRefresher(16)
	refresher.gate = make(chan struct{})
	service := NewSyncService(nil, refresher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go service.dispatch(ctx)

	service.handle(changedTask("u1"))

	// The first rebuild is parked on the gate; pile up more changes.
	for i := 0; i < 5; i++ {
		service.handle(changedTask("u1"))
	}
	close(refresher.gate)

	waitForCall(t, refresher.calls)
	select {
	case <-refresher.calls:
	case <-time.After(200 * time.Millisecond):
	}

	assert.LessOrEqual(t, refresher.countFor("u1"), 2)
	assert.GreaterOrEqual(t, refresher.countFor("u1"), 1)
}

func TestNoUserTriggerIsEvictedByAnothersBacklog(t *testing.T) {
	refresher := newFakeRefresher(256)
	service := NewSyncService(nil, refresher)

	// Far more traffic than the old queue could hold, plus one quiet user.
	for i := 0; i < 100; i++ {
		service.handle(changedTask(fmt.Sprintf("chatty-%d", i)))
		service.handle(changedTask(fmt.Sprintf("chatty-%d", i)))
	}
	service.handle(changedTask("quiet"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go service.dispatch(ctx)

	for i := 0; i < 101; i++ {
		waitForCall(t, refresher.calls)
	}

	require.Equal(t, 1, refresher.countFor("quiet"))
	for i := 0; i < 100; i++ {
		assert.Equal(t, 1, refresher.countFor(fmt.Sprintf("chatty-%d", i)))
	}
}

func TestDispatchSerializesRebuilds(t *testing.T) {
	refresher := newFakeRefresher(256)
	service := NewSyncService(nil, refresher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go service.dispatch(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			service.handle(changedTask(fmt.Sprintf("u%d", i)))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 20; i++ {
		waitForCall(t, refresher.calls)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&refresher.maxInFlight))
}
