package publisher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "ballotguard/pkg/domain"
	audit "ballotguard/pkg/platform/audit"
	"ballotguard/pkg/platform/audit/store/memory"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	voterID := id.VoterID(uuid.New())
	err := pub.Emit(context.Background(), audit.Event{
		VoterID: voterID,
		Action:  string(audit.EventBallotCast),
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), voterID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventBallotCast), events[0].Action)
	assert.Equal(t, audit.CategoryIntegrity, events[0].Category)
	assert.NotEqual(t, uuid.Nil, events[0].ID)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	voterID := id.VoterID(uuid.New())
	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			VoterID: voterID,
			Action:  string(audit.EventOTPIssued),
		})
		require.NoError(t, err)
	}

	pub.Close()

	events, err := store.ListByVoter(context.Background(), voterID)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_BufferFullNeverBlocks(t *testing.T) {
	blocked := make(chan struct{})
	store := &blockingStore{release: blocked}
	pub := NewPublisher(store, WithAsyncBuffer(1))

	var wg sync.WaitGroup
	var mu sync.Mutex
	var full int
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := pub.Emit(context.Background(), audit.Event{Action: string(audit.EventBallotCast)}); err == ErrBufferFull {
				mu.Lock()
				full++
				mu.Unlock()
			}
		}()
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked on a stalled store")
	}

	assert.Positive(t, full)
	assert.Equal(t, int64(full), pub.Dropped())
	close(blocked)
	pub.Close()
}

func TestPublisher_SetsTimestamp(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithClock(func() time.Time { return fixed }))
	defer pub.Close()

	voterID := id.VoterID(uuid.New())
	require.NoError(t, pub.Emit(context.Background(), audit.Event{VoterID: voterID, Action: "otp_issued"}))

	custom := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, pub.Emit(context.Background(), audit.Event{VoterID: voterID, Action: "otp_verified", Timestamp: custom}))

	events, err := pub.List(context.Background(), voterID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, fixed, events[0].Timestamp)
	assert.Equal(t, custom, events[1].Timestamp)
}

func TestPublisher_ContextCancellation(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(1))
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pub.Emit(ctx, audit.Event{Action: string(audit.EventBallotCast)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPublisher_ListUnsupported(t *testing.T) {
	pub := NewPublisher(&blockingStore{})
	_, err := pub.List(context.Background(), id.VoterID(uuid.New()))
	assert.ErrorIs(t, err, ErrNotListable)
}

type blockingStore struct {
	release chan struct{}
}

func (s *blockingStore) Append(ctx context.Context, _ audit.Event) error {
	if s.release == nil {
		return nil
	}
	select {
	case <-s.release:
	case <-ctx.Done():
	}
	return nil
}
