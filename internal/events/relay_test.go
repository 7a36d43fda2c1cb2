package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/issouf7507-dev/codeqr-sub000/internal/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeStore struct {
	mu       sync.Mutex
	pending  []Record
	assigned map[int64]int64
	sent     []int64
	failed   []int64
	fetchErr error
}

func (s *fakeStore) FetchPending(ctx context.Context, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	var out []Record
	for _, r := range s.pending {
		if !contains(s.sent, r.ID) {
			out = append(out, r)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) AssignSequence(ctx context.Context, id, seq int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.assigned == nil {
		s.assigned = map[int64]int64{}
	}
	s.assigned[id] = seq
	for i := range s.pending {
		if s.pending[i].ID == id {
			s.pending[i].Sequence = &seq
		}
	}
	return nil
}

func (s *fakeStore) MarkSent(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, id)
	return nil
}

func (s *fakeStore) MarkFailed(ctx context.Context, id int64, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, id)
	return nil
}

func (s *fakeStore) sentIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.sent...)
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

type memSequences struct {
	mu   sync.Mutex
	next map[string]int64
}

func (m *memSequences) NextSequence(ctx context.Context, partitionKey string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.next == nil {
		m.next = map[string]int64{}
	}
	m.next[partitionKey]++
	return m.next[partitionKey], nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	got      []RawEnvelope
	keys     []string
	failFor  map[string]bool
	closeErr error
}

func (p *recordingPublisher) Name() string { return "recording" }

func (p *recordingPublisher) Publish(ctx context.Context, routingKey string, env RawEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failFor[env.EventID] {
		return errors.New("broker unavailable")
	}
	p.got = append(p.got, env)
	p.keys = append(p.keys, routingKey)
	return nil
}

func (p *recordingPublisher) Close() error { return p.closeErr }

func record(id int64, eventID, partition string, kind Kind) Record {
	return Record{ID: id, EventID: eventID, Kind: kind, PartitionKey: partition, Payload: []byte(`{}`)}
}

func TestRelayFlush_AssignsSequencesAndMarksSent(t *testing.T) {
	store := &fakeStore{pending: []Record{
		record(1, "e1", "o1", OrderCreatedV1),
		record(2, "e2", "o1", OrderStatusChangedV1),
		record(3, "e3", "o2", OrderCreatedV1),
	}}
	pub := &recordingPublisher{}
	m := metrics.New(prometheus.NewRegistry())
	relay := NewRelay(store, &memSequences{}, pub, zap.NewNop(), m, time.Second, 10)

	n, err := relay.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []int64{1, 2, 3}, store.sentIDs())

	require.Len(t, pub.got, 3)
	assert.Equal(t, int64(1), *pub.got[0].Sequence)
	assert.Equal(t, int64(2), *pub.got[1].Sequence)
	assert.Equal(t, int64(1), *pub.got[2].Sequence)
	assert.Equal(t, []string{"order.created.v1", "order.status_changed.v1", "order.created.v1"}, pub.keys)
}

func TestRelayFlush_FailureHoldsBackPartition(t *testing.T) {
	store := &fakeStore{pending: []Record{
		record(1, "e1", "o1", OrderCreatedV1),
		record(2, "e2", "o1", OrderStatusChangedV1),
		record(3, "e3", "o2", OrderCreatedV1),
	}}
	pub := &recordingPublisher{failFor: map[string]bool{"e1": true}}
	relay := NewRelay(store, &memSequences{}, pub, zap.NewNop(), nil, time.Second, 10)

	n, err := relay.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int64{3}, store.sentIDs())
	assert.Equal(t, []int64{1}, store.failed)

	// the retry keeps the sequence number pinned on the first attempt
	pub.failFor = nil
	n, err = relay.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, int64(1), store.assigned[1])
	assert.Equal(t, int64(2), store.assigned[2])
}

func TestRelayFlush_FetchError(t *testing.T) {
	relay := NewRelay(&fakeStore{fetchErr: errors.New("db down")}, &memSequences{}, &recordingPublisher{}, zap.NewNop(), nil, 0, 0)
	_, err := relay.Flush(context.Background())
	assert.ErrorContains(t, err, "db down")
}

func TestRelayRun_StopsOnCancel(t *testing.T) {
	store := &fakeStore{pending: []Record{record(1, "e1", "o1", OrderCreatedV1)}}
	relay := NewRelay(store, &memSequences{}, &recordingPublisher{}, zap.NewNop(), nil, 5*time.Millisecond, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		relay.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(store.sentIDs()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
