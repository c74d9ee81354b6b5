package kafka

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DRSN-tech/ecofinds/internal/cfg"
	"github.com/DRSN-tech/ecofinds/internal/repository/pgdb"
	"github.com/DRSN-tech/ecofinds/internal/usecase"
	"github.com/DRSN-tech/ecofinds/pkg/logger"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (c *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if c.err != nil {
		return c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msgs...)
	return nil
}

func (c *captureWriter) Close() error {
	c.closed = true
	return nil
}

type memOutbox struct {
	pending   []*usecase.OutboxEvent
	processed []int64
	fetchErr  error
}

func (m *memOutbox) Create(_ context.Context, event *usecase.OutboxEvent) (*usecase.OutboxEvent, error) {
	m.pending = append(m.pending, event)
	return event, nil
}

func (m *memOutbox) GetAndMarkAsProcessing(_ context.Context, limit int) ([]*usecase.OutboxEvent, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	n := min(limit, len(m.pending))
	batch := m.pending[:n]
	m.pending = m.pending[n:]
	return batch, nil
}

func (m *memOutbox) MarkAsProcessed(_ context.Context, id int64) error {
	m.processed = append(m.processed, id)
	return nil
}

type failingProducer struct {
	err   error
	calls int
}

func (f *failingProducer) WriteRawMessage(context.Context, *usecase.WriteRawMessageReq) error {
	f.calls++
	return f.err
}

func outboxEvents(n int) []*usecase.OutboxEvent {
	events := make([]*usecase.OutboxEvent, 0, n)
	for i := 1; i <= n; i++ {
		events = append(events, &usecase.OutboxEvent{
			ID:          int64(i),
			EventID:     "evt",
			EventType:   usecase.ProductCreated,
			AggregateID: int64(100 + i),
			Payload:     []byte(`{}`),
			Status:      usecase.Processing,
		})
	}
	return events
}

func TestProducer_WriteRawMessageKeysByAggregate(t *testing.T) {
	w := &captureWriter{}
	p := newProducer(w, logger.NewNopLogger(), &cfg.KafkaCfg{Topic: "events"})

	err := p.WriteRawMessage(context.Background(), usecase.NewWriteRawMessageReq(&usecase.OutboxEvent{
		EventID:     "a1b2",
		EventType:   usecase.OrderCreated,
		AggregateID: 42,
		Payload:     []byte(`{"order_id":42}`),
	}))
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "42", string(msg.Key))
	assert.JSONEq(t, `{"order_id":42}`, string(msg.Value))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, headerEventID, msg.Headers[0].Key)
	assert.Equal(t, "a1b2", string(msg.Headers[0].Value))
	assert.Equal(t, string(usecase.OrderCreated), string(msg.Headers[1].Value))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestToMessage_NoHeadersWithoutMetadata(t *testing.T) {
	msg := toMessage(&usecase.WriteRawMessageReq{Key: 7, Payload: []byte("x")})
	assert.Equal(t, "7", string(msg.Key))
	assert.Empty(t, msg.Headers)
}

func TestNewProducer_RequiresBrokers(t *testing.T) {
	_, err := NewProducer(logger.NewNopLogger(), &cfg.KafkaCfg{Topic: "events"})
	require.Error(t, err)
}

func TestOutboxWorker_ProcessBatchPublishesAndMarks(t *testing.T) {
	repo := &memOutbox{pending: outboxEvents(3)}
	w := &captureWriter{}
	producer := newProducer(w, logger.NewNopLogger(), &cfg.KafkaCfg{})
	worker := NewOutboxWorker(repo, logger.NewNopLogger(), producer, "", 2, 0)

	hasMore, err := worker.processBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, hasMore)

	hasMore, err = worker.processBatch(context.Background())
	require.NoError(t, err)
	assert.False(t, hasMore)

	assert.Equal(t, []int64{1, 2, 3}, repo.processed)
	require.Len(t, w.msgs, 3)
	assert.Equal(t, "101", string(w.msgs[0].Key))
	assert.Equal(t, "103", string(w.msgs[2].Key))
}

func TestOutboxWorker_FailedPublishLeavesEventUnprocessed(t *testing.T) {
	repo := &memOutbox{pending: outboxEvents(2)}
	producer := &failingProducer{err: errors.New("dial tcp: connection refused")}
	worker := NewOutboxWorker(repo, logger.NewNopLogger(), producer, "", 2, 0)

	hasMore, err := worker.processBatch(context.Background())
	require.NoError(t, err)
	assert.False(t, hasMore)
	assert.Equal(t, 2, producer.calls)
	assert.Empty(t, repo.processed)
}

func TestOutboxWorker_DrainStopsOnRepoError(t *testing.T) {
	repo := &memOutbox{fetchErr: errors.New("db is down")}
	worker := NewOutboxWorker(repo, logger.NewNopLogger(), &failingProducer{}, "", 0, 0)

	_, err := worker.processBatch(context.Background())
	require.Error(t, err)

	worker.drain(context.Background())
	assert.Equal(t, defaultBatchSize, worker.batchSize)
}

func TestOutboxWorker_StopIsIdempotent(t *testing.T) {
	worker := NewOutboxWorker(&memOutbox{}, logger.NewNopLogger(), &failingProducer{}, "", 1, 0)
	worker.Stop()
	worker.Stop()
}

// listenConn отдаёт заранее заданные уведомления, затем ждёт отмены контекста.
type listenConn struct {
	notifs  []*pgconn.Notification
	waiting chan struct{}
	once    sync.Once
	closed  atomic.Bool
}

func (c *listenConn) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	if len(c.notifs) > 0 {
		n := c.notifs[0]
		c.notifs = c.notifs[1:]
		return n, nil
	}
	c.once.Do(func() { close(c.waiting) })
	<-ctx.Done()
	return nil, ctx.Err()
}

func (c *listenConn) Close(context.Context) error {
	c.closed.Store(true)
	return nil
}

func startListener(t *testing.T, worker *OutboxWorker) <-chan struct{} {
	t.Helper()

	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.listenOutboxNotifications(context.Background())
	}()
	return done
}

func waitClosed(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("%s did not happen in time", what)
	}
}

func TestOutboxWorker_ListenerRetriesInitialConnect(t *testing.T) {
	conn := &listenConn{waiting: make(chan struct{})}
	var dials atomic.Int32

	worker := NewOutboxWorker(&memOutbox{}, logger.NewNopLogger(), &failingProducer{}, "", 1, 0)
	worker.reconnectDelay = time.Millisecond
	worker.dial = func(context.Context) (notificationConn, error) {
		if dials.Add(1) == 1 {
			return nil, errors.New("connection refused")
		}
		return conn, nil
	}

	done := startListener(t, worker)
	waitClosed(t, conn.waiting, "subscription after reconnect")
	assert.Equal(t, int32(2), dials.Load())

	// Stop прерывает ожидание уведомления, не дожидаясь таймаута LISTEN.
	worker.Stop()
	waitClosed(t, done, "listener shutdown")
	assert.True(t, conn.closed.Load())
}

func TestOutboxWorker_ListenerStopsWhileReconnecting(t *testing.T) {
	worker := NewOutboxWorker(&memOutbox{}, logger.NewNopLogger(), &failingProducer{}, "", 1, 0)
	worker.reconnectDelay = time.Hour
	worker.dial = func(context.Context) (notificationConn, error) {
		return nil, errors.New("connection refused")
	}

	done := startListener(t, worker)
	worker.Stop()
	waitClosed(t, done, "listener shutdown")
}

func TestOutboxWorker_NotificationDrainsOutbox(t *testing.T) {
	repo := &memOutbox{pending: outboxEvents(3)}
	w := &captureWriter{}
	producer := newProducer(w, logger.NewNopLogger(), &cfg.KafkaCfg{})
	conn := &listenConn{
		notifs:  []*pgconn.Notification{{Channel: "other"}, {Channel: pgdb.OutboxChannel}},
		waiting: make(chan struct{}),
	}

	worker := NewOutboxWorker(repo, logger.NewNopLogger(), producer, "", 2, 0)
	worker.dial = func(context.Context) (notificationConn, error) { return conn, nil }

	done := startListener(t, worker)
	waitClosed(t, conn.waiting, "drain after notification")

	assert.Equal(t, []int64{1, 2, 3}, repo.processed)
	assert.Len(t, w.msgs, 3)

	worker.Stop()
	waitClosed(t, done, "listener shutdown")
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, isRetryableError(errors.New("read: Connection Reset by peer")))
	assert.False(t, isRetryableError(errors.New("message too large")))
	assert.False(t, isRetryableError(nil))
}
