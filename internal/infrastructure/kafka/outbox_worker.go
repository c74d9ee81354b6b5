package kafka

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/DRSN-tech/ecofinds/internal/repository/pgdb"
	"github.com/DRSN-tech/ecofinds/internal/usecase"
	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/DRSN-tech/ecofinds/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	defaultBatchSize      = 10
	defaultReconnectDelay = 5 * time.Second
	listenWaitTimeout     = 30 * time.Second
)

// notificationConn: соединение с подпиской LISTEN, реализуется *pgx.Conn.
type notificationConn interface {
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

// OutboxWorker переносит события из таблицы outbox_events в Kafka.
// Будится по NOTIFY и дополнительно опрашивает таблицу с интервалом poll.
type OutboxWorker struct {
	repo      usecase.OutboxRepository
	logger    logger.Logger
	producer  usecase.MessageProducer
	stop      chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	dbConnStr string
	batchSize int
	poll      time.Duration

	dial           func(ctx context.Context) (notificationConn, error)
	reconnectDelay time.Duration
}

func NewOutboxWorker(
	repo usecase.OutboxRepository,
	logger logger.Logger,
	producer usecase.MessageProducer,
	dbConnStr string,
	batchSize int,
	poll time.Duration,
) *OutboxWorker {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	w := &OutboxWorker{
		repo:           repo,
		logger:         logger,
		producer:       producer,
		stop:           make(chan struct{}),
		dbConnStr:      dbConnStr,
		batchSize:      batchSize,
		poll:           poll,
		reconnectDelay: defaultReconnectDelay,
	}
	w.dial = w.dialListen

	return w
}

func (w *OutboxWorker) Start(ctx context.Context) {
	w.wg.Add(2)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()

	// Запускаем слушатель уведомлений
	go func() {
		defer w.wg.Done()
		w.listenOutboxNotifications(ctx)
	}()
}

func (w *OutboxWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	w.wg.Wait()
}

func (w *OutboxWorker) run(ctx context.Context) {
	// Обрабатываем "остатки" при старте
	w.logger.Infof("Draining pending outbox events on startup...")
	w.drain(ctx)

	if w.poll <= 0 {
		select {
		case <-ctx.Done():
		case <-w.stop:
		}
		w.logger.Infof("Outbox worker stopped")
		return
	}

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Infof("Worker stopped by context cancellation")
			return
		case <-w.stop:
			w.logger.Infof("Outbox worker stopped")
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

func (w *OutboxWorker) drain(ctx context.Context) {
	for {
		hasMore, err := w.processBatch(ctx)
		if err != nil {
			w.logger.Warnf("Batch processing failed: %v", err)
			return
		}
		if !hasMore {
			return
		}
	}
}

func (w *OutboxWorker) listenOutboxNotifications(ctx context.Context) {
	ctx, cancel := w.untilStopped(ctx)
	defer cancel()

	var conn notificationConn
	defer func() {
		if conn != nil {
			conn.Close(context.Background())
		}
	}()

	first := true
	for ctx.Err() == nil {
		if conn == nil {
			if !first && !w.sleep(ctx, w.reconnectDelay) {
				return
			}
			first = false

			c, err := w.dial(ctx)
			if err != nil {
				w.logger.Warnf("LISTEN connect failed: %v", err)
				continue
			}
			conn = c
			w.logger.Infof("Subscribed to '%s' channel", pgdb.OutboxChannel)
		}

		waitCtx, cancelWait := context.WithTimeout(ctx, listenWaitTimeout)
		notif, err := conn.WaitForNotification(waitCtx)
		cancelWait()

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			w.logger.Warnf("Connection lost: %v. Reconnecting...", err)
			conn.Close(context.Background())
			conn = nil
			continue
		}

		if notif != nil && notif.Channel == pgdb.OutboxChannel {
			w.logger.Debugf("Received outbox notification, draining outbox events")
			w.drain(ctx)
		}
	}
}

// untilStopped возвращает контекст, который отменяется и при Stop.
func (w *OutboxWorker) untilStopped(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-w.stop:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// dialListen открывает отдельное соединение и подписывается на канал outbox.
func (w *OutboxWorker) dialListen(ctx context.Context) (notificationConn, error) {
	c, err := pgx.Connect(ctx, w.dbConnStr)
	if err != nil {
		return nil, e.Wrap("failed to connect for LISTEN", err)
	}

	if _, err = c.Exec(ctx, "LISTEN "+pgdb.OutboxChannel); err != nil {
		c.Close(ctx)
		return nil, e.Wrap("failed to LISTEN", err)
	}

	return c, nil
}

// sleep ждёт d и возвращает false, если воркер остановили раньше.
func (w *OutboxWorker) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-w.stop:
		return false
	case <-t.C:
		return true
	}
}

// processBatch возвращает true, если пачка была полной и в outbox могут остаться события.
// Неотправленные события остаются в статусе processing и будут подобраны повторно.
func (w *OutboxWorker) processBatch(ctx context.Context) (bool, error) {
	events, err := w.repo.GetAndMarkAsProcessing(ctx, w.batchSize)
	if err != nil {
		return false, err
	}

	if len(events) == 0 {
		return false, nil
	}

	failed := 0
	for _, event := range events {
		if err := w.processEvent(ctx, event); err != nil {
			failed++
			w.logger.Warnf("publish outbox event %s (%s) failed: %v", event.EventID, event.EventType, err)
			continue
		}
		if err := w.repo.MarkAsProcessed(ctx, event.ID); err != nil {
			w.logger.Warnf("mark processed failed: %v", err)
		}
	}

	// Если брокер недоступен, нет смысла сразу брать следующую пачку
	if failed == len(events) {
		return false, nil
	}

	return len(events) == w.batchSize, nil
}

func (w *OutboxWorker) processEvent(ctx context.Context, event *usecase.OutboxEvent) error {
	if err := w.producer.WriteRawMessage(ctx, usecase.NewWriteRawMessageReq(event)); err != nil {
		if isRetryableError(err) {
			return e.Wrap("Temporary Kafka failure, will retry", err)
		}
		return e.Wrap("Permanent Kafka failure", err)
	}
	return nil
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	retryablePhrases := []string{
		"connection refused",
		"i/o timeout",
		"network is unreachable",
		"broker not available",
		"connection reset",
		"broken pipe",
		"no such host",
	}
	for _, phrase := range retryablePhrases {
		if strings.Contains(errStr, phrase) {
			return true
		}
	}
	return false
}
