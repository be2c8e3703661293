package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"mentorchat/internal/logging"
	"mentorchat/internal/model"
	"mentorchat/internal/platform/rabbitmq"
)

// ReplyHandler produces the mentor's answer for one job.
type ReplyHandler interface {
	Reply(ctx context.Context, job model.ReplyJob) (*model.ChatTurn, error)
}

type MentorReplyWorker struct {
	conn        *amqp.Connection
	handler     ReplyHandler
	queueName   string
	concurrency int
	logger      *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewMentorReplyWorker(conn *amqp.Connection, handler ReplyHandler, queueName string, concurrency int, logger *slog.Logger) *MentorReplyWorker {
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &MentorReplyWorker{
		conn:        conn,
		handler:     handler,
		queueName:   queueName,
		concurrency: concurrency,
		logger:      logger.With("component", "mentor_reply_worker", "queue", queueName),
	}
}

func (w *MentorReplyWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	ch, err := w.conn.Channel()
	if err != nil {
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		return err
	}
	if err := ch.Qos(w.concurrency, 0, false); err != nil {
		_ = ch.Close()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	var consumers sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			w.consume(workerCtx, deliveries)
		}()
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		consumers.Wait()
		_ = ch.Close()
	}()

	w.logger.Info("worker started", "concurrency", w.concurrency)
	return nil
}

func (w *MentorReplyWorker) consume(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			w.handle(ctx, d)
		}
	}
}

func (w *MentorReplyWorker) handle(ctx context.Context, d amqp.Delivery) {
	if err := w.process(ctx, d.Body); err != nil {
		w.logger.Error("mentor reply failed", "error", err)
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

// process is the delivery-independent part of handle.
func (w *MentorReplyWorker) process(ctx context.Context, body []byte) error {
	var job model.ReplyJob
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("decode reply job failed: %w", err)
	}
	if job.UserID == "" {
		return fmt.Errorf("decode reply job failed: missing user_id")
	}

	jobCtx := logging.WithUserID(ctx, job.UserID)
	turn, err := w.handler.Reply(jobCtx, job)
	if err != nil {
		return fmt.Errorf("reply to turn %s: %w", job.TurnID, err)
	}
	if turn != nil {
		logging.FromContext(jobCtx, w.logger).Info("mentor reply saved", "turn_id", job.TurnID, "reply_id", turn.ID)
	}
	return nil
}

func (w *MentorReplyWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
