package kafka

import (
	"context"
	stdliberrors "errors"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"

	"github.com/nuriwon/yakgwan/internal/config"
	"github.com/nuriwon/yakgwan/internal/domain/policy"
	"github.com/nuriwon/yakgwan/internal/infrastructure/monitoring/logging"
	"github.com/nuriwon/yakgwan/pkg/errors"
)

// Handler processes one decoded document.  A nil return commits the
// message; an error routes it to the dead-letter topic before committing,
// so the partition never wedges on one bad document.
type Handler func(ctx context.Context, doc policy.Document) error

// messageReader is the consumer's view of kafka.Reader, narrowed for tests.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// deadLetterWriter is the consumer's view of kafka.Writer.
type deadLetterWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer pulls learn requests off the topic and fans them out to the
// handler with bounded concurrency.
type Consumer struct {
	reader         messageReader
	dlq            deadLetterWriter
	handler        Handler
	concurrency    int
	handlerTimeout time.Duration
	logger         logging.Logger
}

// NewConsumer builds a consumer from config.
func NewConsumer(kcfg config.KafkaConfig, wcfg config.WorkerConfig, handler Handler, log logging.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        kcfg.Brokers,
		GroupID:        kcfg.GroupID,
		Topic:          kcfg.Topic,
		MinBytes:       kcfg.MinBytes,
		MaxBytes:       kcfg.MaxBytes,
		CommitInterval: kcfg.CommitInterval,
	})
	dlq := &kafka.Writer{
		Addr:     kafka.TCP(kcfg.Brokers...),
		Topic:    kcfg.DeadLetterTopic,
		Balancer: &kafka.LeastBytes{},
	}
	return newConsumer(reader, dlq, wcfg, handler, log)
}

func newConsumer(reader messageReader, dlq deadLetterWriter, wcfg config.WorkerConfig,
	handler Handler, log logging.Logger) *Consumer {
	concurrency := wcfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Consumer{
		reader:         reader,
		dlq:            dlq,
		handler:        handler,
		concurrency:    concurrency,
		handlerTimeout: wcfg.HandlerTimeout,
		logger:         log.Named("consumer"),
	}
}

// Run consumes until ctx is cancelled, then drains in-flight handlers and
// closes the reader.  The returned error is nil on clean shutdown; a broker
// failure surfaces so the worker exits non-zero instead of reporting a
// clean stop.
func (c *Consumer) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	var fetchErr error
	for {
		msg, err := c.reader.FetchMessage(gctx)
		if err != nil {
			fetchErr = err
			break
		}
		g.Go(func() error {
			c.process(gctx, msg)
			return nil
		})
	}

	_ = g.Wait()
	if err := c.reader.Close(); err != nil {
		c.logger.Warn("reader close", logging.Err(err))
	}
	if err := c.dlq.Close(); err != nil {
		c.logger.Warn("dead-letter writer close", logging.Err(err))
	}

	// io.EOF means the reader was closed, which is how shutdown looks from
	// FetchMessage's side.
	if ctx.Err() != nil || stdliberrors.Is(fetchErr, io.EOF) {
		c.logger.Info("consumer stopped")
		return nil
	}
	return errors.Wrap(fetchErr, errors.ErrCodeServiceUnavailable, "fetch message")
}

// process handles one message end to end.  Failures dead-letter the message
// and the offset is committed either way.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	doc, err := DecodeLearnRequest(msg.Value)
	if err != nil {
		c.logger.Warn("undecodable message dead-lettered",
			logging.Int64("offset", msg.Offset), logging.Err(err))
		c.deadLetter(ctx, msg, err)
		c.commit(ctx, msg)
		return
	}

	handlerCtx := ctx
	if c.handlerTimeout > 0 {
		var cancel context.CancelFunc
		handlerCtx, cancel = context.WithTimeout(ctx, c.handlerTimeout)
		defer cancel()
	}

	if err := c.handler(handlerCtx, doc); err != nil {
		if ctx.Err() != nil {
			// shutting down: leave the offset uncommitted so another
			// worker picks the document up
			return
		}
		c.logger.Error("document failed, dead-lettered",
			logging.String("document_id", doc.ID), logging.Err(err))
		c.deadLetter(ctx, msg, err)
	}
	c.commit(ctx, msg)
}

func (c *Consumer) deadLetter(ctx context.Context, msg kafka.Message, cause error) {
	dead := kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
		Headers: append(msg.Headers, kafka.Header{
			Key:   "x-error",
			Value: []byte(cause.Error()),
		}),
	}
	if err := c.dlq.WriteMessages(ctx, dead); err != nil {
		c.logger.Error("dead-letter write failed", logging.Err(err))
	}
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
		c.logger.Warn("offset commit failed",
			logging.Int64("offset", msg.Offset), logging.Err(err))
	}
}
