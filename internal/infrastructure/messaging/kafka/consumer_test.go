package kafka

import (
	"context"
	"encoding/json"
	stdliberrors "errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuriwon/yakgwan/internal/config"
	"github.com/nuriwon/yakgwan/internal/domain/policy"
	"github.com/nuriwon/yakgwan/internal/infrastructure/monitoring/logging"
	"github.com/nuriwon/yakgwan/pkg/errors"
)

type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	fetchErr  error
	committed []kafka.Message
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		if r.fetchErr != nil {
			return kafka.Message{}, r.fetchErr
		}
		return kafka.Message{}, io.EOF
	}
	msg := r.messages[0]
	r.messages = r.messages[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) committedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

type fakeWriter struct {
	mu      sync.Mutex
	written []kafka.Message
	closed  bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *fakeWriter) writtenCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.written)
}

func learnMessage(t *testing.T, req LearnRequest) kafka.Message {
	t.Helper()
	raw, err := json.Marshal(req)
	require.NoError(t, err)
	return kafka.Message{Value: raw}
}

func runConsumer(t *testing.T, reader *fakeReader, writer *fakeWriter, handler Handler) {
	t.Helper()
	c := newConsumer(reader, writer, config.WorkerConfig{
		Concurrency:    2,
		HandlerTimeout: time.Second,
	}, handler, logging.NewNopLogger())
	require.NoError(t, c.Run(context.Background()))
}

func TestConsumerDeliversDocuments(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		learnMessage(t, LearnRequest{ProductID: "prod-1", Title: "암보험", Text: "제1조 목적"}),
		learnMessage(t, LearnRequest{DocumentID: "doc-42", Text: "제2조 정의"}),
	}}
	writer := &fakeWriter{}

	var mu sync.Mutex
	var handled []policy.Document
	runConsumer(t, reader, writer, func(ctx context.Context, doc policy.Document) error {
		mu.Lock()
		handled = append(handled, doc)
		mu.Unlock()
		return nil
	})

	require.Len(t, handled, 2)
	assert.Equal(t, 2, reader.committedCount())
	assert.Zero(t, writer.writtenCount())
	assert.True(t, reader.closed)
	assert.True(t, writer.closed)

	ids := map[string]bool{}
	for _, d := range handled {
		ids[d.ID] = true
	}
	assert.True(t, ids["doc-42"], "explicit document id must be preserved")
}

func TestConsumerDeadLettersUndecodable(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		{Value: []byte("{broken")},
	}}
	writer := &fakeWriter{}

	runConsumer(t, reader, writer, func(ctx context.Context, doc policy.Document) error {
		t.Fatal("handler must not see undecodable messages")
		return nil
	})

	assert.Equal(t, 1, writer.writtenCount())
	assert.Equal(t, 1, reader.committedCount(), "poison message still commits")
}

func TestConsumerDeadLettersHandlerFailure(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		learnMessage(t, LearnRequest{Text: "제1조 목적"}),
	}}
	writer := &fakeWriter{}

	runConsumer(t, reader, writer, func(ctx context.Context, doc policy.Document) error {
		return errors.New(errors.ErrCodeDocumentFailed, "scripted failure")
	})

	require.Equal(t, 1, writer.writtenCount())
	assert.Equal(t, 1, reader.committedCount())

	writer.mu.Lock()
	dead := writer.written[0]
	writer.mu.Unlock()
	found := false
	for _, h := range dead.Headers {
		if h.Key == "x-error" {
			found = true
		}
	}
	assert.True(t, found, "dead letter must carry the failure reason")
}

func TestConsumerSurfacesBrokerFailure(t *testing.T) {
	brokerDown := stdliberrors.New("dial tcp: connection refused")
	reader := &fakeReader{
		messages: []kafka.Message{
			learnMessage(t, LearnRequest{Text: "제1조 목적"}),
		},
		fetchErr: brokerDown,
	}
	writer := &fakeWriter{}

	var handled int
	c := newConsumer(reader, writer, config.WorkerConfig{Concurrency: 1}, func(ctx context.Context, doc policy.Document) error {
		handled++
		return nil
	}, logging.NewNopLogger())

	err := c.Run(context.Background())
	require.Error(t, err, "a broker failure must not look like a clean shutdown")
	assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))
	assert.True(t, stdliberrors.Is(err, brokerDown))

	assert.Equal(t, 1, handled, "messages fetched before the failure still run")
	assert.True(t, reader.closed)
	assert.True(t, writer.closed)
}

func TestConsumerCleanShutdownOnClosedReader(t *testing.T) {
	reader := &fakeReader{}
	writer := &fakeWriter{}

	c := newConsumer(reader, writer, config.WorkerConfig{Concurrency: 1}, func(ctx context.Context, doc policy.Document) error {
		return nil
	}, logging.NewNopLogger())
	require.NoError(t, c.Run(context.Background()), "io.EOF from a closed reader is a clean stop")
}

func TestDecodeLearnRequest(t *testing.T) {
	doc, err := DecodeLearnRequest([]byte(`{"product_id":"p1","title":"암보험","text":"제1조"}`))
	require.NoError(t, err)
	assert.Equal(t, "p1", doc.ProductID)
	assert.NotEmpty(t, doc.ID)

	_, err = DecodeLearnRequest([]byte(`{"product_id":"p1"}`))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeParseEmpty))

	_, err = DecodeLearnRequest([]byte("not json"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSerialization))
}
