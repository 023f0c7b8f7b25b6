package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"mrcreams/internal/platform/kafka"
)

// Publisher records audit entries. Persistence is best-effort from the
// caller's point of view: domain flows never fail because the trail could not
// be written, but every miss is logged.
type Publisher struct {
	store   Store
	entries chan Entry
	wg      sync.WaitGroup
	logger  *slog.Logger
	async   bool

	producer *kafka.Producer
	topic    string
}

// PublisherOption configures the Publisher.
type PublisherOption func(*Publisher)

// WithAsyncBuffer enables async processing with the specified buffer size.
// Entries are queued and persisted in a background goroutine.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.entries = make(chan Entry, size)
			p.async = true
		}
	}
}

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithKafkaMirror mirrors every entry onto a compliance topic in addition to
// the database trail. Mirror failures are logged, never surfaced.
func WithKafkaMirror(producer *kafka.Producer, topic string) PublisherOption {
	return func(p *Publisher) {
		p.producer = producer
		p.topic = topic
	}
}

// NewPublisher creates a Publisher writing to the given store.
func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.async {
		p.wg.Add(1)
		go p.processEntries()
	}
	return p
}

// processEntries runs in a goroutine and persists entries from the channel.
func (p *Publisher) processEntries() {
	defer p.wg.Done()
	for entry := range p.entries {
		p.persist(context.Background(), entry)
	}
}

func (p *Publisher) persist(ctx context.Context, entry Entry) {
	if err := p.store.Append(ctx, entry); err != nil && p.logger != nil {
		p.logger.Error("failed to persist audit entry",
			"error", err,
			"action", entry.Action,
		)
	}
	p.mirror(ctx, entry)
}

func (p *Publisher) mirror(ctx context.Context, entry Entry) {
	if p.producer == nil {
		return
	}
	value, err := json.Marshal(map[string]any{
		"id":            entry.ID,
		"user_id":       entry.UserID,
		"action":        entry.Action,
		"resource_type": entry.ResourceType,
		"details":       entry.Details,
		"created_at":    entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return
	}
	var key []byte
	if entry.UserID != nil {
		key = []byte(entry.UserID.String())
	}
	if err := p.producer.Produce(ctx, &kafka.Message{
		Topic: p.topic,
		Key:   key,
		Value: value,
	}); err != nil && p.logger != nil {
		p.logger.Warn("failed to mirror audit entry to kafka",
			"error", err,
			"action", entry.Action,
		)
	}
}

// Close shuts down the async publisher and waits for pending entries to drain.
func (p *Publisher) Close() {
	if p.async && p.entries != nil {
		close(p.entries)
		p.wg.Wait()
	}
}

// Emit records an audit entry, stamping ID and timestamp when missing.
// In async mode the send never blocks; a full buffer drops the entry with a
// warning rather than stalling the request path.
func (p *Publisher) Emit(ctx context.Context, entry Entry) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if p.async {
		select {
		case p.entries <- entry:
		default:
			if p.logger != nil {
				p.logger.Warn("audit buffer full, entry dropped",
					"action", entry.Action,
				)
			}
		}
		return
	}
	p.persist(ctx, entry)
}

// ListByUser returns the audit trail for one user, newest first.
func (p *Publisher) ListByUser(ctx context.Context, userID uuid.UUID) ([]Entry, error) {
	return p.store.ListByUser(ctx, userID)
}
