package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/goliatone/go-book-catalog/model"
	"github.com/goliatone/go-book-catalog/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/goliatone/go-book-catalog/service"

// EntityService provides the lifecycle operations shared by every entity type.
// Reads and writes go through repo, which is usually a cached repository.
type EntityService[T model.Entity[T]] struct {
	name   string
	repo   store.Repository[T]
	clock  func() time.Time
	logger *slog.Logger
	tracer trace.Tracer
}

// Option configures an EntityService.
type Option func(*options)

type options struct {
	clock  func() time.Time
	logger *slog.Logger
	tracer trace.Tracer
}

// WithClock replaces the time source. Values are converted to UTC with microsecond precision.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithLogger sets the logger used for write events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTracer sets the tracer used for operation spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// New builds a service for the entity called name.
func New[T model.Entity[T]](name string, repo store.Repository[T], opts ...Option) *EntityService[T] {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(instrumentationName)
	}

	clock := o.clock
	return &EntityService[T]{
		name:   name,
		repo:   repo,
		clock:  func() time.Time { return clock().UTC().Truncate(time.Microsecond) },
		logger: o.logger.With("entity", name),
		tracer: o.tracer,
	}
}

// Name returns the entity name used in errors and span names.
func (s *EntityService[T]) Name() string {
	return s.name
}

// GetMany returns one page of entities in ascending id order.
func (s *EntityService[T]) GetMany(ctx context.Context, page, size *int) ([]T, error) {
	return s.Find(ctx, nil, page, size)
}

// Find returns one page of the entities matching filter.
func (s *EntityService[T]) Find(ctx context.Context, filter store.Filter, page, size *int) (records []T, err error) {
	p, sz := Normalize(page, size)
	ctx, span := s.start(ctx, "Find", attribute.Int("page", p), attribute.Int("page_size", sz))
	defer func() { endSpan(span, err) }()

	limit, offset, ok := Window(p, sz)
	if !ok {
		return nil, nil
	}
	records, err = s.repo.List(ctx, store.Query{Filter: filter, Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("result.count", len(records)))
	return records, nil
}

// Count returns how many entities match filter.
func (s *EntityService[T]) Count(ctx context.Context, filter store.Filter) (n int, err error) {
	ctx, span := s.start(ctx, "Count")
	defer func() { endSpan(span, err) }()

	return s.repo.Count(ctx, filter)
}

// GetByID returns the entity with the given id or a NotFound error.
func (s *EntityService[T]) GetByID(ctx context.Context, id int64) (record T, err error) {
	ctx, span := s.start(ctx, "GetByID", attribute.Int64("entity.id", id))
	defer func() { endSpan(span, err) }()

	record, err = s.repo.GetByID(ctx, id)
	if err != nil {
		var zero T
		return zero, s.classify(err, id)
	}
	return record, nil
}

// Create stamps CreatedAt, clears any caller supplied id and persists entity.
func (s *EntityService[T]) Create(ctx context.Context, entity T) (created T, err error) {
	ctx, span := s.start(ctx, "Create")
	defer func() { endSpan(span, err) }()

	entity.MarkCreated(s.clock())
	created, err = s.repo.Create(ctx, entity)
	if err != nil {
		var zero T
		return zero, err
	}

	span.SetAttributes(attribute.Int64("entity.id", created.EntityID()))
	s.logger.DebugContext(ctx, "entity created", "id", created.EntityID())
	return created, nil
}

// Update merges patch onto a copy of original, stamps UpdatedAt and persists the result.
// original itself is never modified. The new UpdatedAt is strictly later than both
// CreatedAt and the previous UpdatedAt.
func (s *EntityService[T]) Update(ctx context.Context, patch model.Patch[T], original T) (updated T, err error) {
	id := original.EntityID()
	ctx, span := s.start(ctx, "Update", attribute.Int64("entity.id", id))
	defer func() { endSpan(span, err) }()

	next := original.Clone()
	patch.ApplyTo(next)
	next.MarkUpdated(s.nextUpdate(original))

	updated, err = s.repo.Update(ctx, next)
	if err != nil {
		var zero T
		return zero, s.classify(err, id)
	}

	s.logger.DebugContext(ctx, "entity updated", "id", id)
	return updated, nil
}

// Delete removes entity and returns its id.
func (s *EntityService[T]) Delete(ctx context.Context, entity T) (id int64, err error) {
	id = entity.EntityID()
	ctx, span := s.start(ctx, "Delete", attribute.Int64("entity.id", id))
	defer func() { endSpan(span, err) }()

	if err := s.repo.Delete(ctx, entity); err != nil {
		return 0, s.classify(err, id)
	}

	s.logger.DebugContext(ctx, "entity deleted", "id", id)
	return id, nil
}

func (s *EntityService[T]) nextUpdate(original T) time.Time {
	floor, prev := original.Timestamps()
	if prev != nil && prev.After(floor) {
		floor = *prev
	}

	at := s.clock()
	if !at.After(floor) {
		at = floor.Add(time.Microsecond)
	}
	return at
}

func (s *EntityService[T]) classify(err error, id int64) error {
	if errors.Is(err, store.ErrRecordNotFound) {
		return NotFound(s.name, id)
	}
	return err
}

func (s *EntityService[T]) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("entity.name", s.name))
	return s.tracer.Start(ctx, s.name+"."+op,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
