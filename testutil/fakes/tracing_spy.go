package fakes

import (
	"context"
	"sync"

	"github.com/booklend/library-services-go/observability"
)

// SpanRecord is one captured span with its lifecycle attributes.
type SpanRecord struct {
	Name        string
	StartAttrs  map[string]string
	Status      string
	FinishAttrs map[string]string
	Finished    bool
}

// TracingSpy captures spans for assertions.
type TracingSpy struct {
	mu    sync.Mutex
	spans []*SpanRecord
}

// NewTracingSpy creates an empty tracing spy.
func NewTracingSpy() *TracingSpy {
	return &TracingSpy{}
}

// StartSpan records a new span and returns a handle bound to it.
func (s *TracingSpy) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, observability.SpanContext) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := &SpanRecord{Name: name, StartAttrs: attrs}
	s.spans = append(s.spans, record)

	return ctx, &spanHandle{record: record}
}

// FinishSpan marks the span finished with its final status and attributes.
func (s *TracingSpy) FinishSpan(spanCtx observability.SpanContext, status string, attrs map[string]string) {
	handle, ok := spanCtx.(*spanHandle)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	handle.record.Status = status
	handle.record.FinishAttrs = attrs
	handle.record.Finished = true
}

// Spans returns a snapshot of all captured spans.
func (s *TracingSpy) Spans() []SpanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	spans := make([]SpanRecord, 0, len(s.spans))
	for _, record := range s.spans {
		spans = append(spans, *record)
	}

	return spans
}

type spanHandle struct {
	record *SpanRecord
}

func (h *spanHandle) SetStatus(status string) {
	h.record.Status = status
}

func (h *spanHandle) AddAttribute(key, value string) {
	if h.record.FinishAttrs == nil {
		h.record.FinishAttrs = make(map[string]string)
	}

	h.record.FinishAttrs[key] = value
}

var _ observability.TracingCollector = (*TracingSpy)(nil)
