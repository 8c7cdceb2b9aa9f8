package etims

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/Checker-Finance/etims-adapter/internal/metrics"
	"github.com/Checker-Finance/etims-adapter/pkg/model"
	"github.com/Checker-Finance/etims-adapter/pkg/validation"
)

// EventSink receives submission events after successful writes to eTims.
type EventSink interface {
	Publish(ctx context.Context, env *model.Envelope) error
}

// LookupCache stores reference-data responses keyed by scope, endpoint and
// the validated request body. Invalidate drops every entry of scope.
type LookupCache interface {
	Get(ctx context.Context, scope, endpoint string, request []byte) (json.RawMessage, bool, error)
	Set(ctx context.Context, scope, endpoint string, request []byte, data json.RawMessage) error
	Invalidate(ctx context.Context, scope string) (int, error)
}

type correlationKey struct{}

// ContextWithCorrelationID tags ctx so events emitted under it carry id as
// their correlation id.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

func correlationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// ServiceOption configures an SDK.
type ServiceOption func(*SDK)

// WithEventSink publishes submission events to sink.
func WithEventSink(sink EventSink) ServiceOption {
	return func(s *SDK) { s.events = sink }
}

// WithLookupCache serves cacheable lookups through cache.
func WithLookupCache(cache LookupCache) ServiceOption {
	return func(s *SDK) { s.cache = cache }
}

// WithServiceLogger sets the logger used by the services.
func WithServiceLogger(l *zap.Logger) ServiceOption {
	return func(s *SDK) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSource sets the source name stamped on published events.
func WithSource(source string) ServiceOption {
	return func(s *SDK) { s.source = source }
}

// SDK groups the resource services over one Client.
type SDK struct {
	client *Client
	logger *zap.Logger
	events EventSink
	cache  LookupCache
	source string

	Auth           *Auth
	Initialization *Initialization
	BasicData      *BasicData
	Items          *Items
	Sales          *Sales
	Stock          *Stock
	Purchase       *Purchase
	Imports        *Imports
}

// New builds the services over client.
func New(client *Client, opts ...ServiceOption) *SDK {
	s := &SDK{
		client: client,
		logger: zap.NewNop(),
		source: "etims-adapter",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Auth = &Auth{sdk: s}
	s.Initialization = &Initialization{sdk: s}
	s.BasicData = &BasicData{sdk: s}
	s.Items = &Items{sdk: s}
	s.Sales = &Sales{sdk: s}
	s.Stock = &Stock{sdk: s}
	s.Purchase = &Purchase{sdk: s}
	s.Imports = &Imports{sdk: s}
	return s
}

// Client returns the underlying token-cached client.
func (s *SDK) Client() *Client { return s.client }

// Invoke runs op with req: validate, shape scope headers, post, emit.
// req may be a typed request, a decoded JSON object or raw JSON bytes.
func (s *SDK) Invoke(ctx context.Context, op Operation, req any) (*Response, error) {
	s.logger.Info("etims."+op.Name, zap.String("endpoint", op.Endpoint))

	doc, err := validation.ToDocument(req)
	if err != nil {
		return nil, s.fail(op, &ValidationError{
			Message: "Validation failed",
			Errors:  []FieldError{{Field: "body", Message: err.Error()}},
		})
	}

	cleaned, fieldErrs := op.Schema.Validate(doc)
	if len(fieldErrs) > 0 {
		return nil, s.fail(op, &ValidationError{Message: "Validation failed", Errors: fieldErrs})
	}

	body, err := json.Marshal(cleaned)
	if err != nil {
		return nil, s.fail(op, fmt.Errorf("encode %s request: %w", op.Name, err))
	}

	var headers map[string]string
	if op.Scoped {
		headers = scopeHeaders(cleaned, doc)
	}

	if op.Cacheable && s.cache != nil {
		if data, ok := s.cachedLookup(ctx, op, body); ok {
			return &Response{Success: true, Data: data}, nil
		}
	}

	data, err := s.client.Post(ctx, op.Endpoint, json.RawMessage(body), headers)
	if err != nil {
		return nil, s.fail(op, err)
	}

	if op.Cacheable && s.cache != nil {
		if err := s.cache.Set(ctx, s.scope(), op.Endpoint, body, data); err != nil {
			metrics.IncLookupCache(op.Endpoint, "error")
			s.logger.Warn("etims.lookup_cache.set_failed", zap.String("endpoint", op.Endpoint), zap.Error(err))
		}
	}
	if op.InvalidatesLookups && s.cache != nil {
		s.invalidateLookups(ctx, op)
	}
	if op.Event != "" {
		s.emit(ctx, op, cleaned, body, data)
	}

	return &Response{Success: true, Data: data}, nil
}

func (s *SDK) fail(op Operation, err error) error {
	metrics.IncOperationError(op.Name, errorKind(err))
	s.logger.Error("etims."+op.Name+"_failed", zap.Error(err))
	return err
}

func (s *SDK) cachedLookup(ctx context.Context, op Operation, body []byte) (json.RawMessage, bool) {
	data, ok, err := s.cache.Get(ctx, s.scope(), op.Endpoint, body)
	switch {
	case err != nil:
		metrics.IncLookupCache(op.Endpoint, "error")
		s.logger.Warn("etims.lookup_cache.get_failed", zap.String("endpoint", op.Endpoint), zap.Error(err))
		return nil, false
	case !ok:
		metrics.IncLookupCache(op.Endpoint, "miss")
		return nil, false
	}
	metrics.IncLookupCache(op.Endpoint, "hit")
	return data, true
}

// invalidateLookups drops the scope's cached lookups after a write. Failures
// are logged: entries still expire with their TTL.
func (s *SDK) invalidateLookups(ctx context.Context, op Operation) {
	n, err := s.cache.Invalidate(ctx, s.scope())
	if err != nil {
		metrics.IncLookupCache(op.Endpoint, "error")
		s.logger.Warn("etims.lookup_cache.invalidate_failed", zap.String("endpoint", op.Endpoint), zap.Error(err))
		return
	}
	metrics.IncLookupCache(op.Endpoint, "invalidated")
	s.logger.Debug("etims.lookup_cache.invalidated", zap.String("operation", op.Name), zap.Int("keys", n))
}

// scope keys cached lookups by the integrator whose token fetched them.
func (s *SDK) scope() string {
	return s.client.Credentials().Username
}

// emit publishes a submission event. Failures are logged, never returned:
// the submission has already been accepted by eTims.
func (s *SDK) emit(ctx context.Context, op Operation, cleaned map[string]any, request, response json.RawMessage) {
	if s.events == nil {
		return
	}
	payload, err := json.Marshal(model.SubmissionPayload{Request: request, Response: response})
	if err != nil {
		s.logger.Warn("etims.event.marshal_failed", zap.String("event_type", op.Event), zap.Error(err))
		return
	}
	tin, _ := cleaned["tin"].(string)
	bhfID, _ := cleaned["bhfId"].(string)
	env := model.NewEnvelope(s.source, EventTopic(op.Event), op.Event, tin, bhfID, payload)
	if id := correlationID(ctx); id != "" {
		env.CorrelationID = id
	}
	if err := s.events.Publish(ctx, env); err != nil {
		s.logger.Warn("etims.event.publish_failed",
			zap.String("event_type", op.Event),
			zap.String("tin", tin),
			zap.Error(err))
	}
}

// scopeHeaders returns the tin/bhfId/cmcKey headers of a scoped call.
// cmcKey is not part of any schema, so it is read from the raw request.
func scopeHeaders(cleaned, raw map[string]any) map[string]string {
	h := map[string]string{}
	if tin, ok := cleaned["tin"].(string); ok {
		h[HeaderTIN] = tin
	}
	if bhf, ok := cleaned["bhfId"].(string); ok {
		h[HeaderBranchID] = bhf
	}
	if key, ok := raw["cmcKey"].(string); ok && key != "" {
		h[HeaderCmcKey] = key
	}
	return h
}
