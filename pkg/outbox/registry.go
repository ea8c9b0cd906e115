package outbox

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
	"github.com/angelmondragon/shopfront-backend/pkg/enums"
)

type decoderFunc func(payload json.RawMessage) (interface{}, error)

type registryKey struct {
	eventType enums.OutboxEventType
	version   int
}

// Descriptor binds an event type to the topic it is published on.
type Descriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
}

// Resolved is an outbox row after its envelope and data were decoded.
type Resolved struct {
	Descriptor Descriptor
	Envelope   PayloadEnvelope
	Payload    interface{}
}

// NonRetryableError marks rows the publisher must stop retrying.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

// Registry knows how to decode every event version and where to send it.
type Registry struct {
	mtx         sync.RWMutex
	decoders    map[registryKey]decoderFunc
	descriptors map[enums.OutboxEventType]Descriptor
}

func NewRegistry() *Registry {
	return &Registry{
		decoders:    make(map[registryKey]decoderFunc),
		descriptors: make(map[enums.OutboxEventType]Descriptor),
	}
}

// NewDefaultRegistry registers the v1 order and coupon events on one topic.
func NewDefaultRegistry(topic string) (*Registry, error) {
	if topic == "" {
		return nil, fmt.Errorf("orders topic is required")
	}
	reg := NewRegistry()
	register[OrderCreatedEvent](reg, Descriptor{EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, Topic: topic})
	register[OrderStatusChangedEvent](reg, Descriptor{EventType: enums.EventOrderStatusChanged, AggregateType: enums.AggregateOrder, Topic: topic})
	register[OrderCanceledEvent](reg, Descriptor{EventType: enums.EventOrderCanceled, AggregateType: enums.AggregateOrder, Topic: topic})
	register[CouponExpiredEvent](reg, Descriptor{EventType: enums.EventCouponExpired, AggregateType: enums.AggregateCoupon, Topic: topic})
	return reg, nil
}

func register[T any](r *Registry, desc Descriptor) {
	r.Register(desc, 1, func(raw json.RawMessage) (interface{}, error) {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return &v, nil
	})
}

func (r *Registry) Register(desc Descriptor, version int, decoder decoderFunc) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.descriptors[desc.EventType] = desc
	r.decoders[registryKey{eventType: desc.EventType, version: version}] = decoder
}

func (r *Registry) Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (interface{}, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	if decoder, ok := r.decoders[registryKey{eventType: eventType, version: version}]; ok {
		return decoder(payload)
	}
	return nil, fmt.Errorf("decoder not registered for %s@v%d", eventType, version)
}

// Resolve decodes a stored row. Malformed or unknown rows come back as NonRetryableError.
func (r *Registry) Resolve(row models.OutboxEvent) (*Resolved, error) {
	r.mtx.RLock()
	desc, ok := r.descriptors[row.EventType]
	r.mtx.RUnlock()
	if !ok {
		return nil, NonRetryableError{Err: fmt.Errorf("unknown event type %q", row.EventType)}
	}
	if desc.AggregateType != row.AggregateType {
		return nil, NonRetryableError{Err: fmt.Errorf("event %s expects aggregate %s, got %s", row.EventType, desc.AggregateType, row.AggregateType)}
	}
	env, err := DecodeEnvelope(row.Payload)
	if err != nil {
		return nil, NonRetryableError{Err: fmt.Errorf("decode envelope: %w", err)}
	}
	payload, err := r.Decode(row.EventType, env.Version, env.Data)
	if err != nil {
		return nil, NonRetryableError{Err: err}
	}
	return &Resolved{Descriptor: desc, Envelope: env, Payload: payload}, nil
}
