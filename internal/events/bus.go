package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the engine.
const (
	TypeConfigUpdated       = "fairgov.config.updated"
	TypeParticipantCreated  = "fairgov.participant.registered"
	TypePowerUpdated        = "fairgov.participant.power_updated"
	TypeBalanceUpdated      = "fairgov.participant.balance_updated"
	TypeVoteRecorded        = "fairgov.participant.voted"
	TypeRestrictionLifted   = "fairgov.participant.restriction_lifted"
	TypeCreatorRegistered   = "fairgov.creator.registered"
	TypeCreatorScored       = "fairgov.creator.scored"
	TypeCreatorFeedback     = "fairgov.creator.feedback"
	TypeAlertCreated        = "fairgov.alert.created"
	TypeAlertTransitioned   = "fairgov.alert.transitioned"
	TypePenaltyIssued       = "fairgov.penalty.issued"
	TypePenaltyTransitioned = "fairgov.penalty.transitioned"
	TypeAppealSubmitted     = "fairgov.appeal.submitted"
	TypeAppealPanel         = "fairgov.appeal.panel_assembled"
	TypeAppealVote          = "fairgov.appeal.vote_cast"
	TypeAppealResolved      = "fairgov.appeal.resolved"
	TypeAppealExpired       = "fairgov.appeal.expired"
)

// EventEmitter is the interface for publishing CloudEvents.
type EventEmitter interface {
	Emit(eventType, source, subject string, data map[string]interface{})
}

// Publisher forwards encoded events to an external channel such as Redis
// Pub/Sub.
type Publisher interface {
	Publish(ctx context.Context, channel string, message []byte) error
}

// CloudEvent is the CloudEvents 1.0 envelope for all engine events.
type CloudEvent struct {
	SpecVersion string                 `json:"specversion"`
	Type        string                 `json:"type"`
	Source      string                 `json:"source"`
	ID          string                 `json:"id"`
	Time        time.Time              `json:"time"`
	Subject     string                 `json:"subject,omitempty"`
	Data        map[string]interface{} `json:"data"`
}

// NewCloudEvent creates a CloudEvents 1.0 compliant event
func NewCloudEvent(eventType, source, subject string, data map[string]interface{}) *CloudEvent {
	return &CloudEvent{
		SpecVersion: "1.0",
		Type:        eventType,
		Source:      source,
		ID:          uuid.NewString(),
		Time:        time.Now().UTC(),
		Subject:     subject,
		Data:        data,
	}
}

// JSON serializes the event
func (ce *CloudEvent) JSON() ([]byte, error) {
	return json.Marshal(ce)
}

// SSEFormat returns the event in Server-Sent Events format
func (ce *CloudEvent) SSEFormat() ([]byte, error) {
	data, err := json.Marshal(ce)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\nid: %s\n\n", ce.Type, data, ce.ID)), nil
}

// Forwarding limits. Events beyond forwardQueueSize waiting for the
// forwarder are dropped; Close waits forwardDrainTimeout for the queue to
// empty before abandoning what is left.
const (
	forwardQueueSize    = 256
	forwardTimeout      = 2 * time.Second
	forwardDrainTimeout = 5 * time.Second
)

// EventBus is an in-process pub/sub event bus. Delivery never blocks the
// publisher: a full subscriber channel or forward queue drops the event.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan *CloudEvent // eventType -> channels
	allSubs     []chan *CloudEvent            // subscribers to all events
	logger      *slog.Logger
	bufferSize  int
	closed      bool

	forwardQ      chan *CloudEvent
	forwardDone   chan struct{}
	forwardCancel context.CancelFunc
	dropped       uint64
}

// NewEventBus creates a new event bus
func NewEventBus(logger *slog.Logger) *EventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBus{
		subscribers: make(map[string][]chan *CloudEvent),
		allSubs:     make([]chan *CloudEvent, 0),
		logger:      logger.With("component", "events"),
		bufferSize:  100,
	}
}

// ForwardTo also publishes every event, JSON encoded, to
// channelPrefix+eventType on p. Forwarding runs on its own goroutine so a
// slow publisher never delays Publish. It may be set once; Close stops it.
func (eb *EventBus) ForwardTo(p Publisher, channelPrefix string) {
	if channelPrefix == "" {
		channelPrefix = "fairgov:events:"
	}
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.closed || eb.forwardQ != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	eb.forwardQ = make(chan *CloudEvent, forwardQueueSize)
	eb.forwardDone = make(chan struct{})
	eb.forwardCancel = cancel
	go eb.forwardLoop(ctx, p, channelPrefix, eb.forwardQ, eb.forwardDone)
}

func (eb *EventBus) forwardLoop(ctx context.Context, p Publisher, prefix string, q <-chan *CloudEvent, done chan<- struct{}) {
	defer close(done)
	for event := range q {
		data, err := event.JSON()
		if err != nil {
			eb.logger.Warn("[Events] encode failed", "type", event.Type, "error", err)
			continue
		}
		pctx, cancel := context.WithTimeout(ctx, forwardTimeout)
		err = p.Publish(pctx, prefix+event.Type, data)
		cancel()
		if err != nil {
			eb.logger.Warn("[Events] forward failed", "type", event.Type, "error", err)
		}
	}
}

// Subscribe creates a channel that receives events of specific types.
// Pass empty eventTypes to receive ALL events.
func (eb *EventBus) Subscribe(eventTypes ...string) chan *CloudEvent {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan *CloudEvent, eb.bufferSize)
	if eb.closed {
		close(ch)
		return ch
	}

	if len(eventTypes) == 0 {
		eb.allSubs = append(eb.allSubs, ch)
	} else {
		for _, et := range eventTypes {
			eb.subscribers[et] = append(eb.subscribers[et], ch)
		}
	}

	return ch
}

// Unsubscribe removes a subscription channel and closes it.
func (eb *EventBus) Unsubscribe(ch chan *CloudEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	found := false
	for et, subs := range eb.subscribers {
		filtered := subs[:0]
		for _, s := range subs {
			if s == ch {
				found = true
				continue
			}
			filtered = append(filtered, s)
		}
		eb.subscribers[et] = filtered
	}

	filtered := eb.allSubs[:0]
	for _, s := range eb.allSubs {
		if s == ch {
			found = true
			continue
		}
		filtered = append(filtered, s)
	}
	eb.allSubs = filtered

	if found {
		close(ch)
	}
}

// Publish sends an event to all matching subscribers and the forwarder.
func (eb *EventBus) Publish(event *CloudEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.closed {
		return
	}

	deliver := func(ch chan *CloudEvent) {
		select {
		case ch <- event:
		default:
			eb.dropped++
		}
	}
	for _, ch := range eb.subscribers[event.Type] {
		deliver(ch)
	}
	for _, ch := range eb.allSubs {
		deliver(ch)
	}

	if eb.forwardQ != nil {
		select {
		case eb.forwardQ <- event:
		default:
			eb.dropped++
			eb.logger.Warn("[Events] forward queue full, event dropped", "type", event.Type)
		}
	}
}

// Emit is a convenience method to create and publish an event
func (eb *EventBus) Emit(eventType, source, subject string, data map[string]interface{}) {
	eb.Publish(NewCloudEvent(eventType, source, subject, data))
}

// SubscriberCount returns the total number of active subscribers
func (eb *EventBus) SubscriberCount() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	seen := make(map[chan *CloudEvent]struct{})
	for _, ch := range eb.allSubs {
		seen[ch] = struct{}{}
	}
	for _, subs := range eb.subscribers {
		for _, ch := range subs {
			seen[ch] = struct{}{}
		}
	}
	return len(seen)
}

// Dropped returns how many deliveries were skipped on full channels.
func (eb *EventBus) Dropped() uint64 {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return eb.dropped
}

// Close closes every subscriber channel and stops the forwarder once its
// queue drains. Later publishes are ignored.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	if eb.closed {
		eb.mu.Unlock()
		return
	}
	eb.closed = true

	closed := make(map[chan *CloudEvent]struct{})
	closeOnce := func(ch chan *CloudEvent) {
		if _, done := closed[ch]; done {
			return
		}
		closed[ch] = struct{}{}
		close(ch)
	}
	for _, subs := range eb.subscribers {
		for _, ch := range subs {
			closeOnce(ch)
		}
	}
	for _, ch := range eb.allSubs {
		closeOnce(ch)
	}
	eb.subscribers = make(map[string][]chan *CloudEvent)
	eb.allSubs = nil

	done, cancel := eb.forwardDone, eb.forwardCancel
	if eb.forwardQ != nil {
		close(eb.forwardQ)
	}
	eb.mu.Unlock()

	if done == nil {
		return
	}
	select {
	case <-done:
	case <-time.After(forwardDrainTimeout):
		eb.logger.Warn("[Events] forward queue not drained, abandoning")
		cancel()
		<-done
	}
	cancel()
}
