package circuitbreaker

import "context"

// Publisher is the pub/sub surface the event bus forwards to.
type Publisher interface {
	Publish(ctx context.Context, channel string, message []byte) error
}

type guardedPublisher struct {
	next Publisher
	cb   *CircuitBreaker
}

// GuardPublisher routes every publish through cb. While cb is open, publishes
// fail immediately with ErrCircuitOpen.
func GuardPublisher(p Publisher, cb *CircuitBreaker) Publisher {
	return &guardedPublisher{next: p, cb: cb}
}

func (g *guardedPublisher) Publish(ctx context.Context, channel string, message []byte) error {
	return g.cb.Execute(func() error {
		return g.next.Publish(ctx, channel, message)
	})
}
