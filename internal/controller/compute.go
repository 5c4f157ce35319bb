package controller

import (
	"errors"

	"github.com/npratt/vtree/internal/bridge"
	"github.com/npratt/vtree/internal/events"
)

// effects collects what a locked section decided to do, so that events are
// emitted and requests submitted after the lock is released. A request may
// run synchronously inside Submit and re-enter the controller.
type effects struct {
	events  []events.Event
	submits []submission
}

func (fx *effects) emit(e events.Event) {
	fx.events = append(fx.events, e)
}

// submission is a request for the bridge. apply runs with c.mu held, only
// for the newest request of its type.
type submission struct {
	typ     bridge.MessageType
	seq     uint64
	payload any
	apply   func(bridge.Result, *effects)
	// fallback, if set, runs with c.mu held when the newest request of its
	// type fails or cannot be submitted.
	fallback func(*effects)
}

// enqueueLocked registers a request as in flight and queues it for submit.
func (c *Controller) enqueueLocked(fx *effects, typ bridge.MessageType, payload any, apply func(bridge.Result, *effects)) {
	c.enqueueFallbackLocked(fx, typ, payload, apply, nil)
}

func (c *Controller) enqueueFallbackLocked(fx *effects, typ bridge.MessageType, payload any, apply func(bridge.Result, *effects), fallback func(*effects)) {
	c.seq++
	if len(c.inflight) == 0 {
		c.idle = make(chan struct{})
	}
	c.inflight[typ] = c.seq
	fx.submits = append(fx.submits, submission{
		typ:      typ,
		seq:      c.seq,
		payload:  payload,
		apply:    apply,
		fallback: fallback,
	})
}

// finishLocked marks a request done and reports whether it was still the
// newest of its type.
func (c *Controller) finishLocked(typ bridge.MessageType, seq uint64) bool {
	if c.inflight[typ] != seq {
		return false
	}
	delete(c.inflight, typ)
	if len(c.inflight) == 0 {
		close(c.idle)
	}
	return true
}

func (c *Controller) clearInflightLocked() {
	clear(c.inflight)
	select {
	case <-c.idle:
	default:
		close(c.idle)
	}
}

// run performs collected effects. It must be called without c.mu held.
func (c *Controller) run(fx *effects) {
	for _, e := range fx.events {
		c.emit(e)
	}
	for _, s := range fx.submits {
		c.submit(s)
	}
}

func (c *Controller) submit(s submission) {
	_, err := c.bridge.Submit(s.typ, s.payload, func(r bridge.Result) {
		var fx effects
		c.mu.Lock()
		if c.finishLocked(s.typ, s.seq) {
			if r.Err != nil {
				fx.emit(computeError(r.Err))
				if s.fallback != nil {
					s.fallback(&fx)
				}
			} else {
				s.apply(r, &fx)
			}
		}
		c.mu.Unlock()
		c.run(&fx)
	})
	if err != nil {
		var fx effects
		c.mu.Lock()
		if c.finishLocked(s.typ, s.seq) && s.fallback != nil {
			s.fallback(&fx)
		}
		c.mu.Unlock()
		c.logger.Warn("compute request not submitted", "type", s.typ, "error", err)
		c.run(&fx)
	}
}

func computeError(err error) events.Event {
	var herr *bridge.HandlerError
	if errors.As(err, &herr) {
		return &events.ComputeErrorEvent{
			BaseEvent:    events.NewBridgeEvent(events.EventComputeError),
			OriginalType: string(herr.OriginalType),
			Message:      herr.Message,
		}
	}
	return &events.ComputeErrorEvent{
		BaseEvent: events.NewBridgeEvent(events.EventComputeError),
		Message:   err.Error(),
	}
}
