package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// State is the lifecycle state of a Bridge.
type State string

// Bridge states. Terminated and Unavailable are final.
const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateReady         State = "ready"
	StateTerminated    State = "terminated"
	StateUnavailable   State = "unavailable"
)

// DefaultInitTimeout bounds the wait for the worker's init acknowledgement.
const DefaultInitTimeout = 5 * time.Second

// ErrTerminated is returned by Submit after Close.
var ErrTerminated = errors.New("compute bridge terminated")

// HandlerError is a request the worker answered with the error envelope.
type HandlerError struct {
	OriginalType MessageType
	Message      string
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("worker %s: %s", e.OriginalType, e.Message)
}

// Result is the answer to a submitted request, passed to its Handler.
type Result struct {
	Type MessageType
	Gen  uint64
	Data json.RawMessage
	// Err is a *HandlerError when the worker could not handle the request.
	Err error
	// Fallback is set when the request ran on the submitting goroutine.
	Fallback bool
}

// Decode unmarshals the response data into v.
func (r Result) Decode(v any) error {
	if r.Err != nil {
		return r.Err
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("decode %s result: %w", r.Type, err)
	}
	return nil
}

// Handler receives the result of the newest request of its type. It runs on
// the bridge's receive goroutine, or on the submitting goroutine when the
// bridge is executing requests synchronously.
type Handler func(Result)

// Ticket identifies a submitted request.
type Ticket struct {
	Type MessageType
	Gen  uint64
}

// Stats counts bridge traffic.
type Stats struct {
	Sent      uint64 `json:"sent"`
	Delivered uint64 `json:"delivered"`
	Stale     uint64 `json:"stale"`
	Faults    uint64 `json:"faults"`
	Fallbacks uint64 `json:"fallbacks"`
}

// Options configures a Bridge.
type Options struct {
	// Spawner starts the worker. Nil means no worker: every request runs
	// synchronously.
	Spawner Spawner
	// InitTimeout defaults to DefaultInitTimeout.
	InitTimeout time.Duration
	// OnStateChange is called after every transition, outside the bridge lock.
	OnStateChange func(from, to State)
	Logger        *slog.Logger
}

type pending struct {
	req     Request
	handler Handler
}

// Bridge submits compute requests to a worker and delivers only the newest
// response per request type. When no worker can be started it runs requests
// synchronously on the caller's goroutine with the same handlers.
type Bridge struct {
	opts   Options
	logger *slog.Logger
	local  *Worker

	mu        sync.Mutex
	state     State
	transport Transport
	gens      map[MessageType]uint64
	pending   map[MessageType]pending
	initTimer *time.Timer
	settled   chan struct{}
	isSettled bool
	stats     Stats
}

// New creates a bridge in the uninitialized state.
func New(opts Options) *Bridge {
	if opts.InitTimeout <= 0 {
		opts.InitTimeout = DefaultInitTimeout
	}
	logger := loggerOr(opts.Logger)
	return &Bridge{
		opts:    opts,
		logger:  logger,
		local:   NewWorker(logger),
		state:   StateUninitialized,
		gens:    make(map[MessageType]uint64),
		pending: make(map[MessageType]pending),
		settled: make(chan struct{}),
	}
}

// State returns the current state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats returns a copy of the traffic counters.
func (b *Bridge) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// Start spawns the worker and sends init. A worker that cannot be spawned,
// or that does not acknowledge init within the timeout, leaves the bridge
// unavailable; that is logged, not returned. Start may be called once.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.state != StateUninitialized {
		state := b.state
		b.mu.Unlock()
		return fmt.Errorf("bridge already started (state %s)", state)
	}
	notify := b.setStateLocked(StateInitializing)
	b.mu.Unlock()
	notify()

	if b.opts.Spawner == nil {
		b.logger.Info("compute worker disabled, running synchronously")
		b.becomeUnavailable()
		return nil
	}

	tr, err := b.opts.Spawner.Spawn(ctx)
	if err != nil {
		b.logger.Warn("compute worker unavailable, running synchronously", "error", err)
		b.becomeUnavailable()
		return nil
	}

	b.mu.Lock()
	if b.state != StateInitializing {
		// Closed while spawning.
		b.mu.Unlock()
		_ = tr.Close()
		return nil
	}
	b.transport = tr
	b.gens[TypeInit]++
	gen := b.gens[TypeInit]
	b.initTimer = time.AfterFunc(b.opts.InitTimeout, func() { b.initTimedOut(gen) })
	queued := make([]Request, 0, len(b.pending))
	for _, p := range b.pending {
		queued = append(queued, p.req)
	}
	b.mu.Unlock()

	go b.listen(tr)

	req, _ := NewRequest(TypeInit, gen, InitPayload{Initialized: true})
	for _, r := range append([]Request{req}, queued...) {
		if err := b.send(tr, r); err != nil {
			b.logger.Warn("compute worker send failed, running synchronously", "type", r.Type, "error", err)
			b.becomeUnavailable()
			break
		}
	}
	return nil
}

// WaitReady blocks until the bridge has left the initializing state and
// returns the state it settled in.
func (b *Bridge) WaitReady(ctx context.Context) (State, error) {
	b.mu.Lock()
	settled := b.settled
	b.mu.Unlock()

	select {
	case <-settled:
		return b.State(), nil
	case <-ctx.Done():
		return b.State(), ctx.Err()
	}
}

// Submit sends a request of the given type and returns its ticket. Any
// earlier request of the same type becomes stale: its response, whenever it
// arrives, is dropped. Before Start and when unavailable the request runs
// synchronously and h is called before Submit returns.
func (b *Bridge) Submit(typ MessageType, payload any, h Handler) (Ticket, error) {
	b.mu.Lock()
	if b.state == StateTerminated {
		b.mu.Unlock()
		return Ticket{}, ErrTerminated
	}

	b.gens[typ]++
	gen := b.gens[typ]
	req, err := NewRequest(typ, gen, payload)
	if err != nil {
		b.mu.Unlock()
		return Ticket{}, err
	}
	ticket := Ticket{Type: typ, Gen: gen}

	if b.state == StateUninitialized || b.state == StateUnavailable {
		b.mu.Unlock()
		b.runLocal(req, h)
		return ticket, nil
	}

	b.pending[typ] = pending{req: req, handler: h}
	tr := b.transport
	b.mu.Unlock()

	if tr == nil {
		// Still spawning; Start sends it once the worker is up.
		return ticket, nil
	}
	if err := b.send(tr, req); err != nil {
		b.logger.Warn("compute worker send failed, running synchronously", "type", typ, "error", err)
		b.becomeUnavailable()
	}
	return ticket, nil
}

// Supersede marks every outstanding request of the given types as stale.
func (b *Bridge) Supersede(types ...MessageType) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range types {
		b.gens[t]++
		delete(b.pending, t)
	}
}

// Close terminates the worker. Responses still in flight are ignored and
// later Submits fail with ErrTerminated.
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.state == StateTerminated {
		b.mu.Unlock()
		return nil
	}
	tr := b.transport
	b.transport = nil
	b.pending = make(map[MessageType]pending)
	if b.initTimer != nil {
		b.initTimer.Stop()
	}
	notify := b.setStateLocked(StateTerminated)
	b.mu.Unlock()

	notify()
	if tr != nil {
		return tr.Close()
	}
	return nil
}

func (b *Bridge) send(tr Transport, req Request) error {
	if tr == nil {
		return ErrTransportClosed
	}
	msg, err := Marshal(req)
	if err != nil {
		return err
	}
	if err := tr.Send(msg); err != nil {
		return err
	}
	b.mu.Lock()
	b.stats.Sent++
	b.mu.Unlock()
	return nil
}

// listen consumes responses until the transport closes.
func (b *Bridge) listen(tr Transport) {
	for msg := range tr.Recv() {
		resp, err := DecodeResponse(msg)
		if err != nil {
			b.logger.Warn("dropping undecodable worker response", "error", err)
			continue
		}
		b.handleResponse(resp)
	}

	switch b.State() {
	case StateInitializing, StateReady:
		b.logger.Warn("compute worker exited, running synchronously")
		b.becomeUnavailable()
	}
}

func (b *Bridge) handleResponse(resp Response) {
	typ := resp.Type
	var herr error
	if resp.Type == TypeError {
		var ed ErrorData
		if err := json.Unmarshal(resp.Data, &ed); err != nil {
			b.logger.Warn("dropping malformed error envelope", "error", err)
			return
		}
		typ = ed.OriginalType
		herr = &HandlerError{OriginalType: ed.OriginalType, Message: ed.Error}
	}

	if typ == TypeInit {
		b.handleInitAck(resp.Gen, herr)
		return
	}

	b.mu.Lock()
	if b.state == StateTerminated {
		b.mu.Unlock()
		return
	}
	p, ok := b.pending[typ]
	if !ok || p.req.Gen != resp.Gen || b.gens[typ] != resp.Gen {
		b.stats.Stale++
		latest := b.gens[typ]
		b.mu.Unlock()
		b.logger.Debug("dropping stale response", "type", typ, "gen", resp.Gen, "latest", latest)
		return
	}
	delete(b.pending, typ)
	if herr != nil {
		b.stats.Faults++
	} else {
		b.stats.Delivered++
	}
	b.mu.Unlock()

	if herr != nil {
		b.logger.Warn("worker handler failed", "type", typ, "error", herr)
	}
	if p.handler != nil {
		p.handler(Result{Type: typ, Gen: resp.Gen, Data: resp.Data, Err: herr})
	}
}

func (b *Bridge) handleInitAck(gen uint64, herr error) {
	b.mu.Lock()
	if b.state != StateInitializing || b.gens[TypeInit] != gen {
		b.mu.Unlock()
		return
	}
	if b.initTimer != nil {
		b.initTimer.Stop()
	}
	if herr != nil {
		b.mu.Unlock()
		b.logger.Warn("compute worker rejected init, running synchronously", "error", herr)
		b.becomeUnavailable()
		return
	}
	notify := b.setStateLocked(StateReady)
	b.mu.Unlock()
	notify()
}

func (b *Bridge) initTimedOut(gen uint64) {
	b.mu.Lock()
	waiting := b.state == StateInitializing && b.gens[TypeInit] == gen
	b.mu.Unlock()
	if waiting {
		b.logger.Warn("compute worker did not acknowledge init, running synchronously",
			"timeout", b.opts.InitTimeout)
		b.becomeUnavailable()
	}
}

// becomeUnavailable moves to the unavailable state, stops the worker, and
// runs every outstanding request synchronously so none is lost.
func (b *Bridge) becomeUnavailable() {
	b.mu.Lock()
	if b.state == StateTerminated || b.state == StateUnavailable {
		b.mu.Unlock()
		return
	}
	tr := b.transport
	b.transport = nil
	outstanding := b.pending
	b.pending = make(map[MessageType]pending)
	if b.initTimer != nil {
		b.initTimer.Stop()
	}
	notify := b.setStateLocked(StateUnavailable)
	b.mu.Unlock()

	notify()
	if tr != nil {
		_ = tr.Close()
	}
	for _, p := range outstanding {
		b.runLocal(p.req, p.handler)
	}
}

// runLocal executes req with the bridge's own worker and delivers the result
// unless a newer request of the same type was submitted meanwhile.
func (b *Bridge) runLocal(req Request, h Handler) {
	resp := b.local.Handle(req)

	var herr error
	if resp.Type == TypeError {
		var ed ErrorData
		_ = json.Unmarshal(resp.Data, &ed)
		herr = &HandlerError{OriginalType: req.Type, Message: ed.Error}
	}

	b.mu.Lock()
	b.stats.Fallbacks++
	if b.state == StateTerminated || b.gens[req.Type] != req.Gen {
		b.stats.Stale++
		b.mu.Unlock()
		return
	}
	if herr != nil {
		b.stats.Faults++
	} else {
		b.stats.Delivered++
	}
	b.mu.Unlock()

	if h != nil {
		h(Result{Type: req.Type, Gen: req.Gen, Data: resp.Data, Err: herr, Fallback: true})
	}
}

// setStateLocked moves to state to unless the bridge is already in a final
// state. It must be called with b.mu held and returns the notification to
// run after unlocking.
func (b *Bridge) setStateLocked(to State) func() {
	from := b.state
	switch {
	case from == to,
		from == StateTerminated,
		from == StateUnavailable && to != StateTerminated:
		return func() {}
	}

	b.state = to
	if to != StateInitializing && !b.isSettled {
		close(b.settled)
		b.isSettled = true
	}

	return func() {
		b.logger.Debug("compute bridge state changed", "from", from, "to", to)
		if b.opts.OnStateChange != nil {
			b.opts.OnStateChange(from, to)
		}
	}
}
