package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/goccy/go-json"

	"github.com/npratt/vtree/internal/search"
	"github.com/npratt/vtree/internal/tree"
	"github.com/npratt/vtree/internal/view"
)

// ErrUnknownType is reported for requests with no registered handler.
var ErrUnknownType = errors.New("unknown message type")

// HandlerFunc computes the response data for one request payload.
type HandlerFunc func(data json.RawMessage) (any, error)

// Worker answers protocol requests. It holds no state between requests, so
// the same Worker backs the worker goroutine, the worker process, and the
// synchronous fallback.
type Worker struct {
	handlers map[MessageType]HandlerFunc
	logger   *slog.Logger
}

// NewWorker returns a worker with the init, flatten, calculate, scroll, and
// search handlers registered.
func NewWorker(logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Worker{
		handlers: make(map[MessageType]HandlerFunc),
		logger:   logger,
	}
	w.Register(TypeInit, handleInit)
	w.Register(TypeFlatten, handleFlatten)
	w.Register(TypeCalculate, handleCalculate)
	w.Register(TypeScroll, handleScroll)
	w.Register(TypeSearch, handleSearch)
	return w
}

// Register installs or replaces the handler for typ.
func (w *Worker) Register(typ MessageType, fn HandlerFunc) {
	w.handlers[typ] = fn
}

// Handle runs the handler for req. Handler errors and panics become a
// TypeError response naming the request type; Handle itself never fails.
func (w *Worker) Handle(req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("worker handler panic",
				"type", req.Type,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			resp = errorResponse(req, fmt.Errorf("panic: %v", r))
		}
	}()

	fn, ok := w.handlers[req.Type]
	if !ok {
		return errorResponse(req, fmt.Errorf("%w: %q", ErrUnknownType, req.Type))
	}

	result, err := fn(req.Data)
	if err != nil {
		return errorResponse(req, err)
	}

	data, err := json.Marshal(result)
	if err != nil {
		return errorResponse(req, fmt.Errorf("encode %s result: %w", req.Type, err))
	}
	return Response{Type: req.Type, Gen: req.Gen, Data: data}
}

// HandleLine decodes one request line, handles it, and encodes the reply.
// A line that is not a request is answered with an error envelope whose
// originalType is empty.
func (w *Worker) HandleLine(line []byte) []byte {
	req, err := DecodeRequest(line)
	var resp Response
	if err != nil {
		resp = errorResponse(Request{}, err)
	} else {
		resp = w.Handle(req)
	}
	out, err := Marshal(resp)
	if err != nil {
		// ErrorData always encodes; only a broken handler result reaches here.
		out, _ = Marshal(errorResponse(req, err))
	}
	return out
}

// ServeChannels handles requests from in, in order, writing replies to out.
// It returns nil when in is closed and ctx.Err() on cancellation.
func (w *Worker) ServeChannels(ctx context.Context, in <-chan []byte, out chan<- []byte) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-in:
			if !ok {
				return nil
			}
			reply := w.HandleLine(line)
			select {
			case out <- reply:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func errorResponse(req Request, err error) Response {
	data, _ := json.Marshal(ErrorData{Error: err.Error(), OriginalType: req.Type})
	return Response{Type: TypeError, Gen: req.Gen, Data: data}
}

func decodePayload(typ MessageType, data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%s: missing payload", typ)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: decode payload: %w", typ, err)
	}
	return nil
}

func handleInit(json.RawMessage) (any, error) {
	return InitPayload{Initialized: true}, nil
}

func handleFlatten(data json.RawMessage) (any, error) {
	var p FlattenPayload
	if err := decodePayload(TypeFlatten, data, &p); err != nil {
		return nil, err
	}
	flat, err := tree.FlattenChecked(p.TreeData)
	if err != nil {
		return nil, err
	}
	return tree.NewIndex(flat).Wire(), nil
}

func handleCalculate(data json.RawMessage) (any, error) {
	var p CalculatePayload
	if err := decodePayload(TypeCalculate, data, &p); err != nil {
		return nil, err
	}
	return view.ResolveFlat(p.FlattenedNodes, p.ExpandedKeysMap, p.NodeHeight), nil
}

func handleScroll(data json.RawMessage) (any, error) {
	var p ScrollPayload
	if err := decodePayload(TypeScroll, data, &p); err != nil {
		return nil, err
	}
	buffer := -1
	if p.BufferSize != nil {
		buffer = *p.BufferSize
	}
	return view.Window(p.ScrollTop, p.ViewportHeight, p.NodeHeight, p.VisibleNodes, buffer)
}

func handleSearch(data json.RawMessage) (any, error) {
	var p SearchPayload
	if err := decodePayload(TypeSearch, data, &p); err != nil {
		return nil, err
	}
	return search.Search(p.FlattenedNodes, p.SearchText), nil
}
