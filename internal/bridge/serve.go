package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"
)

// ServeStream answers JSON-line requests read from r, writing replies to w,
// until r reaches EOF or ctx is canceled. This is the body of the worker
// process. If r is an io.Closer it is closed on cancellation to unblock the
// pending read.
func (w *Worker) ServeStream(ctx context.Context, r io.Reader, wr io.Writer) error {
	g, gctx := errgroup.WithContext(ctx)

	if c, ok := r.(io.Closer); ok {
		stop := context.AfterFunc(gctx, func() { _ = c.Close() })
		defer stop()
	}

	in := make(chan []byte, 16)
	out := make(chan []byte, 16)

	g.Go(func() error {
		defer close(in)
		lines := NewLineReader(r)
		for {
			line, err := lines.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("read request: %w", err)
			}
			select {
			case in <- line:
			case <-gctx.Done():
				return nil
			}
		}
	})

	g.Go(func() error {
		defer close(out)
		return w.ServeChannels(gctx, in, out)
	})

	g.Go(func() error {
		lw := NewLineWriter(wr)
		for line := range out {
			if err := lw.WriteLine(line); err != nil {
				return fmt.Errorf("write response: %w", err)
			}
		}
		return nil
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}
