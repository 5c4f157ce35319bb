package bridge

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"
)

// processStopTimeout is how long Close waits for the worker process to exit
// after its stdin is closed before killing it.
const processStopTimeout = 2 * time.Second

// Process spawns a worker process that speaks the protocol on its stdin and
// stdout, typically "vtree worker". Its stderr is forwarded to the logger.
type Process struct {
	Command []string
	// Env is appended to the current environment.
	Env    []string
	Logger *slog.Logger
}

// Spawn starts the process.
func (p Process) Spawn(ctx context.Context) (Transport, error) {
	if len(p.Command) == 0 {
		return nil, errors.New("worker command is empty")
	}
	logger := loggerOr(p.Logger)

	cmd := exec.Command(p.Command[0], p.Command[1:]...)
	cmd.Env = append(os.Environ(), p.Env...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start worker %s: %w", p.Command[0], err)
	}
	logger.Debug("worker process started", "pid", cmd.Process.Pid, "command", p.Command)

	t := &processTransport{
		cmd:    cmd,
		stdin:  stdin,
		writer: NewLineWriter(stdin),
		recv:   make(chan []byte, 64),
		stop:   make(chan struct{}),
		exited: make(chan struct{}),
		logger: logger,
	}

	var pipes sync.WaitGroup
	pipes.Add(2)
	go func() {
		defer pipes.Done()
		t.readResponses(stdout)
	}()
	go func() {
		defer pipes.Done()
		forwardStderr(stderr, logger)
	}()
	go func() {
		pipes.Wait()
		t.waitErr = cmd.Wait()
		close(t.recv)
		close(t.exited)
		logger.Debug("worker process exited", "pid", cmd.Process.Pid, "error", t.waitErr)
	}()

	return t, nil
}

type processTransport struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	writer  *LineWriter
	recv    chan []byte
	stop    chan struct{}
	exited  chan struct{}
	waitErr error
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
}

func (t *processTransport) Send(msg []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTransportClosed
	}
	if err := t.writer.WriteLine(msg); err != nil {
		return fmt.Errorf("send to worker: %w", err)
	}
	return nil
}

func (t *processTransport) Recv() <-chan []byte {
	return t.recv
}

// Close closes the worker's stdin so it exits on EOF, killing it if it does
// not exit in time.
func (t *processTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	close(t.stop)
	err := t.stdin.Close()
	t.mu.Unlock()

	select {
	case <-t.exited:
	case <-time.After(processStopTimeout):
		t.logger.Warn("worker process did not exit, killing", "pid", t.cmd.Process.Pid)
		_ = t.cmd.Process.Kill()
		<-t.exited
	}
	return err
}

func (t *processTransport) readResponses(r io.Reader) {
	lines := NewLineReader(r)
	for {
		line, err := lines.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				t.logger.Warn("worker stdout read failed", "error", err)
			}
			return
		}
		select {
		case t.recv <- line:
		case <-t.stop:
			return
		}
	}
}

func forwardStderr(r io.Reader, logger *slog.Logger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		logger.Warn("worker stderr", "line", scanner.Text())
	}
}
