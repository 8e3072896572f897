package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/mcpwire/mcpwire/logx"
)

// stdioReadLimit bounds a single newline-delimited message (16 MiB).
const stdioReadLimit = 16 * 1024 * 1024

// stdioTransport spawns a server process and exchanges newline-delimited
// JSON-RPC messages over its stdin/stdout. stderr is drained to the logger.
type stdioTransport struct {
	config StdioConfig
	logger logx.Logger

	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	connected bool
	handler   ReceiveHandler
	done      chan struct{}
}

func newStdioTransport(cfg StdioConfig, logger logx.Logger) *stdioTransport {
	return &stdioTransport{config: cfg, logger: logger}
}

// SetReceiveHandler implements Transport.
func (t *stdioTransport) SetReceiveHandler(handler ReceiveHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

// Connect implements Transport. It starts the child process and the reader
// goroutines. On any setup failure the process is killed before returning so
// a failed connect never leaks a child.
func (t *stdioTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.connected {
		return NewConnectionError(t.endpoint(), "already connected", ErrAlreadyConnected)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	cmd := exec.Command(t.config.Command, t.config.Args...)
	cmd.Dir = t.config.Dir
	cmd.Env = os.Environ()
	for k, v := range t.config.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return NewConnectionError(t.endpoint(), "failed to create stdin pipe", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return NewConnectionError(t.endpoint(), "failed to create stdout pipe", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return NewConnectionError(t.endpoint(), "failed to create stderr pipe", err)
	}

	if err := cmd.Start(); err != nil {
		return NewConnectionError(t.endpoint(),
			fmt.Sprintf("failed to start process %s", t.config.Command), err)
	}

	t.cmd = cmd
	t.stdin = stdin
	t.connected = true
	t.done = make(chan struct{})

	go t.readLoop(stdout, t.done)
	go t.drainStderr(stderr)
	go func() {
		err := cmd.Wait()
		if err != nil {
			t.logger.Warn("stdio process %s exited: %v", t.config.Command, err)
		}
		// The process going away invalidates the channel.
		_ = t.Close()
	}()

	t.logger.Debug("stdio transport connected to %s", t.config.Command)
	return nil
}

// Close implements Transport. It kills the child process if it is still
// running. Close is idempotent.
func (t *stdioTransport) Close() error {
	t.mu.Lock()
	if !t.connected {
		t.mu.Unlock()
		return nil
	}
	t.connected = false
	stdin := t.stdin
	cmd := t.cmd
	done := t.done
	t.mu.Unlock()

	close(done)
	if stdin != nil {
		_ = stdin.Close()
	}
	if cmd != nil && cmd.Process != nil {
		if err := cmd.Process.Signal(os.Interrupt); err != nil {
			_ = cmd.Process.Kill()
		}
	}
	t.logger.Debug("stdio transport closed (%s)", t.config.Command)
	return nil
}

// IsConnected implements Transport.
func (t *stdioTransport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// Send implements Transport. Messages are newline-delimited on the wire.
func (t *stdioTransport) Send(ctx context.Context, message []byte) error {
	t.mu.Lock()
	connected := t.connected
	stdin := t.stdin
	t.mu.Unlock()

	if !connected {
		return ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	payload := append(append([]byte{}, message...), '\n')
	if _, err := stdin.Write(payload); err != nil {
		return NewConnectionError(t.endpoint(), "failed to write to process stdin", err)
	}
	return nil
}

func (t *stdioTransport) readLoop(stdout io.Reader, done <-chan struct{}) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), stdioReadLimit)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		t.mu.Lock()
		handler := t.handler
		t.mu.Unlock()
		if handler != nil {
			msg := make([]byte, len(line))
			copy(msg, line)
			handler(msg)
		}
	}
	if err := scanner.Err(); err != nil {
		select {
		case <-done:
			// Shutting down, the read error is expected.
		default:
			t.logger.Error("stdio read loop failed: %v", err)
		}
	}
}

func (t *stdioTransport) drainStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 64*1024), stdioReadLimit)
	for scanner.Scan() {
		t.logger.Debug("stderr[%s]: %s", t.config.Command, scanner.Text())
	}
}

func (t *stdioTransport) endpoint() string {
	return "stdio:" + t.config.Command
}

var _ Transport = (*stdioTransport)(nil)
