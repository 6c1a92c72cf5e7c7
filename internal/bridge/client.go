// Package bridge implements the JSON-RPC client for the browser bridge
// subprocess: a single duplex pipe carrying newline-delimited JSON-RPC
// 2.0 frames, with process supervision for restart-on-failure.
package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brightloop/agentcore/internal/ambient"
)

// Options configures the bridge subprocess.
type Options struct {
	Command string
	Args    []string
	// CallTimeout bounds any single request/response round trip.
	CallTimeout time.Duration
	// RestartRetries bounds the is_running -> start -> create_context
	// TOCTOU retry loop (spec.md §4.6).
	RestartRetries int
}

// Client owns the bridge subprocess and its request/response
// correlation. One Client is a process-wide singleton; requests against
// a given run's context must be serialized by the caller (spec.md §5).
type Client struct {
	opts   Options
	logger ambient.Logger

	mu      sync.Mutex // guards cmd/stdin/stdout lifecycle
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	running bool

	pendingMu sync.Mutex
	pending   map[uint64]chan rpcResponse
	nextID    uint64

	closed atomic.Bool
}

// NewClient builds an unstarted Client.
func NewClient(opts Options, logger ambient.Logger) *Client {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 30 * time.Second
	}
	if opts.RestartRetries <= 0 {
		opts.RestartRetries = 3
	}
	if logger == nil {
		logger = ambient.NoOpLogger{}
	}
	return &Client{
		opts:    opts,
		logger:  logger,
		pending: make(map[uint64]chan rpcResponse),
	}
}

// IsRunning probes subprocess liveness.
func (c *Client) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running && c.cmd != nil && c.cmd.ProcessState == nil
}

// Start launches the subprocess and performs the initialize handshake.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startLocked(ctx)
}

func (c *Client) startLocked(ctx context.Context) error {
	cmd := exec.CommandContext(context.Background(), c.opts.Command, c.opts.Args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("bridge stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("bridge stdout pipe: %w", err)
	}
	stderr, _ := cmd.StderrPipe()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start bridge subprocess: %w", err)
	}

	c.cmd = cmd
	c.stdin = stdin
	c.running = true
	c.closed.Store(false)

	go c.readLoop(stdout)
	if stderr != nil {
		go io.Copy(io.Discard, stderr)
	}

	if err := c.call(ctx, "initialize", map[string]interface{}{
		"engine":       "chromium",
		"snapshotMode": "accessibility-tree",
	}, nil); err != nil {
		return fmt.Errorf("bridge initialize: %w", err)
	}
	return c.notify("notifications/initialized", nil)
}

// ForceRestart kills and relaunches the subprocess.
func (c *Client) ForceRestart(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.killLocked()
	return c.startLocked(ctx)
}

func (c *Client) killLocked() {
	c.running = false
	c.closed.Store(true)
	if c.stdin != nil {
		_ = c.stdin.Close()
	}
	if c.cmd != nil && c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
		_ = c.cmd.Wait()
	}
	c.failAllPending(ambient.ErrBridgeNotRunning)
}

// Shutdown sends a graceful shutdown request then kills the process.
func (c *Client) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		_ = c.call(ctx, "shutdown", nil, nil)
	}
	c.killLocked()
	return nil
}

// CreateContext establishes a clean-room browser context for runID,
// retrying the is_running -> maybe start -> create_context sequence up
// to opts.RestartRetries times with a force_restart between attempts
// (the TOCTOU race spec.md §4.6 calls out explicitly).
func (c *Client) CreateContext(ctx context.Context, runID string, headless bool) error {
	var lastErr error
	for attempt := 0; attempt <= c.opts.RestartRetries; attempt++ {
		if attempt > 0 {
			if err := c.ForceRestart(ctx); err != nil {
				lastErr = err
				continue
			}
		} else if !c.IsRunning() {
			if err := c.Start(ctx); err != nil {
				lastErr = err
				continue
			}
		}

		err := c.call(ctx, "browser/createContext", map[string]interface{}{
			"runId":    runID,
			"headless": headless,
		}, nil)
		if err == nil {
			return nil
		}
		lastErr = err
		c.logger.Warn("create_context attempt failed", map[string]interface{}{
			"run_id":  runID,
			"attempt": attempt,
			"error":   err.Error(),
		})
	}
	return fmt.Errorf("create_context exhausted retries: %w", lastErr)
}

// CloseContext tears down a run's browser context.
func (c *Client) CloseContext(ctx context.Context, runID string) error {
	return c.call(ctx, "browser/closeContext", map[string]interface{}{"runId": runID}, nil)
}

// CallTool invokes tools/call and unwraps the response envelope.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]interface{}) (ToolResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
	defer cancel()

	var raw json.RawMessage
	if err := c.call(callCtx, "tools/call", map[string]interface{}{
		"name":      name,
		"arguments": arguments,
	}, &raw); err != nil {
		return ToolResult{}, err
	}
	return unwrapToolResult(raw)
}

func (c *Client) call(ctx context.Context, method string, params interface{}, out interface{}) error {
	id := c.next()
	ch := make(chan rpcResponse, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()

	req := rpcRequest{JSONRPC: "2.0", Method: method, ID: id, Params: params}
	if err := c.writeMessage(req); err != nil {
		c.removePending(id)
		return err
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return resp.Error
		}
		if out != nil && resp.Result != nil {
			if raw, ok := out.(*json.RawMessage); ok {
				*raw = resp.Result
				return nil
			}
			return json.Unmarshal(resp.Result, out)
		}
		return nil
	case <-ctx.Done():
		c.removePending(id)
		return ctx.Err()
	}
}

func (c *Client) notify(method string, params interface{}) error {
	return c.writeMessage(rpcRequest{JSONRPC: "2.0", Method: method, Params: params})
}

func (c *Client) writeMessage(req rpcRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	c.mu.Lock()
	stdin := c.stdin
	c.mu.Unlock()
	if stdin == nil {
		return ambient.ErrBridgeNotRunning
	}
	data = append(data, '\n')
	_, err = stdin.Write(data)
	return err
}

func (c *Client) readLoop(stdout io.Reader) {
	reader := bufio.NewReader(stdout)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			var resp rpcResponse
			if jsonErr := json.Unmarshal(line, &resp); jsonErr == nil && resp.ID != 0 {
				c.pendingMu.Lock()
				ch, ok := c.pending[resp.ID]
				if ok {
					delete(c.pending, resp.ID)
				}
				c.pendingMu.Unlock()
				if ok {
					ch <- resp
					close(ch)
				}
			}
		}
		if err != nil {
			c.failAllPending(fmt.Errorf("bridge stdout closed: %w", err))
			return
		}
	}
}

func (c *Client) failAllPending(err error) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, ch := range c.pending {
		delete(c.pending, id)
		ch <- rpcResponse{Error: &rpcError{Code: CodeInternalError, Message: err.Error()}}
		close(ch)
	}
}

func (c *Client) removePending(id uint64) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

func (c *Client) next() uint64 {
	return atomic.AddUint64(&c.nextID, 1)
}
