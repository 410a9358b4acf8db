package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"
)

const (
	// DefaultClientTimeout is the default timeout for client operations.
	DefaultClientTimeout = 5 * time.Second
)

// ErrNotListening is returned when no step session is serving the socket.
var ErrNotListening = errors.New("no step session listening")

// Client connects to a step session's control socket.
type Client struct {
	sockPath string
	timeout  time.Duration
}

// NewClient creates a new control client.
func NewClient(sockPath string) *Client {
	return &Client{
		sockPath: sockPath,
		timeout:  DefaultClientTimeout,
	}
}

// SetTimeout sets the timeout for client operations.
func (c *Client) SetTimeout(d time.Duration) {
	c.timeout = d
}

// call sends a JSON-RPC request and returns the response.
func (c *Client) call(method string, params any) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.sockPath, c.timeout)
	if err != nil {
		return nil, c.wrapConnError(err)
	}
	defer func() { _ = conn.Close() }()

	if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	req := Request{Method: method, Params: params}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.Error != "" {
		return nil, fmt.Errorf("session error: %s", resp.Error)
	}

	return &resp, nil
}

// wrapConnError converts connection errors to user-friendly messages.
func (c *Client) wrapConnError(err error) error {
	var sysErr syscall.Errno
	if errors.As(err, &sysErr) {
		switch sysErr {
		case syscall.ENOENT:
			return fmt.Errorf("%w (socket not found)", ErrNotListening)
		case syscall.ECONNREFUSED:
			return fmt.Errorf("%w (connection refused)", ErrNotListening)
		}
	}

	if os.IsNotExist(err) {
		return fmt.Errorf("%w (socket not found)", ErrNotListening)
	}

	if errors.Is(err, os.ErrDeadlineExceeded) {
		return errors.New("control request timed out")
	}

	return fmt.Errorf("connect to step session: %w", err)
}

// Status returns the session's current status.
func (c *Client) Status() (*StatusResponse, error) {
	resp, err := c.call(MethodStatus, nil)
	if err != nil {
		return nil, err
	}

	// Re-marshal and unmarshal to convert the result to StatusResponse
	data, err := json.Marshal(resp.Result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}

	var status StatusResponse
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("unmarshal status: %w", err)
	}

	return &status, nil
}

// Pause requests a pause at the next step boundary.
func (c *Client) Pause() error {
	_, err := c.call(MethodPause, nil)
	return err
}

// Resume continues a paused run.
func (c *Client) Resume() error {
	_, err := c.call(MethodResume, nil)
	return err
}

// Step advances a paused run by one block.
func (c *Client) Step() error {
	_, err := c.call(MethodStep, nil)
	return err
}

// Halt stops the run at the next step boundary.
func (c *Client) Halt() error {
	_, err := c.call(MethodHalt, nil)
	return err
}

// SetBreakpoint adds or removes a breakpoint on a block id.
func (c *Client) SetBreakpoint(blockID string, enabled bool) error {
	_, err := c.call(MethodBreakpoint, BreakpointParams{BlockID: blockID, Enabled: enabled})
	return err
}

// SetSpeed changes the delay between steps.
func (c *Client) SetSpeed(speed string) error {
	_, err := c.call(MethodSpeed, SpeedParams{Speed: speed})
	return err
}

// SetIgnoreBreakpoints turns breakpoint pauses off or on.
func (c *Client) SetIgnoreBreakpoints(ignore bool) error {
	_, err := c.call(MethodIgnoreBreakpoints, IgnoreParams{Ignore: ignore})
	return err
}

// IsListening checks whether a session is serving the socket.
func (c *Client) IsListening() bool {
	conn, err := net.DialTimeout("unix", c.sockPath, time.Second)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
