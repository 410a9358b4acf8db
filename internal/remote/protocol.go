package remote

// Request represents a JSON-RPC request from a client.
type Request struct {
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
	ID     int    `json:"id,omitempty"`
}

// Response represents a JSON-RPC response to a client.
type Response struct {
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
	ID     int    `json:"id,omitempty"`
}

// Methods understood by the server.
const (
	MethodStatus            = "status"
	MethodPause             = "pause"
	MethodResume            = "resume"
	MethodStep              = "step"
	MethodHalt              = "halt"
	MethodBreakpoint        = "breakpoint"
	MethodSpeed             = "speed"
	MethodIgnoreBreakpoints = "ignore_breakpoints"
)

// StatusResponse describes the session's current run.
type StatusResponse struct {
	State             string   `json:"state"`
	RunID             string   `json:"run_id,omitempty"`
	Steps             int      `json:"steps"`
	Speed             string   `json:"speed"`
	IgnoreBreakpoints bool     `json:"ignore_breakpoints"`
	Breakpoints       []string `json:"breakpoints,omitempty"`
	Result            *int     `json:"result,omitempty"`
	Error             string   `json:"error,omitempty"`
	Uptime            string   `json:"uptime"`
	StartTime         string   `json:"start_time"`
}

// BreakpointParams contains parameters for the breakpoint method.
type BreakpointParams struct {
	BlockID string `json:"block_id"`
	Enabled bool   `json:"enabled"`
}

// SpeedParams contains parameters for the speed method.
type SpeedParams struct {
	Speed string `json:"speed"`
}

// IgnoreParams contains parameters for the ignore_breakpoints method.
type IgnoreParams struct {
	Ignore bool `json:"ignore"`
}
