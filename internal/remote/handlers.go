package remote

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/npratt/prfkit/internal/controller"
)

// handleRequest dispatches the request to the appropriate handler.
func (s *Server) handleRequest(req *Request) Response {
	if s.controller == nil {
		return Response{Error: "no controller available"}
	}

	switch req.Method {
	case MethodStatus:
		return s.handleStatus()
	case MethodPause:
		s.controller.Pause()
		return Response{Result: "pausing"}
	case MethodResume:
		s.controller.Resume()
		return Response{Result: "resuming"}
	case MethodStep:
		s.controller.SingleStep()
		return Response{Result: "stepping"}
	case MethodHalt:
		s.controller.Halt()
		return Response{Result: "halting"}
	case MethodBreakpoint:
		return s.handleBreakpoint(req)
	case MethodSpeed:
		return s.handleSpeed(req)
	case MethodIgnoreBreakpoints:
		return s.handleIgnore(req)
	default:
		return Response{Error: fmt.Sprintf("unknown method: %s", req.Method)}
	}
}

// handleStatus reports the controller's state and the outcome of a finished run.
func (s *Server) handleStatus() Response {
	state := s.controller.State()
	startTime := s.StartTime()

	status := StatusResponse{
		State:             string(state),
		RunID:             s.controller.RunID(),
		Steps:             s.controller.Steps(),
		Speed:             string(s.controller.Speed()),
		IgnoreBreakpoints: s.controller.IgnoringBreakpoints(),
		Breakpoints:       s.controller.Breakpoints(),
		Uptime:            time.Since(startTime).Truncate(time.Second).String(),
		StartTime:         startTime.Format(time.RFC3339),
	}

	r := s.controller.Result()
	switch r.State {
	case controller.StateCompleted:
		v := r.Value
		status.Result = &v
	case controller.StateErrored:
		if r.Err != nil {
			status.Error = r.Err.Error()
		}
	}
	return Response{Result: status}
}

func (s *Server) handleBreakpoint(req *Request) Response {
	var p BreakpointParams
	if err := decodeParams(req, &p); err != nil {
		return Response{Error: err.Error()}
	}
	if p.BlockID == "" {
		return Response{Error: "breakpoint: block_id is required"}
	}
	s.controller.SetBreakpoint(p.BlockID, p.Enabled)
	return Response{Result: "ok"}
}

func (s *Server) handleSpeed(req *Request) Response {
	var p SpeedParams
	if err := decodeParams(req, &p); err != nil {
		return Response{Error: err.Error()}
	}
	speed, err := controller.ParseSpeed(p.Speed)
	if err != nil {
		return Response{Error: err.Error()}
	}
	s.controller.SetSpeed(speed)
	return Response{Result: string(speed)}
}

func (s *Server) handleIgnore(req *Request) Response {
	var p IgnoreParams
	if err := decodeParams(req, &p); err != nil {
		return Response{Error: err.Error()}
	}
	s.controller.SetIgnoreBreakpoints(p.Ignore)
	return Response{Result: "ok"}
}

// decodeParams converts the generic params of a decoded request into v.
func decodeParams(req *Request, v any) error {
	if req.Params == nil {
		return fmt.Errorf("%s: missing params", req.Method)
	}
	data, err := json.Marshal(req.Params)
	if err != nil {
		return fmt.Errorf("%s: marshal params: %w", req.Method, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: invalid params: %w", req.Method, err)
	}
	return nil
}
