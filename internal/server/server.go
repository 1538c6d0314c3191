// Package server implements the per-connection reader/processor split: a
// TCP accept loop spawns one short-lived reader goroutine per connection
// that frames and enqueues exactly one JSON request, and a single processor
// goroutine drains the queue, dispatches to the engine, and writes back one
// JSON response before closing the connection. This mirrors the original
// server's accept → reader thread → queue → processor thread pipeline.
package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/omnifs/omnifs/internal/circuit"
	"github.com/omnifs/omnifs/internal/engine"
	"github.com/omnifs/omnifs/internal/logging"
	"github.com/omnifs/omnifs/internal/metrics"
	"github.com/omnifs/omnifs/internal/queue"
	"github.com/omnifs/omnifs/internal/recovery"
	omnierrors "github.com/omnifs/omnifs/pkg/errors"
	"github.com/omnifs/omnifs/pkg/health"
	"github.com/omnifs/omnifs/pkg/status"
)

const maxRequestBytes = 1 << 20

// exemptOperations are reachable without a valid session id.
var exemptOperations = map[string]bool{
	"user_login":        true,
	"user_logout":       true,
	"get_error_message": true,
}

// Server owns the listener and wires the engine to the wire protocol.
type Server struct {
	Engine  *engine.Engine
	Queue   *queue.FIFO
	Logger  *logging.Logger
	Metrics *metrics.Collector
	Health  *health.Tracker
	Status  *status.Tracker
	Breaker *circuit.Breaker
}

// New wires a Server around an already-initialized engine.
func New(e *engine.Engine, log *logging.Logger, m *metrics.Collector, h *health.Tracker, s *status.Tracker, b *circuit.Breaker) *Server {
	return &Server{Engine: e, Queue: queue.New(), Logger: log, Metrics: m, Health: h, Status: s, Breaker: b}
}

// Serve accepts connections on ln until it returns an error (typically from
// the listener being closed). One reader goroutine per accepted connection;
// the processor loop is started once, in its own goroutine, before Serve
// begins accepting.
func (s *Server) Serve(ln net.Listener) error {
	recovery.Go(s.Logger, "processor", s.processLoop)

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		recovery.Go(s.Logger, "reader", func() { s.handleConnection(conn) })
	}
}

// handleConnection reads until a newline or EOF, locates the first '{', and
// parses from there as one JSON object. It never touches engine state;
// failure to parse writes a fixed error response and closes without
// enqueueing.
func (s *Server) handleConnection(conn net.Conn) {
	reader := bufio.NewReaderSize(conn, 8192)

	raw, _ := reader.ReadBytes('\n')
	if len(raw) > maxRequestBytes {
		raw = raw[:maxRequestBytes]
	}

	if len(raw) == 0 {
		conn.Close()
		return
	}

	start := -1
	for i, b := range raw {
		if b == '{' {
			start = i
			break
		}
	}
	if start < 0 {
		writeLine(conn, `{"status":"error","error_message":"Invalid JSON"}`)
		conn.Close()
		return
	}

	var payload map[string]any
	if err := json.Unmarshal(raw[start:], &payload); err != nil {
		writeLine(conn, `{"status":"error","error_message":"Invalid JSON"}`)
		conn.Close()
		return
	}

	respCh := make(chan []byte, 1)
	s.Queue.Push(queue.Request{Payload: payload, Response: respCh})
	if s.Metrics != nil {
		s.Metrics.SetQueueDepth(s.Queue.Len())
	}

	resp, ok := <-respCh
	if !ok {
		conn.Close()
		return
	}
	writeLine(conn, string(resp))
	conn.Close()
}

func writeLine(conn net.Conn, line string) {
	_, _ = conn.Write([]byte(line + "\n"))
}

// processLoop is the sole mutator of engine state: it dequeues requests in
// strict FIFO order and never suspends except inside Pop (queue empty) or
// on blocking container I/O inside the engine call it invokes.
func (s *Server) processLoop() {
	for {
		req, ok := s.Queue.Pop()
		if !ok {
			return
		}
		if s.Metrics != nil {
			s.Metrics.SetQueueDepth(s.Queue.Len())
		}
		resp := s.handleRequest(req.Payload)
		req.Response <- resp
		close(req.Response)
	}
}

func (s *Server) handleRequest(payload map[string]any) []byte {
	op, _ := payload["operation"].(string)
	requestID, _ := payload["request_id"].(string)
	sessionID, _ := payload["session_id"].(string)
	params, _ := payload["parameters"].(map[string]any)
	if params == nil {
		params = map[string]any{}
	}

	response := map[string]any{"operation": op, "request_id": requestID}
	if requestID == "" {
		response["request_id"] = "none"
	}

	if op == "" {
		response["status"] = "error"
		response["error_message"] = "Invalid operation"
		return mustMarshal(response)
	}

	opID := ""
	if s.Status != nil {
		opID = s.Status.Start(op)
	}
	start := time.Now()

	ioFailed := false
	omniErr := recovery.Guard(s.Logger, "server", op, func() {
		if !exemptOperations[op] {
			if _, sessErr := s.Engine.SessionInfo(sessionID); sessErr != nil {
				setError(response, omnierrors.New(omnierrors.InvalidSession, "session not found"))
				return
			}
		}

		var data any
		var opErr *omnierrors.OmniError
		breakErr := s.runBreaker(func() error {
			data, opErr = dispatch(s.Engine, op, sessionID, params)
			if opErr != nil && opErr.Code() == omnierrors.IOError {
				return opErr
			}
			return nil
		})
		if breakErr == circuit.ErrOpen {
			opErr = omnierrors.New(omnierrors.IOError, "container temporarily unavailable").WithComponent("server").WithOperation(op)
		}
		if opErr != nil && opErr.Code() == omnierrors.IOError {
			ioFailed = true
		}

		if opErr != nil {
			setError(response, opErr)
			return
		}
		response["status"] = "success"
		if data != nil {
			response["data"] = data
		}
	})

	success := response["status"] == "success"
	if omniErr != nil {
		response["status"] = "error"
		response["error_message"] = "Unknown server error"
		success = false
		ioFailed = true
	}

	// The container health signal tracks I/O failures specifically, not
	// every logical error (a bad password or a missing path says nothing
	// about whether the backing container file is healthy).
	if s.Health != nil {
		if ioFailed {
			s.Health.RecordError("container", fmt.Errorf("%v", response["error_message"]))
		} else {
			s.Health.RecordSuccess("container")
		}
	}
	if s.Metrics != nil {
		s.Metrics.RecordOperation(op, time.Since(start), success)
		s.Metrics.SetActiveSessions(s.Engine.Sessions.Len())
		s.Metrics.SetAllocatedBlocks(s.Engine.AllocatedBlocks())
	}
	if s.Status != nil && opID != "" {
		if success {
			s.Status.Complete(opID)
		} else {
			s.Status.Fail(opID, fmt.Errorf("%v", response["error_message"]))
		}
	}

	return mustMarshal(response)
}

func (s *Server) runBreaker(fn func() error) error {
	if s.Breaker == nil {
		return fn()
	}
	return s.Breaker.Execute(fn)
}

func setError(response map[string]any, err *omnierrors.OmniError) {
	response["status"] = "error"
	response["error_code"] = int(err.Code())
	response["error_message"] = err.Error()
}

func mustMarshal(v map[string]any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte(`{"status":"error","error_message":"failed to encode response"}`)
	}
	return data
}

// paramString reads a string parameter, defaulting to "".
func paramString(params map[string]any, key string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}

// paramSize coerces a size parameter that may arrive as a JSON number or a
// numeric string, falling back to 0 on anything unparseable.
func paramSize(params map[string]any, key string) uint64 {
	switch v := params[key].(type) {
	case float64:
		if v < 0 {
			return 0
		}
		return uint64(v)
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// paramInt reads an integer parameter, defaulting to 0.
func paramInt(params map[string]any, key string) int {
	if v, ok := params[key].(float64); ok {
		return int(v)
	}
	return 0
}
