package droidshell

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"
)

// ============================================================================
// IPC Server - Unix Domain Socket Interface
// ============================================================================
// The IPC server lets external tools inject raw input and drive the
// lifecycle of a running shell, for scripting and for testing the input
// path without a device.
//
// Protocol: Line-delimited JSON
//   - Client sends: {"type": "key", "data": {...}}
//   - Server responds: {"status": "ok", "handled": true} or
//     {"status": "error", "error": "msg"}
//
// Request types:
//   key, touch, trackball, motion   raw input, data is a KeyEvent/MotionEvent
//   device_removed                  data is {"id": N}
//   pause, resume, quit, state      lifecycle, no data
// ============================================================================

// IPCRequest is one line sent by a client.
type IPCRequest struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// IPCResponse represents the response sent back to IPC clients
type IPCResponse struct {
	Status  string `json:"status"`            // "ok" or "error"
	Error   string `json:"error,omitempty"`   // error message if status == "error"
	Handled *bool  `json:"handled,omitempty"` // input callbacks only
	State   string `json:"state,omitempty"`   // lifecycle requests only
}

// DeviceRemoved is the data of a device_removed request.
type DeviceRemoved struct {
	ID int `json:"id"`
}

func ipcError(format string, args ...any) IPCResponse {
	return IPCResponse{Status: "error", Error: fmt.Sprintf(format, args...)}
}

func ipcHandled(handled bool) IPCResponse {
	return IPCResponse{Status: "ok", Handled: &handled}
}

// stampMotion fills in timestamps a script usually leaves out.
func stampMotion(ev *MotionEvent, now time.Time) {
	if ev.EventTime.IsZero() {
		ev.EventTime = now
	}
	if ev.DownTime.IsZero() {
		ev.DownTime = ev.EventTime
	}
}

// HandleIPCRequest applies one request to the shell.
func HandleIPCRequest(shell *Shell, req IPCRequest) IPCResponse {
	n := shell.Normalizer()
	now := time.Now()

	switch req.Type {
	case "key":
		var ev KeyEvent
		if err := json.Unmarshal(req.Data, &ev); err != nil {
			return ipcError("parse key: %v", err)
		}
		if ev.EventTime.IsZero() {
			ev.EventTime = now
		}
		if ev.DownTime.IsZero() {
			ev.DownTime = ev.EventTime
		}
		return ipcHandled(n.OnKey(ev))

	case "touch", "trackball", "motion":
		var ev MotionEvent
		if err := json.Unmarshal(req.Data, &ev); err != nil {
			return ipcError("parse %s: %v", req.Type, err)
		}
		stampMotion(&ev, now)
		switch req.Type {
		case "touch":
			return ipcHandled(n.OnTouch(ev))
		case "trackball":
			return ipcHandled(n.OnTrackball(ev))
		default:
			return ipcHandled(n.OnGenericMotion(ev))
		}

	case "device_removed":
		var d DeviceRemoved
		if err := json.Unmarshal(req.Data, &d); err != nil {
			return ipcError("parse device_removed: %v", err)
		}
		return ipcHandled(n.Devices().Remove(d.ID))

	case "pause", "resume", "quit":
		var err error
		switch req.Type {
		case "pause":
			err = shell.Pause()
		case "resume":
			err = shell.Resume()
		default:
			err = shell.Destroy()
		}
		if err != nil && !errors.Is(err, ErrEngineJoinTimeout) {
			return IPCResponse{Status: "error", Error: err.Error(), State: shell.State().String()}
		}
		return IPCResponse{Status: "ok", State: shell.State().String()}

	case "state":
		return IPCResponse{Status: "ok", State: shell.State().String()}
	}

	return ipcError("unknown request type: %q", req.Type)
}

// RunIPCServer starts the Unix domain socket server.
// It runs until ctx is canceled, at which point it closes the listener and exits.
func RunIPCServer(ctx context.Context, socketPath string, shell *Shell, logger *slog.Logger) error {
	logger = orDiscard(logger)

	// Remove existing socket file if it exists
	if err := os.RemoveAll(socketPath); err != nil {
		return fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	defer listener.Close()
	defer os.Remove(socketPath)

	if err := os.Chmod(socketPath, 0o660); err != nil {
		return fmt.Errorf("chmod socket: %w", err)
	}

	logger.Info("IPC listening", "socket", socketPath)

	// Close the listener on shutdown. This unblocks Accept().
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				logger.Debug("IPC listener closed (shutdown)")
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				logger.Debug("IPC listener closed")
				return nil
			}

			logger.Error("IPC accept error", "error", err)
			continue
		}

		go handleIPCConnection(conn, shell, logger)
	}
}

// handleIPCConnection handles a single IPC connection
func handleIPCConnection(conn net.Conn, shell *Shell, logger *slog.Logger) {
	defer conn.Close()

	logger.Debug("IPC connection", "remote_addr", conn.RemoteAddr())

	scanner := bufio.NewScanner(conn)
	encoder := json.NewEncoder(conn)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		logger.Debug("IPC received", "line", line)

		var resp IPCResponse
		var req IPCRequest
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			resp = ipcError("parse request: %v", err)
		} else {
			resp = HandleIPCRequest(shell, req)
		}

		if err := encoder.Encode(resp); err != nil {
			logger.Error("IPC failed to send response", "error", err)
			return
		}
	}

	logger.Debug("IPC connection closed")
}

// ============================================================================
// IPC Client Utility Functions
// ============================================================================

// SendIPCRequest sends one request and returns the response. A response
// with status "error" is returned as an error.
func SendIPCRequest(socketPath string, req IPCRequest) (IPCResponse, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return IPCResponse{}, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	data, err := json.Marshal(req)
	if err != nil {
		return IPCResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return IPCResponse{}, fmt.Errorf("send request: %w", err)
	}

	var resp IPCResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return IPCResponse{}, fmt.Errorf("decode response: %w", err)
	}

	if resp.Status != "ok" {
		return resp, fmt.Errorf("ipc error: %s", resp.Error)
	}

	return resp, nil
}
