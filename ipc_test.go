package droidshell

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func ipcData(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestHandleIPCRequest_InputAndLifecycle(t *testing.T) {
	engine := newFakeEngine()
	s, _, _ := newTestShell(t, engine)

	if resp := HandleIPCRequest(s, IPCRequest{Type: "state"}); resp.State != "new" {
		t.Fatalf("unexpected state %+v", resp)
	}
	if err := s.Create(); err != nil {
		t.Fatal(err)
	}

	resp := HandleIPCRequest(s, IPCRequest{Type: "resume"})
	if resp.Status != "ok" || resp.State != "running" {
		t.Fatalf("resume: %+v", resp)
	}

	resp = HandleIPCRequest(s, IPCRequest{Type: "key", Data: ipcData(t, KeyEvent{Code: KeyCodeHover, Action: KeyActionDown})})
	if resp.Status != "ok" || resp.Handled == nil || *resp.Handled {
		t.Errorf("hover must be unhandled: %+v", resp)
	}

	resp = HandleIPCRequest(s, IPCRequest{Type: "trackball", Data: ipcData(t, MotionEvent{X: 1, Y: -1, XPrecision: 1, YPrecision: 1})})
	if resp.Handled == nil || !*resp.Handled {
		t.Errorf("trackball must be handled: %+v", resp)
	}

	resp = HandleIPCRequest(s, IPCRequest{Type: "pause"})
	if resp.Status != "ok" || resp.State != "paused" {
		t.Errorf("pause: %+v", resp)
	}
	resp = HandleIPCRequest(s, IPCRequest{Type: "pause"})
	if resp.Status != "error" || resp.State != "paused" {
		t.Errorf("second pause must fail: %+v", resp)
	}

	resp = HandleIPCRequest(s, IPCRequest{Type: "quit"})
	if resp.Status != "ok" || resp.State != "destroyed" {
		t.Errorf("quit: %+v", resp)
	}

	events := engine.Events()
	if len(events) != 2 || events[0] != NewEvent(KindBall, 0, 100, -100) || events[1].Kind != KindQuit {
		t.Errorf("unexpected engine events %v", events)
	}
}

func TestHandleIPCRequest_Errors(t *testing.T) {
	s, _, _ := newTestShell(t, newFakeEngine())

	if resp := HandleIPCRequest(s, IPCRequest{Type: "bogus"}); resp.Status != "error" {
		t.Errorf("unknown type must fail: %+v", resp)
	}
	if resp := HandleIPCRequest(s, IPCRequest{Type: "key", Data: json.RawMessage(`"x"`)}); resp.Status != "error" {
		t.Errorf("bad key data must fail: %+v", resp)
	}
	resp := HandleIPCRequest(s, IPCRequest{Type: "device_removed", Data: ipcData(t, DeviceRemoved{ID: 42})})
	if resp.Status != "ok" || resp.Handled == nil || *resp.Handled {
		t.Errorf("removing an unknown device reports false: %+v", resp)
	}
}

func TestIPCServer_RoundTrip(t *testing.T) {
	engine := newFakeEngine()
	s, _, _ := newTestShell(t, engine)
	if err := s.Create(); err != nil {
		t.Fatal(err)
	}
	defer s.Destroy()

	sock := filepath.Join(t.TempDir(), "ipc.sock")
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- RunIPCServer(ctx, sock, s, nil) }()

	waitUntil(t, time.Second, func() bool {
		_, err := os.Stat(sock)
		return err == nil
	}, "socket not created")

	resp, err := SendIPCRequest(sock, IPCRequest{Type: "key", Data: ipcData(t, KeyEvent{Code: KeyCodeA, Action: KeyActionDown})})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if resp.Handled == nil || !*resp.Handled {
		t.Errorf("key must be handled: %+v", resp)
	}

	if _, err := SendIPCRequest(sock, IPCRequest{Type: "pause"}); err == nil {
		t.Errorf("pause from created must come back as an error")
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("server: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("server did not stop")
	}
}
