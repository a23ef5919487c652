package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"droidshell"
)

// ============================================================================
// droidctl - Command-line IPC Client
// ============================================================================
// Injects raw input into a running droidshell and drives its lifecycle.
//
// Usage:
//   droidctl key 29 press
//   droidctl text "hello"
//   droidctl tap 120 80
//   droidctl stick 7 1.0 0
//   droidctl pause | resume | quit | state
//
// Options:
//   -socket PATH    Unix domain socket path (default: /tmp/droidshell.sock)
// ============================================================================

const defaultSocket = "/tmp/droidshell.sock"

func main() {
	socketPath := defaultSocket

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if args[0] == "-socket" || args[0] == "--socket" {
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: -socket requires an argument\n")
			os.Exit(1)
		}
		socketPath = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printUsage()
		return
	}

	reqs, err := buildRequests(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		printUsage()
		os.Exit(1)
	}

	for _, req := range reqs {
		resp, err := droidshell.SendIPCRequest(socketPath, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(describe(req, resp))
	}
}

func describe(req droidshell.IPCRequest, resp droidshell.IPCResponse) string {
	switch {
	case resp.State != "":
		return fmt.Sprintf("%s: ok (state %s)", req.Type, resp.State)
	case resp.Handled != nil:
		return fmt.Sprintf("%s: ok (handled %v)", req.Type, *resp.Handled)
	}
	return req.Type + ": ok"
}

// stickDevice is the descriptor sent with synthetic stick motion: five
// joystick axes so the default bindings (indices 0, 1, 3, 4) all resolve.
func stickDevice(id int) *droidshell.InputDevice {
	dev := &droidshell.InputDevice{ID: id, Name: "droidctl", Sources: droidshell.SourceJoystick}
	for _, axis := range []int{droidshell.AxisX, droidshell.AxisY, droidshell.AxisZ, droidshell.AxisRX, droidshell.AxisRY} {
		dev.MotionRanges = append(dev.MotionRanges, droidshell.MotionRange{Axis: axis, Source: droidshell.SourceJoystick})
	}
	return dev
}

func request(typ string, data any) (droidshell.IPCRequest, error) {
	req := droidshell.IPCRequest{Type: typ}
	if data == nil {
		return req, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return req, fmt.Errorf("marshal %s: %w", typ, err)
	}
	req.Data = raw
	return req, nil
}

// buildRequests turns a command line into the requests to send, in order.
func buildRequests(args []string) ([]droidshell.IPCRequest, error) {
	var out []droidshell.IPCRequest
	add := func(typ string, data any) error {
		req, err := request(typ, data)
		if err != nil {
			return err
		}
		out = append(out, req)
		return nil
	}

	switch args[0] {
	case "key":
		if len(args) < 2 {
			return nil, fmt.Errorf("key requires a key code")
		}
		code, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("invalid key code: %v", err)
		}
		action := "press"
		if len(args) > 2 {
			action = args[2]
		}
		system := code == droidshell.KeyCodeBack || code == droidshell.KeyCodeMenu ||
			code == droidshell.KeyCodeCamera || code == droidshell.KeyCodeSearch
		key := func(a int) droidshell.KeyEvent {
			return droidshell.KeyEvent{Code: code, Action: a, System: system}
		}
		switch action {
		case "down":
			err = add("key", key(droidshell.KeyActionDown))
		case "up":
			err = add("key", key(droidshell.KeyActionUp))
		case "press":
			if err = add("key", key(droidshell.KeyActionDown)); err == nil {
				err = add("key", key(droidshell.KeyActionUp))
			}
		default:
			return nil, fmt.Errorf("unknown key action: %s", action)
		}
		if err != nil {
			return nil, err
		}

	case "text":
		if len(args) < 2 || args[1] == "" {
			return nil, fmt.Errorf("text requires a string")
		}
		if err := add("key", droidshell.KeyEvent{
			Code:       droidshell.KeyCodeUnknown,
			Action:     droidshell.KeyActionMultiple,
			Characters: args[1],
		}); err != nil {
			return nil, err
		}

	case "tap", "trackball":
		x, y, err := parsePair(args)
		if err != nil {
			return nil, err
		}
		if args[0] == "trackball" {
			err = add("trackball", droidshell.MotionEvent{
				Source: droidshell.SourceTrackball, Action: droidshell.MotionActionMove,
				X: x, Y: y, XPrecision: 1, YPrecision: 1,
			})
		} else {
			touch := func(a int) droidshell.MotionEvent {
				return droidshell.MotionEvent{Source: droidshell.SourceTouchscreen, Action: a, X: x, Y: y}
			}
			if err = add("touch", touch(droidshell.MotionActionDown)); err == nil {
				err = add("touch", touch(droidshell.MotionActionUp))
			}
		}
		if err != nil {
			return nil, err
		}

	case "stick":
		if len(args) < 4 {
			return nil, fmt.Errorf("stick requires <device-id> <x> <y> [<rx> <ry>]")
		}
		id, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("invalid device id: %v", err)
		}
		axes := []int{droidshell.AxisX, droidshell.AxisY, droidshell.AxisRX, droidshell.AxisRY}
		values := make(map[int]float32)
		for i, s := range args[2:] {
			if i >= len(axes) {
				break
			}
			v, err := strconv.ParseFloat(s, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid axis value %q: %v", s, err)
			}
			values[axes[i]] = float32(v)
		}
		if err := add("motion", droidshell.MotionEvent{
			DeviceID: id,
			Device:   stickDevice(id),
			Source:   droidshell.SourceJoystick,
			Action:   droidshell.MotionActionMove,
			Axes:     values,
		}); err != nil {
			return nil, err
		}

	case "remove-device":
		if len(args) < 2 {
			return nil, fmt.Errorf("remove-device requires a device id")
		}
		id, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("invalid device id: %v", err)
		}
		if err := add("device_removed", droidshell.DeviceRemoved{ID: id}); err != nil {
			return nil, err
		}

	case "pause", "resume", "quit", "state":
		if err := add(args[0], nil); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unknown command: %s", args[0])
	}

	return out, nil
}

func parsePair(args []string) (float32, float32, error) {
	if len(args) < 3 {
		return 0, 0, fmt.Errorf("%s requires <x> <y>", args[0])
	}
	x, err := strconv.ParseFloat(args[1], 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid x: %v", err)
	}
	y, err := strconv.ParseFloat(args[2], 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid y: %v", err)
	}
	return float32(x), float32(y), nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `droidctl - Inject input into droidshell via IPC

Usage:
  droidctl [options] <command> [args]

Options:
  -socket PATH    Unix domain socket path (default: %s)

Commands:
  key <code> [down|up|press]       Send a platform key code (default: press)
  text <string>                    Send an IME character batch
  tap <x> <y>                      Touch down and up at x,y
  trackball <dx> <dy>              Relative trackball motion
  stick <id> <x> <y> [<rx> <ry>]   Joystick axes in [-1, 1] for device id
  remove-device <id>               Report a device as disconnected
  pause, resume, quit, state       Drive or query the lifecycle
  help, -h, --help                 Show this help message

Examples:
  droidctl key 22
  droidctl stick 7 1 0
  droidctl -socket /run/droidshell.sock pause
`, defaultSocket)
}
