package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"os"
)

// deviceEvent is an input event tagged with the device it came from.
type deviceEvent struct {
	device int
	ev     inputEvent
}

// inputDevice is an opened evdev node.
type inputDevice struct {
	id   int
	path string
	f    *os.File
}

var inputEventSize = binary.Size(inputEvent{})

func decodeInputEvent(buf []byte, reader *bytes.Reader) (inputEvent, bool) {
	reader.Reset(buf)
	var ev inputEvent
	if err := binary.Read(reader, binary.LittleEndian, &ev); err != nil {
		return inputEvent{}, false
	}
	return ev, true
}

// readInputEvents reads one device until it fails or ctx is canceled. It
// blocks on read and is used where epoll is not available.
func readInputEvents(ctx context.Context, dev inputDevice, events chan<- deviceEvent) error {
	buf := make([]byte, inputEventSize)
	reader := bytes.NewReader(buf)

	for {
		if _, err := io.ReadFull(dev.f, buf); err != nil {
			return err
		}
		ev, ok := decodeInputEvent(buf, reader)
		if !ok {
			// Skip malformed events
			continue
		}
		select {
		case events <- deviceEvent{device: dev.id, ev: ev}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
