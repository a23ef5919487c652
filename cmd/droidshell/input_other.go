//go:build !linux

package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// readDevices runs one blocking reader per device. A device whose read
// fails is reported on removed; the function returns when ctx is canceled
// or no device is left.
func readDevices(ctx context.Context, devices []inputDevice, events chan<- deviceEvent, removed chan<- int, logger *slog.Logger) error {
	if len(devices) == 0 {
		return fmt.Errorf("no input devices provided")
	}

	var wg sync.WaitGroup
	for _, dev := range devices {
		wg.Add(1)
		go func(dev inputDevice) {
			defer wg.Done()
			err := readInputEvents(ctx, dev, events)
			if ctx.Err() != nil {
				return
			}
			logger.Warn("input device removed", "device", dev.path, "id", dev.id, "error", err)
			select {
			case removed <- dev.id:
			case <-ctx.Done():
			}
		}(dev)
	}

	allGone := make(chan struct{})
	go func() {
		wg.Wait()
		close(allGone)
	}()

	select {
	case <-ctx.Done():
		// Blocked reads end when main closes the device files.
		return nil
	case <-allGone:
		return fmt.Errorf("all input devices removed")
	}
}
