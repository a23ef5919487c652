//go:build linux

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"syscall"

	"golang.org/x/sys/unix"
)

// epollWaitMS bounds how long a wait blocks before ctx is checked again.
const epollWaitMS = 200

// readDevices reads every device from a single goroutine using epoll.
//
// A device that reports an error or hangup is taken out of the set and its
// id is sent on removed; reading continues with the remaining devices. The
// function returns when ctx is canceled or no device is left.
func readDevices(ctx context.Context, devices []inputDevice, events chan<- deviceEvent, removed chan<- int, logger *slog.Logger) error {
	if len(devices) == 0 {
		return fmt.Errorf("no input devices provided")
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return fmt.Errorf("epoll_create1: %w", err)
	}
	defer unix.Close(epfd)

	byFd := make(map[int]inputDevice, len(devices))
	for _, dev := range devices {
		fd := int(dev.f.Fd())
		byFd[fd] = dev

		event := unix.EpollEvent{
			Events: unix.EPOLLIN,
			Fd:     int32(fd),
		}
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &event); err != nil {
			return fmt.Errorf("epoll_ctl_add %s: %w", dev.path, err)
		}
	}

	const maxEvents = 32
	epollEvents := make([]unix.EpollEvent, maxEvents)
	buf := make([]byte, inputEventSize)
	reader := bytes.NewReader(buf)

	drop := func(fd int, dev inputDevice, cause error) {
		_ = unix.EpollCtl(epfd, unix.EPOLL_CTL_DEL, fd, nil)
		delete(byFd, fd)
		logger.Warn("input device removed", "device", dev.path, "id", dev.id, "error", cause)
		select {
		case removed <- dev.id:
		case <-ctx.Done():
		}
	}

	for len(byFd) > 0 {
		if ctx.Err() != nil {
			return nil
		}

		n, err := unix.EpollWait(epfd, epollEvents, epollWaitMS)
		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			return fmt.Errorf("epoll_wait: %w", err)
		}

		for i := 0; i < n; i++ {
			fd := int(epollEvents[i].Fd)
			dev, ok := byFd[fd]
			if !ok {
				continue
			}

			if epollEvents[i].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
				drop(fd, dev, errors.New("device error/hangup"))
				continue
			}

			if _, err := dev.f.Read(buf); err != nil {
				drop(fd, dev, err)
				continue
			}

			ev, ok := decodeInputEvent(buf, reader)
			if !ok {
				continue
			}

			select {
			case events <- deviceEvent{device: dev.id, ev: ev}:
			case <-ctx.Done():
				return nil
			}
		}
	}

	return fmt.Errorf("all input devices removed")
}
