package droidshell

import (
	"log/slog"
	"sync"
)

// StickAxisState tracks the joystick axes of one input device.
type StickAxisState struct {
	DeviceID int
	Name     string

	// Axes are the joystick-class axis ids of the device, in range order.
	Axes []int

	// Values holds the last sampled value per axis index.
	Values []float32

	// Samples counts every value recorded, historical ones included.
	Samples uint64
}

func newStickAxisState(dev *InputDevice) *StickAxisState {
	axes := dev.JoystickAxes()
	return &StickAxisState{
		DeviceID: dev.ID,
		Name:     dev.Name,
		Axes:     axes,
		Values:   make([]float32, len(axes)),
	}
}

// Record stores the current value of every tracked axis from ev.
func (s *StickAxisState) Record(ev MotionEvent) {
	s.Samples += uint64(len(ev.History))
	for i, axis := range s.Axes {
		s.Values[i] = ev.AxisValue(axis)
	}
	s.Samples++
}

// Snapshot returns a copy of the last sampled values.
func (s *StickAxisState) Snapshot() []float32 {
	out := make([]float32, len(s.Values))
	copy(out, s.Values)
	return out
}

// DeviceRegistry maps device ids to their axis state. Entries are created on
// the first motion from a device and live until Remove is called for it.
type DeviceRegistry struct {
	mu      sync.Mutex
	devices map[int]*StickAxisState
	logger  *slog.Logger

	// onRemove runs after a device has been dropped.
	onRemove func(id int)
}

// NewDeviceRegistry creates an empty registry.
func NewDeviceRegistry(logger *slog.Logger) *DeviceRegistry {
	return &DeviceRegistry{
		devices: make(map[int]*StickAxisState),
		logger:  orDiscard(logger),
	}
}

// LoadOrCreate returns the state for dev, inserting it if absent. A nil
// device has no descriptor to build state from and yields nil.
func (r *DeviceRegistry) LoadOrCreate(dev *InputDevice) *StickAxisState {
	if dev == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if st, ok := r.devices[dev.ID]; ok {
		return st
	}
	st := newStickAxisState(dev)
	r.devices[dev.ID] = st
	r.logger.Info("input device added", "device_id", dev.ID, "name", dev.Name, "axes", st.Axes)
	return st
}

// Get returns the state for id, if any.
func (r *DeviceRegistry) Get(id int) (*StickAxisState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.devices[id]
	return st, ok
}

// Remove drops the state for id. It reports whether an entry existed.
func (r *DeviceRegistry) Remove(id int) bool {
	r.mu.Lock()
	_, ok := r.devices[id]
	delete(r.devices, id)
	onRemove := r.onRemove
	r.mu.Unlock()

	if ok {
		r.logger.Info("input device removed", "device_id", id)
		if onRemove != nil {
			onRemove(id)
		}
	}
	return ok
}

// Len returns the number of tracked devices.
func (r *DeviceRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.devices)
}
