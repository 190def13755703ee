package fullscreen

import (
	"regexp"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Mode is the current fullscreen presentation
type Mode int

const (
	Normal Mode = iota
	Pseudo      // CSS-only fullscreen: the wrapper fills the viewport
	Native      // the browser's element fullscreen
	IOS         // overlay mode for devices without element fullscreen
)

func (m Mode) String() string {
	switch m {
	case Pseudo:
		return "pseudo"
	case Native:
		return "native"
	case IOS:
		return "ios"
	default:
		return "normal"
	}
}

// Device decides which modes are available
type Device int

const (
	Desktop Device = iota
	IOSDevice
)

func (d Device) String() string {
	if d == IOSDevice {
		return "ios"
	}
	return "desktop"
}

var iosPattern = regexp.MustCompile(`iPad|iPhone|iPod`)

// DetectDevice classifies a user agent
func DetectDevice(userAgent string) Device {
	if iosPattern.MatchString(userAgent) {
		return IOSDevice
	}
	return Desktop
}

// Reasons passed to ForceNormal
const (
	ReasonNavigation = "navigation"
	ReasonHidden     = "hidden"
	ReasonQuit       = "quit"
)

// DefaultDebounce collapses repeated triggers, e.g. a touchend followed by a click
const DefaultDebounce = 250 * time.Millisecond

var (
	ErrModeActive  = errors.New("another fullscreen mode is active")
	ErrDebounced   = errors.New("fullscreen trigger ignored")
	ErrUnsupported = errors.New("fullscreen mode not supported on this device")
)

// Surface is whatever actually shows the game: a browser tab, a terminal.
// Apply is called with Normal to restore the page.
type Surface interface {
	Apply(mode Mode) error
	LockLandscape() error
	UnlockOrientation()
}

// Options configures a Machine
type Options struct {
	Debounce time.Duration
	Now      func() time.Time
	Logger   *zap.Logger
}

// Machine tracks the fullscreen mode and drives a Surface through transitions
type Machine struct {
	mu sync.Mutex

	surface  Surface
	device   Device
	debounce time.Duration
	now      func() time.Time
	logger   *zap.Logger

	mode     Mode
	started  bool
	lastTrig time.Time
}

// New creates a machine in Normal mode
func New(surface Surface, device Device, opts Options) *Machine {
	m := &Machine{
		surface:  surface,
		device:   device,
		debounce: opts.Debounce,
		now:      opts.Now,
		logger:   opts.Logger,
	}
	if m.debounce <= 0 {
		m.debounce = DefaultDebounce
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	return m
}

// Mode returns the current mode
func (m *Machine) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Device returns the device class the machine was built for
func (m *Machine) Device() Device { return m.device }

// SetStarted records whether the game has started; the enter buttons are
// hidden until it has
func (m *Machine) SetStarted(started bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = started
}

// DefaultMode is what Toggle enters on this device
func (m *Machine) DefaultMode() Mode {
	if m.device == IOSDevice {
		return IOS
	}
	return Pseudo
}

func (m *Machine) supports(mode Mode) bool {
	switch mode {
	case Normal:
		return true
	case IOS:
		return m.device == IOSDevice
	case Pseudo, Native:
		return m.device == Desktop
	}
	return false
}

// Toggle enters the device's default mode, or leaves whatever mode is active
func (m *Machine) Toggle() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode != Normal {
		return m.trigger(Normal)
	}
	return m.trigger(m.DefaultMode())
}

// ToggleNative enters or leaves native fullscreen
func (m *Machine) ToggleNative() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode == Native {
		return m.trigger(Normal)
	}
	return m.trigger(Native)
}

// Enter switches to mode from Normal. Entering one fullscreen mode while
// another is active fails with ErrModeActive.
func (m *Machine) Enter(mode Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trigger(mode)
}

// Exit returns to Normal
func (m *Machine) Exit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trigger(Normal)
}

// trigger is a user-initiated transition, subject to the debounce window
func (m *Machine) trigger(target Mode) error {
	if !m.supports(target) {
		return ErrUnsupported
	}
	if target == m.mode {
		return nil
	}
	if target != Normal && m.mode != Normal {
		return ErrModeActive
	}

	now := m.now()
	if !m.lastTrig.IsZero() && now.Sub(m.lastTrig) < m.debounce {
		return ErrDebounced
	}
	if err := m.transition(target); err != nil {
		return err
	}
	m.lastTrig = now
	return nil
}

func (m *Machine) transition(target Mode) error {
	if err := m.surface.Apply(target); err != nil {
		return errors.Wrapf(err, "apply %s", target)
	}
	prev := m.mode
	m.mode = target

	if target == Normal {
		m.surface.UnlockOrientation()
	} else if err := m.surface.LockLandscape(); err != nil {
		m.logger.Debug("orientation lock unavailable", zap.Error(err))
	}

	m.logger.Info("fullscreen", zap.Stringer("from", prev), zap.Stringer("to", target))
	return nil
}

// ForceNormal leaves any mode immediately, ignoring the debounce window.
// Used when the page is navigated away from or hidden.
func (m *Machine) ForceNormal(reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode == Normal {
		return nil
	}
	m.logger.Info("forced fullscreen exit", zap.String("reason", reason))
	return m.transition(Normal)
}

// SyncNative reflects a native fullscreen change made outside the machine,
// such as the user pressing Esc. Pseudo mode survives a native exit and is
// re-applied.
func (m *Machine) SyncNative(active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case active && m.mode == Normal && m.device == Desktop:
		m.mode = Native
		return nil
	case !active && m.mode == Native:
		return m.transition(Normal)
	case !active && m.mode == Pseudo:
		return errors.Wrap(m.surface.Apply(Pseudo), "reapply pseudo")
	}
	return nil
}

// Reapply redraws the current mode, e.g. after an orientation change
func (m *Machine) Reapply() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode == Normal {
		return nil
	}
	return errors.Wrapf(m.surface.Apply(m.mode), "reapply %s", m.mode)
}

// Controls says which buttons a presentation should show
type Controls struct {
	Enter       bool // default-mode enter button
	EnterNative bool
	Exit        bool // exit for pseudo and iOS modes
	ExitNative  bool
}

// Controls derives button visibility from the current mode. At most one
// exit affordance is visible, and only while a fullscreen mode is active.
func (m *Machine) Controls() Controls {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.mode {
	case Native:
		return Controls{ExitNative: true}
	case Pseudo, IOS:
		return Controls{Exit: true}
	}
	if !m.started {
		return Controls{}
	}
	return Controls{Enter: true, EnterNative: m.device == Desktop}
}
