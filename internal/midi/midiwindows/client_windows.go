//go:build windows
// +build windows

package midiwindows

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/leandrodaf/buzzer/internal/midi"
	"github.com/leandrodaf/buzzer/sdk/contracts"
	"golang.org/x/sys/windows"
)

// Type definitions for MIDI handles
type HMIDIIN windows.Handle

// Constants for callback flags
const (
	CALLBACK_FUNCTION = 0x00030000 // Indicates that the callback is a function
	MIDI_IO_STATUS    = 0x00000020 // MIDI input/output status
)

// Constants for MIDI message types
const (
	MIM_OPEN      = 0x3C1 // MIDI device opened
	MIM_CLOSE     = 0x3C2 // MIDI device closed
	MIM_DATA      = 0x3C3 // MIDI data received
	MIM_ERROR     = 0x3C5 // MIDI error
	MIM_LONGERROR = 0x3C6 // Long MIDI error
	MIM_MOREDATA  = 0x3CC // More MIDI data available
)

// Struct representing MIDI device capabilities
type midiInCaps struct {
	wMid           uint16
	wPid           uint16
	vDriverVersion uint32
	szPname        [32]uint16
	dwSupport      uint32
}

// Load the winmm.dll library and required functions
var (
	winmm                = windows.NewLazySystemDLL("winmm.dll")
	procMidiInGetNumDevs = winmm.NewProc("midiInGetNumDevs")
	procMidiInGetDevCaps = winmm.NewProc("midiInGetDevCapsW")
	procMidiInOpen       = winmm.NewProc("midiInOpen")
	procMidiInStart      = winmm.NewProc("midiInStart")
	procMidiInStop       = winmm.NewProc("midiInStop")
	procMidiInClose      = winmm.NewProc("midiInClose")
)

// winmm hands dwInstance back to the callback. Clients are looked up by an id
// instead of passing a Go pointer through C.
var (
	callbackOnce sync.Once
	callback     uintptr

	clientsMu sync.RWMutex
	clients   = make(map[uintptr]*Client)
	nextID    uintptr
)

// Client reads note presses from a winmm MIDI input device.
type Client struct {
	*midi.Router

	logger contracts.Logger
	id     uintptr
	handle HMIDIIN
	mu     sync.Mutex
	open   bool
}

// NewMIDIInput creates a MIDI input for Windows. clientName is unused by winmm.
func NewMIDIInput(clientName string, logger contracts.Logger) (contracts.MIDIInput, error) {
	callbackOnce.Do(func() {
		callback = windows.NewCallback(midiInCallback)
	})

	clientsMu.Lock()
	nextID++
	m := &Client{
		Router: midi.NewRouter(logger),
		logger: logger,
		id:     nextID,
	}
	clients[m.id] = m
	clientsMu.Unlock()

	logger.Info("MIDI client created for Windows")
	return m, nil
}

// ListDevices lists the available MIDI input devices.
func (m *Client) ListDevices() ([]contracts.DeviceInfo, error) {
	r0, _, _ := procMidiInGetNumDevs.Call()
	numDevices := uint32(r0)
	if numDevices == 0 {
		m.logger.Warn(midi.ErrNoDevices.Error())
		return nil, midi.ErrNoDevices
	}

	devices := make([]contracts.DeviceInfo, numDevices)
	for i := uint32(0); i < numDevices; i++ {
		var caps midiInCaps
		r1, _, _ := procMidiInGetDevCaps.Call(
			uintptr(i),
			uintptr(unsafe.Pointer(&caps)),
			unsafe.Sizeof(caps),
		)
		if r1 != 0 {
			m.logger.Warn("Failed to get MIDI device capabilities", m.logger.Field().Int("deviceID", int(i)))
			continue
		}
		deviceName := windows.UTF16ToString(caps.szPname[:])
		devices[i] = contracts.DeviceInfo{
			Name:         deviceName,
			EntityName:   deviceName,
			Manufacturer: fmt.Sprintf("MID: %d PID: %d", caps.wMid, caps.wPid),
		}
	}
	return devices, nil
}

// SelectDevice opens the device and starts capturing, closing any previous one.
func (m *Client) SelectDevice(deviceID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r0, _, _ := procMidiInGetNumDevs.Call()
	if deviceID < 0 || deviceID >= int(r0) {
		m.logger.Error(midi.ErrInvalidDevice.Error(), m.logger.Field().Int("deviceID", deviceID))
		return fmt.Errorf("%w: %d", midi.ErrInvalidDevice, deviceID)
	}

	if m.open {
		if err := m.closeLocked(); err != nil {
			return fmt.Errorf("failed to close previous MIDI device: %w", err)
		}
	}

	r1, _, err := procMidiInOpen.Call(
		uintptr(unsafe.Pointer(&m.handle)),
		uintptr(deviceID),
		callback,
		m.id,
		uintptr(CALLBACK_FUNCTION|MIDI_IO_STATUS),
	)
	if r1 != 0 {
		m.logger.Error("Failed to open MIDI device", m.logger.Field().Int("deviceID", deviceID))
		return fmt.Errorf("failed to open MIDI device %d: %v", deviceID, err)
	}
	m.open = true

	r1, _, err = procMidiInStart.Call(uintptr(m.handle))
	if r1 != 0 {
		m.logger.Error("Failed to start MIDI capture", m.logger.Field().Int("deviceID", deviceID))
		_ = m.closeLocked()
		return fmt.Errorf("failed to start MIDI capture: %v", err)
	}

	m.logger.Info("MIDI device connected", m.logger.Field().Int("deviceID", deviceID))
	return nil
}

// midiInCallback processes incoming MIDI messages
func midiInCallback(hMidiIn uintptr, wMsg uint32, dwInstance uintptr, dwParam1 uintptr, dwParam2 uintptr) uintptr {
	clientsMu.RLock()
	m := clients[dwInstance]
	clientsMu.RUnlock()
	if m == nil {
		return 0
	}

	switch wMsg {
	case MIM_OPEN:
		m.logger.Info("MIDI device opened")
	case MIM_CLOSE:
		m.logger.Info("MIDI device closed")
	case MIM_DATA:
		m.Dispatch([]byte{
			byte(dwParam1 & 0xFF),
			byte((dwParam1 >> 8) & 0xFF),
			byte((dwParam1 >> 16) & 0xFF),
		})
	case MIM_ERROR, MIM_LONGERROR:
		m.logger.Error("MIDI error", m.logger.Field().Uint64("msg", uint64(wMsg)))
	case MIM_MOREDATA:
		m.logger.Debug("Received MIM_MOREDATA message; ignored")
	default:
		m.logger.Warn("Unknown MIDI message", m.logger.Field().Uint64("msg", uint64(wMsg)))
	}

	return 0
}

// Close stops capturing and closes the device. It is safe to call more than once.
func (m *Client) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.open {
		if err := m.closeLocked(); err != nil {
			return fmt.Errorf("failed to close MIDI device: %w", err)
		}
		m.logger.Info("MIDI capture stopped and device closed")
	}

	clientsMu.Lock()
	delete(clients, m.id)
	clientsMu.Unlock()
	return nil
}

func (m *Client) closeLocked() error {
	r1, _, err := procMidiInStop.Call(uintptr(m.handle))
	if r1 != 0 {
		return fmt.Errorf("midiInStop: %v", err)
	}

	r1, _, err = procMidiInClose.Call(uintptr(m.handle))
	if r1 != 0 {
		return fmt.Errorf("midiInClose: %v", err)
	}

	m.open = false
	m.handle = 0
	return nil
}
