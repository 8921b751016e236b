//go:build darwin
// +build darwin

package mididarwin

import (
	"errors"
	"fmt"
	"sync"

	"github.com/leandrodaf/buzzer/internal/midi"
	"github.com/leandrodaf/buzzer/sdk/contracts"
	"github.com/youpy/go-coremidi"
)

var (
	ErrMIDIConnectionError = errors.New("error connecting to MIDI device")
	ErrCreateInputPort     = errors.New("error creating input port")
)

// internalPortConnection is an interface for handling disconnection from a MIDI port.
type internalPortConnection interface {
	Disconnect()
}

// Client reads note presses from a CoreMIDI source on macOS.
type Client struct {
	*midi.Router

	logger    contracts.Logger
	client    coremidi.Client
	inputPort coremidi.InputPort
	portConn  internalPortConnection
	mu        sync.Mutex
	closed    bool
	wg        sync.WaitGroup // In-flight CoreMIDI callbacks.
}

// NewMIDIInput creates a CoreMIDI client named clientName.
func NewMIDIInput(clientName string, logger contracts.Logger) (contracts.MIDIInput, error) {
	client, err := coremidi.NewClient(clientName)
	if err != nil {
		return nil, err
	}
	logger.Info("MIDI client successfully created", logger.Field().String("name", clientName))

	return &Client{
		Router: midi.NewRouter(logger),
		logger: logger,
		client: client,
	}, nil
}

// ListDevices retrieves and returns available MIDI sources.
func (m *Client) ListDevices() ([]contracts.DeviceInfo, error) {
	sources, err := coremidi.AllSources()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI sources: %w", err)
	}
	if len(sources) == 0 {
		m.logger.Warn(midi.ErrNoDevices.Error())
		return nil, midi.ErrNoDevices
	}

	devices := make([]contracts.DeviceInfo, len(sources))
	for i, source := range sources {
		sourceEntity := source.Entity()
		devices[i] = contracts.DeviceInfo{
			Name:         source.Name(),
			EntityName:   sourceEntity.Name(),
			Manufacturer: sourceEntity.Manufacturer(),
		}
	}
	return devices, nil
}

// SelectDevice connects to the source at deviceID, dropping any previous connection.
func (m *Client) SelectDevice(deviceID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("%w: client closed", midi.ErrInvalidDevice)
	}

	sources, err := coremidi.AllSources()
	if err != nil {
		return fmt.Errorf("error retrieving MIDI sources: %w", err)
	}
	if deviceID < 0 || deviceID >= len(sources) {
		m.logger.Error(midi.ErrInvalidDevice.Error(), m.logger.Field().Int("deviceID", deviceID))
		return fmt.Errorf("%w: %d", midi.ErrInvalidDevice, deviceID)
	}

	if m.portConn != nil {
		m.portConn.Disconnect()
		m.portConn = nil
	}

	source := sources[deviceID]
	m.logger.Info("MIDI device selected",
		m.logger.Field().Int("deviceID", deviceID),
		m.logger.Field().String("deviceName", source.Name()))

	m.inputPort, err = coremidi.NewInputPort(m.client, "Buzzer Input", m.handleMIDIMessage)
	if err != nil {
		m.logger.Error(ErrCreateInputPort.Error())
		return fmt.Errorf("%w: %v", ErrCreateInputPort, err)
	}

	m.portConn, err = m.inputPort.Connect(source)
	if err != nil {
		m.logger.Error(ErrMIDIConnectionError.Error())
		return fmt.Errorf("%w: %v", ErrMIDIConnectionError, err)
	}

	m.logger.Info("MIDI device successfully connected")
	return nil
}

func (m *Client) handleMIDIMessage(_ coremidi.Source, packet coremidi.Packet) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.wg.Add(1)
	m.mu.Unlock()
	defer m.wg.Done()

	m.Dispatch(packet.Data)
}

// Close disconnects from the device and waits for callbacks in flight.
func (m *Client) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	if m.portConn != nil {
		m.portConn.Disconnect()
		m.portConn = nil
	}
	m.mu.Unlock()

	m.wg.Wait()
	m.logger.Info("MIDI input closed")
	return nil
}
