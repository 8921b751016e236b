package contracts

// DeviceInfo contains information about a MIDI input device usable as a trigger source.
type DeviceInfo struct {
	Name         string // Device name.
	Manufacturer string // Device manufacturer.
	EntityName   string // Name of the entity to which the device belongs.
}

// MIDIInput is a MIDI controller whose keys act as trigger sources of kind MIDINote.
type MIDIInput interface {
	InputNotifier
	ListDevices() ([]DeviceInfo, error) // Lists the available MIDI input devices.
	SelectDevice(deviceID int) error    // Connects to the device at the given index of ListDevices.
	Close() error                       // Disconnects from the device; safe to call more than once.
}
