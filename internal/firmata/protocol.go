package firmata

import "github.com/leandrodaf/buzzer/sdk/contracts"

const (
	// Message command bytes (128-255 / 0x80-0xFF), from Firmata.h.
	digitalMessage byte = 0x90 // Send data for a digital port.
	analogMessage  byte = 0xE0 // Send data for an analog pin.
	reportAnalog   byte = 0xC0 // Enable analog input by pin #.
	reportDigital  byte = 0xD0 // Enable digital input by port.
	setPinMode     byte = 0xF4 // Set the pin mode.
	reportVersion  byte = 0xF9 // Report protocol version.
	startSysex     byte = 0xF0 // Start a sysex message.
	endSysex       byte = 0xF7 // End a sysex message.

	// Extended commands carried in sysex (0x00-0x7F).
	reportFirmware   byte = 0x79 // Name and version of the firmware.
	samplingInterval byte = 0x7A // Poll rate of the board's main loop.
	toneCommand      byte = 0x7E // Tone request handled by the buzzer sketch.

	// Pin modes.
	modeInput       byte = 0x00
	modeOutput      byte = 0x01
	modeInputPullup byte = 0x0B

	// DefaultBaud is the baud rate StandardFirmata expects.
	DefaultBaud = 57600

	max14 = 0x3FFF // Largest value two 7-bit data bytes can carry.

	analogFullScale = 1023.0
)

func pinToPort(pin contracts.PinID) byte {
	return byte(pin>>3) & 0x0F
}

// split14 encodes v as two 7-bit data bytes, clamping values that do not fit.
func split14(v uint16) (lsb, msb byte) {
	if v > max14 {
		v = max14
	}
	return byte(v & 0x7F), byte((v >> 7) & 0x7F)
}

func wrapInSysex(cmd byte, data ...byte) []byte {
	msg := make([]byte, 0, len(data)+3)
	msg = append(msg, startSysex, cmd)
	msg = append(msg, data...)
	return append(msg, endSysex)
}

func toneMessage(pin contracts.PinID, freqHz, durationMs uint16) []byte {
	fl, fm := split14(freqHz)
	dl, dm := split14(durationMs)
	return wrapInSysex(toneCommand, byte(pin)&0x7F, fl, fm, dl, dm)
}

func pinModeMessage(pin contracts.PinID, mode byte) []byte {
	return []byte{setPinMode, byte(pin) & 0x7F, mode}
}

func digitalPortMessage(port, mask byte) []byte {
	return []byte{digitalMessage | (port & 0x0F), mask & 0x7F, (mask >> 7) & 0x7F}
}

func reportDigitalMessage(port byte, enable bool) []byte {
	return []byte{reportDigital | (port & 0x0F), boolToByte(enable)}
}

func reportAnalogMessage(pin contracts.PinID, enable bool) []byte {
	return []byte{reportAnalog | (byte(pin) & 0x0F), boolToByte(enable)}
}

func samplingIntervalMessage(ms uint16) []byte {
	lsb, msb := split14(ms)
	return wrapInSysex(samplingInterval, lsb, msb)
}

func boolToByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
