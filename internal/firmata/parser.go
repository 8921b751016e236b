package firmata

type messageKind int

const (
	digitalReport messageKind = iota
	analogReport
	versionReport
	sysexReport
)

// maxSysex bounds buffered sysex payloads from a misbehaving board.
const maxSysex = 1024

type message struct {
	kind    messageKind
	channel byte   // Port for digital reports, pin for analog reports.
	value   uint16 // 14-bit payload; major/minor for version reports.
	data    []byte // Sysex payload without start/end bytes.
}

// parser reassembles Firmata messages from a byte stream.
type parser struct {
	buf     []byte
	need    int
	inSysex bool
}

// feed consumes one byte and returns a message when one is complete.
func (p *parser) feed(b byte) (message, bool) {
	if p.inSysex {
		if b == endSysex {
			p.inSysex = false
			data := append([]byte(nil), p.buf...)
			p.buf = p.buf[:0]
			return message{kind: sysexReport, data: data}, true
		}
		if len(p.buf) < maxSysex {
			p.buf = append(p.buf, b)
		}
		return message{}, false
	}

	if b&0x80 != 0 {
		p.buf = p.buf[:0]
		p.need = 0

		cmd := b
		if b < 0xF0 {
			cmd = b & 0xF0
		}
		switch cmd {
		case startSysex:
			p.inSysex = true
		case digitalMessage, analogMessage, reportVersion:
			p.buf = append(p.buf, b)
			p.need = 2
		}
		return message{}, false
	}

	if p.need == 0 {
		return message{}, false
	}
	p.buf = append(p.buf, b)
	p.need--
	if p.need > 0 {
		return message{}, false
	}

	status, lsb, msb := p.buf[0], p.buf[1], p.buf[2]
	p.buf = p.buf[:0]
	value := uint16(lsb) | uint16(msb)<<7

	switch {
	case status == reportVersion:
		return message{kind: versionReport, value: uint16(lsb)<<8 | uint16(msb)}, true
	case status&0xF0 == digitalMessage:
		return message{kind: digitalReport, channel: status & 0x0F, value: value}, true
	default:
		return message{kind: analogReport, channel: status & 0x0F, value: value}, true
	}
}

// decode7bitString decodes text sent as LSB/MSB pairs of 7-bit bytes.
func decode7bitString(data []byte) string {
	out := make([]byte, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		out = append(out, data[i]|data[i+1]<<7)
	}
	return string(out)
}
