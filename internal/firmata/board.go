// Package firmata implements contracts.Board for a StandardFirmata sketch with
// a tone sysex handler, over any byte stream or a serial port.
package firmata

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/leandrodaf/buzzer/internal/logger"
	"github.com/leandrodaf/buzzer/sdk/contracts"
	"github.com/tarm/serial"
)

var (
	ErrClosed            = errors.New("firmata board closed")
	ErrUnsupportedSource = errors.New("source kind not available on a firmata board")
)

// Board talks Firmata over conn. Output calls never fail: write errors are
// logged and dropped. Input handlers run on the board's reader goroutine.
type Board struct {
	conn   io.ReadWriteCloser
	logger contracts.Logger

	// Set by Open: serial reads time out with io.EOF instead of blocking.
	eofIsTimeout bool
	pullUp       bool
	sampling     time.Duration

	wmu      sync.Mutex
	outPorts [16]byte
	outputs  map[contracts.PinID]bool

	mu       sync.Mutex
	digital  map[contracts.PinID][]contracts.InputHandler
	analog   map[contracts.PinID][]contracts.InputHandler
	inPorts  [16]byte
	seen     [16]bool
	reported map[byte]bool
	firmware string
	version  string

	parser    parser
	ready     chan struct{}
	readyOnce sync.Once
	closed    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// Option configures a Board.
type Option func(*Board)

// WithLogger sets the logger.
func WithLogger(l contracts.Logger) Option {
	return func(b *Board) {
		b.logger = l
	}
}

// WithPullUp configures digital inputs with the internal pull-up resistor.
// Buttons wired to ground then read 0 when pressed.
func WithPullUp() Option {
	return func(b *Board) {
		b.pullUp = true
	}
}

// WithSamplingInterval sets how often the board reports analog inputs.
func WithSamplingInterval(d time.Duration) Option {
	return func(b *Board) {
		b.sampling = d
	}
}

// New starts a board on an open stream.
func New(conn io.ReadWriteCloser, opts ...Option) *Board {
	b := &Board{
		conn:     conn,
		logger:   logger.NewNopLogger(),
		outputs:  make(map[contracts.PinID]bool),
		digital:  make(map[contracts.PinID][]contracts.InputHandler),
		analog:   make(map[contracts.PinID][]contracts.InputHandler),
		reported: make(map[byte]bool),
		ready:    make(chan struct{}),
		closed:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.readLoop()

	if b.sampling > 0 {
		b.write(samplingIntervalMessage(uint16(b.sampling / time.Millisecond)))
	}
	return b
}

// Open opens a serial port and waits up to readyTimeout for the board to
// announce itself. A silent board is used anyway, with a warning.
func Open(name string, baud int, readyTimeout time.Duration, opts ...Option) (*Board, error) {
	if baud == 0 {
		baud = DefaultBaud
	}
	port, err := serial.OpenPort(&serial.Config{Name: name, Baud: baud, ReadTimeout: 100 * time.Millisecond})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}

	opts = append([]Option{func(b *Board) { b.eofIsTimeout = true }}, opts...)
	b := New(port, opts...)
	b.logger.Info("Serial port opened",
		b.logger.Field().String("port", name),
		b.logger.Field().Int("baud", baud))

	b.write([]byte{reportVersion})
	select {
	case <-b.ready:
		b.logger.Info("Board ready",
			b.logger.Field().String("firmware", b.Firmware()),
			b.logger.Field().String("protocol", b.Version()))
	case <-time.After(readyTimeout):
		b.logger.Warn("Board did not report its version; continuing",
			b.logger.Field().Duration("timeout", readyTimeout))
	}
	return b, nil
}

// Ready is closed once the board has reported its protocol version or firmware.
func (b *Board) Ready() <-chan struct{} {
	return b.ready
}

// Firmware returns the firmware name reported by the board, if any.
func (b *Board) Firmware() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.firmware
}

// Version returns the protocol version reported by the board, if any.
func (b *Board) Version() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version
}

// SendTone asks the board to play freqHz on pin for durationMs. Values above
// 14 bits are clamped.
func (b *Board) SendTone(pin contracts.PinID, freqHz, durationMs uint16) {
	if freqHz > max14 || durationMs > max14 {
		b.logger.Debug("Tone clamped to 14 bits",
			b.logger.Field().Uint16("hz", freqHz),
			b.logger.Field().Uint16("durationMs", durationMs))
	}
	b.wmu.Lock()
	defer b.wmu.Unlock()
	b.ensureOutputLocked(pin)
	b.writeLocked(toneMessage(pin, freqHz, durationMs))
}

// SetDigitalOutput drives pin high or low.
func (b *Board) SetDigitalOutput(pin contracts.PinID, high bool) {
	b.wmu.Lock()
	defer b.wmu.Unlock()
	b.ensureOutputLocked(pin)

	port := pinToPort(pin)
	bit := byte(1) << (pin & 0x07)
	if high {
		b.outPorts[port] |= bit
	} else {
		b.outPorts[port] &^= bit
	}
	b.writeLocked(digitalPortMessage(port, b.outPorts[port]))
}

func (b *Board) ensureOutputLocked(pin contracts.PinID) {
	if b.outputs[pin] {
		return
	}
	b.outputs[pin] = true
	b.writeLocked(pinModeMessage(pin, modeOutput))
}

// OnInputChange configures src as an input, enables reporting and registers handler.
// Digital handlers fire when the pin changes; analog handlers fire on every sample.
func (b *Board) OnInputChange(src contracts.Source, handler contracts.InputHandler) error {
	select {
	case <-b.closed:
		return ErrClosed
	default:
	}

	switch src.Kind {
	case contracts.Digital:
		mode := modeInput
		if b.pullUp {
			mode = modeInputPullup
		}
		port := pinToPort(src.Pin)

		b.mu.Lock()
		b.digital[src.Pin] = append(b.digital[src.Pin], handler)
		enable := !b.reported[port]
		b.reported[port] = true
		b.mu.Unlock()

		b.write(pinModeMessage(src.Pin, mode))
		if enable {
			b.write(reportDigitalMessage(port, true))
		}

	case contracts.Analog:
		b.mu.Lock()
		b.analog[src.Pin] = append(b.analog[src.Pin], handler)
		b.mu.Unlock()

		b.write(reportAnalogMessage(src.Pin, true))

	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedSource, src)
	}

	b.logger.Debug("Input registered", b.logger.Field().String("source", src.String()))
	return nil
}

func (b *Board) write(msg []byte) {
	b.wmu.Lock()
	defer b.wmu.Unlock()
	b.writeLocked(msg)
}

func (b *Board) writeLocked(msg []byte) {
	select {
	case <-b.closed:
		return
	default:
	}
	if _, err := b.conn.Write(msg); err != nil {
		b.logger.Warn("Firmata write failed", b.logger.Field().Error("error", err))
	}
}

func (b *Board) isClosed() bool {
	select {
	case <-b.closed:
		return true
	default:
		return false
	}
}

func (b *Board) readLoop() {
	defer close(b.done)

	buf := make([]byte, 64)
	for {
		n, err := b.conn.Read(buf)
		for _, c := range buf[:n] {
			if msg, ok := b.parser.feed(c); ok {
				b.dispatch(msg)
			}
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) && b.eofIsTimeout && !b.isClosed() {
			continue
		}
		if !b.isClosed() {
			b.logger.Error("Firmata read failed; input reporting stopped", b.logger.Field().Error("error", err))
		}
		return
	}
}

func (b *Board) dispatch(msg message) {
	switch msg.kind {
	case digitalReport:
		b.dispatchDigital(msg.channel, byte(msg.value))

	case analogReport:
		raw := float64(msg.value) / analogFullScale
		if raw > 1 {
			raw = 1
		}
		b.mu.Lock()
		hs := append([]contracts.InputHandler(nil), b.analog[contracts.PinID(msg.channel)]...)
		b.mu.Unlock()
		for _, h := range hs {
			h(raw)
		}

	case versionReport:
		b.mu.Lock()
		b.version = fmt.Sprintf("%d.%d", msg.value>>8, msg.value&0xFF)
		b.mu.Unlock()
		b.markReady()

	case sysexReport:
		if len(msg.data) >= 3 && msg.data[0] == reportFirmware {
			b.mu.Lock()
			b.firmware = decode7bitString(msg.data[3:])
			if b.version == "" {
				b.version = fmt.Sprintf("%d.%d", msg.data[1], msg.data[2])
			}
			b.mu.Unlock()
			b.markReady()
		}
	}
}

func (b *Board) dispatchDigital(port, value byte) {
	type call struct {
		h   contracts.InputHandler
		raw float64
	}
	var calls []call

	b.mu.Lock()
	prev, seen := b.inPorts[port], b.seen[port]
	b.inPorts[port] = value
	b.seen[port] = true
	for pin, hs := range b.digital {
		if pinToPort(pin) != port {
			continue
		}
		bit := byte(1) << (pin & 0x07)
		if seen && prev&bit == value&bit {
			continue
		}
		raw := 0.0
		if value&bit != 0 {
			raw = 1
		}
		for _, h := range hs {
			calls = append(calls, call{h, raw})
		}
	}
	b.mu.Unlock()

	for _, c := range calls {
		c.h(c.raw)
	}
}

func (b *Board) markReady() {
	b.readyOnce.Do(func() { close(b.ready) })
}

// Close stops the reader goroutine and closes the stream. It is idempotent.
func (b *Board) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.closed)
		b.wmu.Lock()
		err = b.conn.Close()
		b.wmu.Unlock()
		<-b.done
		b.logger.Info("Board connection closed")
	})
	return err
}
