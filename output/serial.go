package output

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/Davec6505/Pic32mzCNC-V2-sub004/common/logger"
	"github.com/Davec6505/Pic32mzCNC-V2-sub004/motion"
	"github.com/tarm/serial"
)

// Frame layout shipped to the pulse-generator board. Rates are signed
// steps-per-second; the sign carries direction so rate and direction
// updates are atomic on the wire.
//
//	byte 0     sync (0xA5)
//	byte 1     sequence
//	byte 2     opcode
//	byte 3     axis
//	bytes 4-7  rate, int32 little-endian
//	bytes 8-9  crc16 over bytes 0-7
const (
	frameSync = 0xA5
	frameLen  = 10

	opSetRate = 0x01
	opEnable  = 0x02
	opDisable = 0x03
)

// SerialPort is a StepOutputPort writing rate frames over a serial
// link. Writes are buffered per call; a write failure is reported once
// and the port goes silent until Enable succeeds again, so a dead
// link cannot stall the tick context with repeated I/O errors.
type SerialPort struct {
	w       io.WriteCloser
	seq     uint8
	forward [motion.NumAxes]bool
	failed  bool
}

// OpenSerial opens the pulse-generator link at the given device and
// baud rate.
func OpenSerial(device string, baud int) (*SerialPort, error) {
	port, err := serial.OpenPort(&serial.Config{Name: device, Baud: baud})
	if err != nil {
		return nil, fmt.Errorf("open pulse link %s: %w", device, err)
	}
	return NewSerialPort(port), nil
}

// NewSerialPort wraps an already-open writer, which the tests use.
func NewSerialPort(w io.WriteCloser) *SerialPort {
	p := &SerialPort{w: w}
	for i := range p.forward {
		p.forward[i] = true
	}
	return p
}

func (p *SerialPort) SetStepRate(axis int, stepsPerSecond float64) {
	rate := int32(math.Round(stepsPerSecond))
	if !p.forward[axis] {
		rate = -rate
	}
	p.send(opSetRate, uint8(axis), rate)
}

func (p *SerialPort) SetDirection(axis int, forward bool) {
	p.forward[axis] = forward
}

func (p *SerialPort) Enable() error {
	p.failed = false
	p.send(opEnable, 0, 0)
	if p.failed {
		return fmt.Errorf("pulse link enable failed")
	}
	return nil
}

func (p *SerialPort) Disable() error {
	p.send(opDisable, 0, 0)
	return nil
}

func (p *SerialPort) Close() error { return p.w.Close() }

func (p *SerialPort) send(op, axis uint8, rate int32) {
	if p.failed {
		return
	}
	var frame [frameLen]byte
	frame[0] = frameSync
	frame[1] = p.seq
	frame[2] = op
	frame[3] = axis
	binary.LittleEndian.PutUint32(frame[4:8], uint32(rate))
	binary.LittleEndian.PutUint16(frame[8:10], crc16(frame[:8]))
	p.seq++
	if _, err := p.w.Write(frame[:]); err != nil {
		p.failed = true
		logger.Errorf("pulse link write failed: %v", err)
	}
}

var _ motion.StepOutputPort = (*SerialPort)(nil)
