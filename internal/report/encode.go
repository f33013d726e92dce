package report

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// BinarySize is the length of the HID gamepad report in bytes.
const BinarySize = 8

// Serial line flags carried in the two low bits of the button field.
const (
	serialRightStick = 0x1
	serialLeftStick  = 0x2
)

// MarshalBinary encodes r into the 8-byte HID layout:
//
//	0-1: buttons (LE uint16)
//	2:   hat
//	3-6: lx, ly, rx, ry
//	7:   vendor (0)
func (r Report) MarshalBinary() ([]byte, error) {
	b := make([]byte, BinarySize)
	binary.LittleEndian.PutUint16(b[0:2], uint16(r.Buttons&ButtonMask))
	b[2] = uint8(r.Hat)
	b[3] = r.LX
	b[4] = r.LY
	b[5] = r.RX
	b[6] = r.RY
	return b, nil
}

// UnmarshalBinary decodes the 8-byte HID layout.
func (r *Report) UnmarshalBinary(b []byte) error {
	if len(b) < BinarySize {
		return fmt.Errorf("report: need %d bytes, got %d", BinarySize, len(b))
	}
	r.Buttons = Buttons(binary.LittleEndian.Uint16(b[0:2])) & ButtonMask
	r.Hat = Hat(b[2])
	r.LX, r.LY, r.RX, r.RY = b[3], b[4], b[5], b[6]
	return nil
}

// String renders the serial text line understood by the firmware:
// the button bitmap shifted left by two with both stick flags set, the
// hat in decimal, then the four axes in hex.
//
//	0x0013 8 80 80 80 80
func (r Report) String() string {
	btn := uint32(r.Buttons&ButtonMask)<<2 | serialLeftStick | serialRightStick
	return fmt.Sprintf("0x%04x %d %x %x %x %x", btn, uint8(r.Hat), r.LX, r.LY, r.RX, r.RY)
}

// ParseSerial parses a serial text line. Stick fields are present only
// when the matching flag bit is set; absent sticks are centered.
func ParseSerial(line string) (Report, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Report{}, fmt.Errorf("report: serial line needs at least buttons and hat: %q", line)
	}

	raw, err := strconv.ParseUint(fields[0], 0, 32)
	if err != nil {
		return Report{}, fmt.Errorf("report: buttons %q: %w", fields[0], err)
	}
	hat, err := strconv.ParseUint(fields[1], 10, 8)
	if err != nil {
		return Report{}, fmt.Errorf("report: hat %q: %w", fields[1], err)
	}
	if hat > uint64(HatCenter) {
		return Report{}, fmt.Errorf("report: hat %d out of range", hat)
	}

	r := Neutral()
	r.Buttons = Buttons(raw>>2) & ButtonMask
	r.Hat = Hat(hat)

	rest := fields[2:]
	axes := func(name string) (uint8, uint8, error) {
		if len(rest) < 2 {
			return 0, 0, fmt.Errorf("report: missing %s stick axes", name)
		}
		x, err := strconv.ParseUint(rest[0], 16, 8)
		if err != nil {
			return 0, 0, fmt.Errorf("report: %s x %q: %w", name, rest[0], err)
		}
		y, err := strconv.ParseUint(rest[1], 16, 8)
		if err != nil {
			return 0, 0, fmt.Errorf("report: %s y %q: %w", name, rest[1], err)
		}
		rest = rest[2:]
		return uint8(x), uint8(y), nil
	}

	if raw&serialLeftStick != 0 {
		if r.LX, r.LY, err = axes("left"); err != nil {
			return Report{}, err
		}
	}
	if raw&serialRightStick != 0 {
		if r.RX, r.RY, err = axes("right"); err != nil {
			return Report{}, err
		}
	}
	if len(rest) != 0 {
		return Report{}, fmt.Errorf("report: trailing fields in %q", line)
	}
	return r, nil
}
