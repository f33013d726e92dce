package report

import (
	"fmt"
	"math"
	"strings"
)

// Kind selects which part of the report a Command touches.
type Kind uint8

const (
	KindNop Kind = iota
	KindButton
	KindHat
	KindLeftStick
	KindRightStick
)

func (k Kind) String() string {
	switch k {
	case KindNop:
		return "nop"
	case KindButton:
		return "button"
	case KindHat:
		return "hat"
	case KindLeftStick:
		return "left_stick"
	case KindRightStick:
		return "right_stick"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Direction is one of the eight stick tilt directions plus center.
type Direction uint8

const (
	DirCenter Direction = iota
	DirUp
	DirUpRight
	DirRight
	DirDownRight
	DirDown
	DirDownLeft
	DirLeft
	DirUpLeft
)

var directionAxes = [...]struct {
	name string
	x, y uint8
}{
	DirCenter:    {"CENTER", StickCenter, StickCenter},
	DirUp:        {"UP", StickCenter, StickMin},
	DirUpRight:   {"UP_RIGHT", StickMax, StickMin},
	DirRight:     {"RIGHT", StickMax, StickCenter},
	DirDownRight: {"DOWN_RIGHT", StickMax, StickMax},
	DirDown:      {"DOWN", StickCenter, StickMax},
	DirDownLeft:  {"DOWN_LEFT", StickMin, StickMax},
	DirLeft:      {"LEFT", StickMin, StickCenter},
	DirUpLeft:    {"UP_LEFT", StickMin, StickMin},
}

func (d Direction) String() string {
	if int(d) < len(directionAxes) {
		return directionAxes[d].name
	}
	return fmt.Sprintf("Direction(%d)", uint8(d))
}

// Axes returns the stick values for d. Unknown directions are centered.
func (d Direction) Axes() (x, y uint8) {
	if int(d) >= len(directionAxes) {
		return StickCenter, StickCenter
	}
	a := directionAxes[d]
	return a.x, a.y
}

// Stick selects the left or right analog stick.
type Stick uint8

const (
	StickLeft Stick = iota
	StickRight
)

// Command is a symbolic input: a button, a hat direction, a stick tilt
// or a no-op. The zero value is a no-op.
type Command struct {
	Kind   Kind    `json:"kind"`
	Button Buttons `json:"button,omitempty"`
	Hat    Hat     `json:"hat,omitempty"`
	X      uint8   `json:"x,omitempty"`
	Y      uint8   `json:"y,omitempty"`
}

// Nop returns the no-op command used as padding and repeat markers.
func Nop() Command { return Command{} }

// Press returns a command that ORs b into the button bitmap.
func Press(b Buttons) Command {
	return Command{Kind: KindButton, Button: b & ButtonMask}
}

// HatPress returns a command that sets the hat to h.
func HatPress(h Hat) Command {
	return Command{Kind: KindHat, Hat: h}
}

// LeftStick tilts the left stick fully toward d.
func LeftStick(d Direction) Command {
	x, y := d.Axes()
	return Command{Kind: KindLeftStick, X: x, Y: y}
}

// RightStick tilts the right stick fully toward d.
func RightStick(d Direction) Command {
	x, y := d.Axes()
	return Command{Kind: KindRightStick, X: x, Y: y}
}

// StickAxes sets both axes of one stick to raw values.
func StickAxes(s Stick, x, y uint8) Command {
	if s == StickRight {
		return Command{Kind: KindRightStick, X: x, Y: y}
	}
	return Command{Kind: KindLeftStick, X: x, Y: y}
}

// Tilt tilts a stick by angle and power. Degrees run clockwise from up
// (0 = up, 90 = right); power is clamped to [0, 1].
func Tilt(s Stick, degrees, power float64) Command {
	power = math.Max(0, math.Min(1, power))
	rad := degrees * math.Pi / 180
	x := clampAxis(int(StickCenter) + int(math.Sin(rad)*power*127))
	y := clampAxis(int(StickCenter) - int(math.Cos(rad)*power*127))
	return StickAxes(s, x, y)
}

// Percent converts -100..100 to an axis value with 128 as center.
func Percent(p int) uint8 {
	return clampAxis(int(StickCenter) + p*127/100)
}

func clampAxis(v int) uint8 {
	if v < int(StickMin) {
		return StickMin
	}
	if v > int(StickMax) {
		return StickMax
	}
	return uint8(v)
}

// Apply mutates r with the command's effect. No-ops leave r untouched.
func (c Command) Apply(r *Report) {
	switch c.Kind {
	case KindButton:
		r.Buttons |= c.Button
	case KindHat:
		r.Hat = c.Hat
	case KindLeftStick:
		r.LX, r.LY = c.X, c.Y
	case KindRightStick:
		r.RX, r.RY = c.X, c.Y
	}
}

// ActiveIn reports whether the command's effect is visible in r.
// No-ops are never active.
func (c Command) ActiveIn(r Report) bool {
	switch c.Kind {
	case KindButton:
		return c.Button != 0 && r.Buttons&c.Button == c.Button
	case KindHat:
		return r.Hat == c.Hat
	case KindLeftStick:
		return r.LX == c.X && r.LY == c.Y
	case KindRightStick:
		return r.RX == c.X && r.RY == c.Y
	}
	return false
}

// Mirror flips the command vertically: hat and stick up becomes down and
// vice versa. Buttons and no-ops are returned unchanged.
func (c Command) Mirror() Command {
	switch c.Kind {
	case KindHat:
		switch c.Hat {
		case HatUp:
			c.Hat = HatDown
		case HatDown:
			c.Hat = HatUp
		case HatUpRight:
			c.Hat = HatDownRight
		case HatDownRight:
			c.Hat = HatUpRight
		case HatUpLeft:
			c.Hat = HatDownLeft
		case HatDownLeft:
			c.Hat = HatUpLeft
		}
	case KindLeftStick, KindRightStick:
		c.Y = mirrorAxis(c.Y)
	}
	return c
}

func mirrorAxis(v uint8) uint8 {
	switch v {
	case StickMin:
		return StickMax
	case StickMax:
		return StickMin
	case StickCenter:
		return StickCenter
	}
	return clampAxis(256 - int(v))
}

// String returns the symbolic name accepted by ParseCommand.
func (c Command) String() string {
	switch c.Kind {
	case KindNop:
		return "NOP"
	case KindButton:
		return c.Button.String()
	case KindHat:
		return "HAT_" + c.Hat.String()
	case KindLeftStick, KindRightStick:
		prefix := "LS"
		if c.Kind == KindRightStick {
			prefix = "RS"
		}
		for d, a := range directionAxes {
			if a.x == c.X && a.y == c.Y {
				return prefix + "_" + Direction(d).String()
			}
		}
		return fmt.Sprintf("%s(%d,%d)", prefix, c.X, c.Y)
	}
	return fmt.Sprintf("Command(%d)", uint8(c.Kind))
}

// ParseCommand resolves a symbolic name such as "A", "HOME", "HAT_UP",
// "LS_DOWN_LEFT" or "NOP". Matching is case-insensitive. Buttons may be
// combined with "|" ("A|B").
func ParseCommand(name string) (Command, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	if n == "" {
		return Command{}, fmt.Errorf("empty command name")
	}
	if n == "NOP" || n == "NONE" {
		return Nop(), nil
	}

	if rest, ok := strings.CutPrefix(n, "HAT_"); ok {
		for h, hn := range hatNames {
			if hn == rest {
				return HatPress(Hat(h)), nil
			}
		}
		return Command{}, fmt.Errorf("unknown hat direction %q", name)
	}

	for _, prefix := range []string{"LS_", "RS_"} {
		if rest, ok := strings.CutPrefix(n, prefix); ok {
			for d, a := range directionAxes {
				if a.name == rest {
					if prefix == "RS_" {
						return RightStick(Direction(d)), nil
					}
					return LeftStick(Direction(d)), nil
				}
			}
			return Command{}, fmt.Errorf("unknown stick direction %q", name)
		}
	}

	var b Buttons
	for _, part := range strings.Split(n, "|") {
		flag, ok := lookupButton(part)
		if !ok {
			return Command{}, fmt.Errorf("unknown command %q", name)
		}
		b |= flag
	}
	return Press(b), nil
}

func lookupButton(name string) (Buttons, bool) {
	for _, bn := range buttonNames {
		if bn.name == name {
			return bn.flag, true
		}
	}
	return 0, false
}
