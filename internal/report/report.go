package report

import (
	"fmt"
	"strings"
)

// Buttons is the 14-flag button bitmap.
type Buttons uint16

const (
	ButtonY Buttons = 1 << iota
	ButtonB
	ButtonA
	ButtonX
	ButtonL
	ButtonR
	ButtonZL
	ButtonZR
	ButtonMinus
	ButtonPlus
	ButtonLClick
	ButtonRClick
	ButtonHome
	ButtonCapture

	// ButtonMask covers every defined flag.
	ButtonMask Buttons = 1<<14 - 1
)

var buttonNames = []struct {
	flag Buttons
	name string
}{
	{ButtonY, "Y"},
	{ButtonB, "B"},
	{ButtonA, "A"},
	{ButtonX, "X"},
	{ButtonL, "L"},
	{ButtonR, "R"},
	{ButtonZL, "ZL"},
	{ButtonZR, "ZR"},
	{ButtonMinus, "MINUS"},
	{ButtonPlus, "PLUS"},
	{ButtonLClick, "LCLICK"},
	{ButtonRClick, "RCLICK"},
	{ButtonHome, "HOME"},
	{ButtonCapture, "CAPTURE"},
}

// String lists the set flags joined with "|", or "NONE".
func (b Buttons) String() string {
	if b&ButtonMask == 0 {
		return "NONE"
	}
	var parts []string
	for _, bn := range buttonNames {
		if b&bn.flag != 0 {
			parts = append(parts, bn.name)
		}
	}
	return strings.Join(parts, "|")
}

// Hat is the 9-way directional pad value.
type Hat uint8

const (
	HatUp Hat = iota
	HatUpRight
	HatRight
	HatDownRight
	HatDown
	HatDownLeft
	HatLeft
	HatUpLeft
	HatCenter
)

var hatNames = [...]string{
	HatUp:        "UP",
	HatUpRight:   "UP_RIGHT",
	HatRight:     "RIGHT",
	HatDownRight: "DOWN_RIGHT",
	HatDown:      "DOWN",
	HatDownLeft:  "DOWN_LEFT",
	HatLeft:      "LEFT",
	HatUpLeft:    "UP_LEFT",
	HatCenter:    "CENTER",
}

func (h Hat) String() string {
	if int(h) < len(hatNames) {
		return hatNames[h]
	}
	return fmt.Sprintf("Hat(%d)", uint8(h))
}

// Stick axis values.
const (
	StickMin    uint8 = 0
	StickCenter uint8 = 128
	StickMax    uint8 = 255
)

// Report is the complete controller state seen by the console.
type Report struct {
	Buttons Buttons `json:"buttons"`
	Hat     Hat     `json:"hat"`
	LX      uint8   `json:"lx"`
	LY      uint8   `json:"ly"`
	RX      uint8   `json:"rx"`
	RY      uint8   `json:"ry"`
}

// Neutral returns the rest state: no buttons, hat centered, sticks centered.
func Neutral() Report {
	return Report{
		Hat: HatCenter,
		LX:  StickCenter,
		LY:  StickCenter,
		RX:  StickCenter,
		RY:  StickCenter,
	}
}

// IsNeutral reports whether r equals the rest state.
func (r Report) IsNeutral() bool {
	return r == Neutral()
}
