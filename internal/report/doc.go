// Package report defines the controller input report that the console
// observes and the symbolic commands that mutate it.
//
// The report layout mirrors the Switch-compatible HID gamepad report:
//
//	buttons uint16  (14 flags, Y..CAPTURE)
//	hat     uint8   (0..7 clockwise from Up, 8 = center)
//	lx, ly  uint8   (left stick, 0 = min, 128 = center, 255 = max)
//	rx, ry  uint8   (right stick)
//	vendor  uint8   (always 0)
//
// A Command is pure data: applying it to a Report ORs in a button flag,
// sets the hat, or sets both axes of one stick in a single call. Commands
// never read clocks and never release themselves; releasing is the
// player's job (it restores the snapshot taken before the command was
// applied).
//
// This package imports nothing internal so every other package can share
// the same Report value type.
package report
