package sequence

import (
	"time"

	"github.com/roach88/pokepad/internal/report"
)

// Built-in sequence names.
const (
	MashA         = "mash_a"
	AAABB         = "aaabb"
	AutoLeague    = "auto_league"
	InfWatt       = "inf_watt"
	PickupBerry   = "pickupberry"
	ChangeTheDate = "changethedate"
	ChangeTheYear = "changetheyear"
)

// Timing used by the built-in tables, in milliseconds.
const (
	mashHold      = 20
	mashWait      = 20
	menuDelay     = 200
	animationWait = 1000
	battleMash    = 3000 * time.Millisecond
)

var (
	press = report.Press
	hat   = report.HatPress
)

var catalog = []*Sequence{
	NewBuilder(MashA, KindLoop).
		Add(Hold(press(report.ButtonA), mashHold, mashWait)).
		MustBuild(),

	NewBuilder(AAABB, KindLoop).
		Repeat(3, Hold(press(report.ButtonA), mashHold, mashWait)).
		Repeat(2, Hold(press(report.ButtonB), mashHold, mashWait)).
		MustBuild(),

	NewBuilder(AutoLeague, KindLoop).
		Add(Tap(press(report.ButtonA), animationWait)).
		Repeat(int(battleMash/(mashHold+mashWait)/time.Millisecond), Hold(press(report.ButtonA), mashHold, mashWait)).
		Add(Tap(press(report.ButtonA), animationWait)).
		MustBuild(),

	NewBuilder(InfWatt, KindLoop).
		Add(
			Tap(press(report.ButtonHome), menuDelay),
			Hold(hat(report.HatRight), menuDelay, menuDelay),
			Hold(hat(report.HatDown), menuDelay, menuDelay),
			Tap(press(report.ButtonA), menuDelay),
			Hold(hat(report.HatDown), menuDelay, menuDelay),
			Tap(press(report.ButtonA), menuDelay),
			Hold(hat(report.HatRight), menuDelay, menuDelay),
			Tap(press(report.ButtonA), animationWait),
			Tap(press(report.ButtonHome), menuDelay),
		).
		MustBuild(),

	NewBuilder(PickupBerry, KindLoop).
		Add(Tap(press(report.ButtonA), animationWait)).
		MustBuild(),

	changeTheDate(),
	changeTheYear(),
}

// toDateTime navigates from the game to the "Date and Time" entry of the
// system settings.
func toDateTime(b *Builder) *Builder {
	return b.
		Add(Tap(press(report.ButtonHome), animationWait)).
		Add(Tap(hat(report.HatDown), 100)).
		Repeat(5, Tap(hat(report.HatRight), 50)).
		Add(Tap(press(report.ButtonA), animationWait)).
		Add(Hold(report.LeftStick(report.DirDown), 2000, 100)).
		Add(Tap(press(report.ButtonA), 300)).
		Repeat(9, Tap(hat(report.HatDown), 50)).
		Add(Tap(press(report.ButtonA), 500)).
		Repeat(2, Tap(hat(report.HatDown), 50))
}

func changeTheDate() *Sequence {
	b := toDateTime(NewBuilder(ChangeTheDate, KindDate))
	b.Add(Tap(press(report.ButtonA), 500))
	for i, name := range []string{SegmentYear, SegmentMonth, SegmentDay} {
		if i > 0 {
			b.Add(Tap(hat(report.HatRight), 50))
		}
		b.Begin(name).
			Add(Adjust(hat(report.HatUp), 50, 50), Marker()).
			End()
	}
	return b.
		Repeat(3, Tap(hat(report.HatRight), 50)).
		Add(Tap(press(report.ButtonA), 500)).
		Add(Tap(press(report.ButtonHome), animationWait)).
		Add(Tap(press(report.ButtonA), animationWait)).
		MustBuild()
}

// changeTheYear opens the date entry once per year unit: the repeat
// segment bumps the year and confirms, and the anchor closes the loop.
// With no years requested the player runs straight through, so the detour
// undoes the bump made by the single pass over the repeat segment.
func changeTheYear() *Sequence {
	b := toDateTime(NewBuilder(ChangeTheYear, KindYear))
	b.Begin(SegmentRepeat).
		Add(Tap(press(report.ButtonA), 500)).
		Add(Adjust(hat(report.HatUp), 50, 50)).
		Repeat(5, Tap(press(report.ButtonA), 50)).
		Add(Tap(press(report.ButtonA), 500)).
		End()
	b.Begin(SegmentDetour).
		Add(Tap(press(report.ButtonA), 500)).
		Add(Hold(hat(report.HatDown), 50, 50)).
		Repeat(5, Tap(press(report.ButtonA), 50)).
		Add(Tap(press(report.ButtonA), 500)).
		End()
	b.Begin(SegmentAnchor).
		Add(Marker()).
		End()
	return b.
		Add(Tap(press(report.ButtonHome), animationWait)).
		Add(Tap(press(report.ButtonA), animationWait)).
		MustBuild()
}

// Catalog returns the compiled-in sequences in a stable order.
func Catalog() []*Sequence {
	out := make([]*Sequence, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the compiled-in sequence with the given name.
func Lookup(name string) (*Sequence, bool) {
	for _, s := range catalog {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}
