package sequence

import "fmt"

// Builder assembles a Sequence and records segment boundaries as steps
// are added. Errors are sticky and reported by Build.
type Builder struct {
	seq  Sequence
	open *Segment
	err  error
}

// NewBuilder starts a sequence with the given name and playback kind.
func NewBuilder(name string, kind Kind) *Builder {
	return &Builder{seq: Sequence{Name: name, Kind: kind}}
}

// Add appends steps.
func (b *Builder) Add(steps ...Step) *Builder {
	b.seq.Steps = append(b.seq.Steps, steps...)
	return b
}

// Repeat appends step n times.
func (b *Builder) Repeat(n int, step Step) *Builder {
	for i := 0; i < n; i++ {
		b.seq.Steps = append(b.seq.Steps, step)
	}
	return b
}

// Begin opens a named segment at the next step index.
func (b *Builder) Begin(name string) *Builder {
	if b.err != nil {
		return b
	}
	if b.open != nil {
		b.err = fmt.Errorf("sequence %s: segment %q opened inside %q", b.seq.Name, name, b.open.Name)
		return b
	}
	b.open = &Segment{Name: name, Start: len(b.seq.Steps)}
	return b
}

// End closes the open segment after the last added step.
func (b *Builder) End() *Builder {
	if b.err != nil {
		return b
	}
	if b.open == nil {
		b.err = fmt.Errorf("sequence %s: End without Begin", b.seq.Name)
		return b
	}
	b.open.End = len(b.seq.Steps)
	b.seq.Segments = append(b.seq.Segments, *b.open)
	b.open = nil
	return b
}

// Build validates and returns the sequence.
func (b *Builder) Build() (*Sequence, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.open != nil {
		return nil, fmt.Errorf("sequence %s: segment %q never closed", b.seq.Name, b.open.Name)
	}
	seq := b.seq
	seq.Steps = append([]Step(nil), b.seq.Steps...)
	seq.Segments = append([]Segment(nil), b.seq.Segments...)
	if err := seq.Validate(); err != nil {
		return nil, err
	}
	return &seq, nil
}

// MustBuild is Build for compiled-in tables; it panics on error.
func (b *Builder) MustBuild() *Sequence {
	seq, err := b.Build()
	if err != nil {
		panic(err)
	}
	return seq
}
