package compiler

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/pokepad/internal/report"
	"github.com/roach88/pokepad/internal/sequence"
)

//go:embed schema.cue
var schemaSource string

// CompileSequence turns a CUE value into a validated Sequence.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The value is the sequence struct itself and is unified with the
// embedded #Sequence schema first, so defaults apply and unknown fields
// are rejected:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`sequence: spin: steps: [{cmd: "A", wait: 100}]`)
//	seq, err := CompileSequence(v.LookupPath(cue.ParsePath("sequence.spin")))
func CompileSequence(v cue.Value) (*sequence.Sequence, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	name := labelOf(v)
	if name == "" {
		return nil, &CompileError{Field: "sequence", Message: "sequence needs a name", Pos: v.Pos()}
	}

	schema, err := Schema(v.Context())
	if err != nil {
		return nil, err
	}
	u := v.Unify(schema.LookupPath(cue.ParsePath("#Sequence")))
	if err := u.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	kind, err := stringField(u, "kind", "")
	if err != nil {
		return nil, err
	}

	b := sequence.NewBuilder(name, sequence.Kind(kind))
	if err := addSteps(b, u.LookupPath(cue.ParsePath("steps"))); err != nil {
		return nil, err
	}

	seq, err := b.Build()
	if err != nil {
		return nil, &CompileError{Field: "sequence", Message: err.Error(), Pos: v.Pos()}
	}
	return seq, nil
}

// Schema compiles the embedded sequence schema in ctx.
func Schema(ctx *cue.Context) (cue.Value, error) {
	v := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compile schema: %w", err)
	}
	return v, nil
}

// addSteps appends every step of the list and turns runs of steps that
// share a segment label into builder segments.
func addSteps(b *sequence.Builder, steps cue.Value) error {
	iter, err := steps.List()
	if err != nil {
		return formatCUEError(err)
	}

	open := ""
	for i := 0; iter.Next(); i++ {
		sv := iter.Value()
		prefix := fmt.Sprintf("steps[%d]", i)

		step, repeat, err := parseStep(sv, prefix)
		if err != nil {
			return err
		}
		seg, err := stringField(sv, "segment", prefix)
		if err != nil {
			return err
		}

		if seg != open {
			if open != "" {
				b.End()
			}
			if seg != "" {
				b.Begin(seg)
			}
			open = seg
		}
		b.Repeat(repeat, step)
	}
	if open != "" {
		b.End()
	}
	return nil
}

// parseStep reads one step and its repeat count.
func parseStep(v cue.Value, prefix string) (sequence.Step, int, error) {
	name, err := stringField(v, "cmd", prefix)
	if err != nil {
		return sequence.Step{}, 0, err
	}
	cmd, err := report.ParseCommand(name)
	if err != nil {
		return sequence.Step{}, 0, &CompileError{
			Field:   prefix + ".cmd",
			Message: err.Error(),
			Pos:     v.LookupPath(cue.ParsePath("cmd")).Pos(),
		}
	}

	hold, err := intField(v, "hold", prefix)
	if err != nil {
		return sequence.Step{}, 0, err
	}
	wait, err := intField(v, "wait", prefix)
	if err != nil {
		return sequence.Step{}, 0, err
	}
	repeat, err := intField(v, "repeat", prefix)
	if err != nil {
		return sequence.Step{}, 0, err
	}
	adjust, err := boolField(v, "adjust", prefix)
	if err != nil {
		return sequence.Step{}, 0, err
	}

	step := sequence.Hold(cmd, int(hold), int(wait))
	step.Adjust = adjust
	return step, int(max(repeat, 1)), nil
}

func field(v cue.Value, name string) (cue.Value, bool) {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() {
		return f, false
	}
	if d, ok := f.Default(); ok {
		f = d
	}
	// Optional fields the file leaves out stay non-concrete.
	return f, f.IsConcrete()
}

func stringField(v cue.Value, name, prefix string) (string, error) {
	f, ok := field(v, name)
	if !ok {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", &CompileError{Field: join(prefix, name), Message: "must be a string", Pos: f.Pos()}
	}
	return s, nil
}

// intField reads an integer field. Floats are rejected: durations are
// whole milliseconds.
func intField(v cue.Value, name, prefix string) (int64, error) {
	f, ok := field(v, name)
	if !ok {
		return 0, nil
	}
	switch f.IncompleteKind() {
	case cue.IntKind:
	case cue.FloatKind, cue.NumberKind:
		return 0, &CompileError{
			Field:   join(prefix, name),
			Message: "float values are not allowed, use integer milliseconds",
			Pos:     f.Pos(),
		}
	default:
		return 0, &CompileError{
			Field:   join(prefix, name),
			Message: fmt.Sprintf("unsupported type kind: %v", f.IncompleteKind()),
			Pos:     f.Pos(),
		}
	}
	n, err := f.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return n, nil
}

func boolField(v cue.Value, name, prefix string) (bool, error) {
	f, ok := field(v, name)
	if !ok {
		return false, nil
	}
	b, err := f.Bool()
	if err != nil {
		return false, &CompileError{Field: join(prefix, name), Message: "must be a bool", Pos: f.Pos()}
	}
	return b, nil
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// labelOf returns the last path selector of v, unquoted.
func labelOf(v cue.Value) string {
	sels := v.Path().Selectors()
	if len(sels) == 0 {
		return ""
	}
	s := sels[len(sels)-1].String()
	if strings.HasPrefix(s, `"`) {
		if u, err := strconv.Unquote(s); err == nil {
			return u
		}
	}
	return s
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
