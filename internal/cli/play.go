package cli

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/pokepad/internal/command"
	"github.com/roach88/pokepad/internal/engine"
	"github.com/roach88/pokepad/internal/report"
	"github.com/roach88/pokepad/internal/testutil"
	"github.com/roach88/pokepad/internal/transport"
)

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	Duration  time.Duration
	Tick      time.Duration
	Sequences []string
	Record    string
}

// PlayResult is the simulated report-change trace.
type PlayResult struct {
	Duration  string             `json:"duration"`
	Commands  []TimedCommand     `json:"commands"`
	Changes   []transport.Record `json:"changes"`
	Active    string             `json:"active"`
	Sent      int                `json:"sent"`
	Completed []string           `json:"completed,omitempty"`
}

// TimedCommand is a play argument with its offset.
type TimedCommand struct {
	AtMS    int64  `json:"at_ms"`
	Command string `json:"command"`
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "play <command>...",
		Short: "Simulate commands offline and print the report changes",
		Long: `Play commands against the engine on a simulated clock. Nothing is sent
to hardware; the report changes are printed instead.

Each argument is one command. Prefix it with @<duration> to issue it later
than the start of the run.

Example:
  pokepad play mash_a --duration 200ms
  pokepad play "Date 0/0/3" --duration 30s
  pokepad play mash_a "@1s end" --duration 2s`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(opts, args, cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Duration, "duration", time.Second, "simulated run time")
	cmd.Flags().DurationVar(&opts.Tick, "tick", engine.DefaultTick, "engine tick quantum")
	cmd.Flags().StringSliceVar(&opts.Sequences, "sequences", nil, "CUE sequence directories to register (repeatable)")
	cmd.Flags().StringVar(&opts.Record, "record", "", "also write the changes to a zstd JSONL capture")

	return cmd
}

// completions collects finished tasks.
type completions struct {
	tasks []string
}

func (c *completions) TaskActivated(engine.Activation, time.Duration) {}

func (c *completions) TaskCompleted(t engine.Task, at time.Duration) {
	c.tasks = append(c.tasks, fmt.Sprintf("%s@%dms", t, at.Milliseconds()))
}

func runPlay(opts *PlayOptions, args []string, cmd *cobra.Command) error {
	if opts.Duration <= 0 || opts.Tick <= 0 {
		return NewExitError(ExitCommandError, "duration and tick must be positive")
	}

	timed, err := parseTimedCommands(args)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid command", err)
	}

	seqOpts, err := loadSequenceOptions(opts.Sequences)
	if err != nil {
		return err
	}

	capture := transport.NewCapture()
	var sink engine.Transport = capture
	if opts.Record != "" {
		z, err := transport.CreateZstdJSONL(opts.Record)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create capture", err)
		}
		defer func() {
			if err := z.Close(); err != nil {
				slog.Error("error closing capture", "path", opts.Record, "error", err)
			}
		}()
		sink = transport.Tee(capture, z)
	}

	clock := testutil.NewManualClock()
	done := &completions{}
	eng := engine.New(append([]engine.Option{
		engine.WithClock(clock),
		engine.WithTransport(sink),
		engine.WithObserver(done),
	}, seqOpts...)...)

	parser := command.NewParser(eng.Tasks())
	schedule := make([]engine.Scheduled, len(timed))
	for i, tc := range timed {
		a, err := parser.Parse(tc.Command)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid command", err)
		}
		schedule[i] = engine.Scheduled{At: time.Duration(tc.AtMS) * time.Millisecond, Activation: a}
	}

	if err := eng.Replay(clock, schedule, opts.Duration); err != nil {
		return WrapExitError(ExitFailure, "activation failed", err)
	}

	result := PlayResult{
		Duration:  opts.Duration.String(),
		Commands:  timed,
		Changes:   capture.Records(),
		Active:    string(eng.Active()),
		Sent:      eng.Context().Sent,
		Completed: done.tasks,
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: result})
	}
	return outputPlayText(cmd, result)
}

// parseTimedCommands splits "@<duration> <command>" arguments. Offsets
// must not decrease.
func parseTimedCommands(args []string) ([]TimedCommand, error) {
	out := make([]TimedCommand, 0, len(args))
	var last time.Duration
	for _, arg := range args {
		at := last
		line := command.Normalize(arg)
		if strings.HasPrefix(line, "@") {
			offset, rest, _ := strings.Cut(line[1:], " ")
			d, err := time.ParseDuration(offset)
			if err != nil {
				return nil, fmt.Errorf("%q: bad offset: %w", arg, err)
			}
			if d < last {
				return nil, fmt.Errorf("%q: offset %v is before %v", arg, d, last)
			}
			at, line = d, strings.TrimSpace(rest)
		}
		if line == "" {
			return nil, fmt.Errorf("%q: empty command", arg)
		}
		out = append(out, TimedCommand{AtMS: at.Milliseconds(), Command: line})
		last = at
	}
	return out, nil
}

func outputPlayText(cmd *cobra.Command, result PlayResult) error {
	w := cmd.OutOrStdout()
	for _, rec := range result.Changes {
		r, err := rec.Parse()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%8dms  %s  %s\n", rec.AtMS, rec.Report, describeReport(r))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d change(s), %d report(s) sent, active: %s\n", len(result.Changes), result.Sent, result.Active)
	for _, c := range result.Completed {
		fmt.Fprintf(w, "completed: %s\n", c)
	}
	return nil
}

// describeReport names the inputs a report holds.
func describeReport(r report.Report) string {
	if r.IsNeutral() {
		return "neutral"
	}
	var parts []string
	if r.Buttons&report.ButtonMask != 0 {
		parts = append(parts, r.Buttons.String())
	}
	if r.Hat != report.HatCenter {
		parts = append(parts, "HAT_"+r.Hat.String())
	}
	if r.LX != report.StickCenter || r.LY != report.StickCenter {
		parts = append(parts, fmt.Sprintf("LS(%d,%d)", r.LX, r.LY))
	}
	if r.RX != report.StickCenter || r.RY != report.StickCenter {
		parts = append(parts, fmt.Sprintf("RS(%d,%d)", r.RX, r.RY))
	}
	return strings.Join(parts, " ")
}
