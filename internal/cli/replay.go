package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/pokepad/internal/engine"
	"github.com/roach88/pokepad/internal/store"
	"github.com/roach88/pokepad/internal/testutil"
	"github.com/roach88/pokepad/internal/transport"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database  string
	SessionID string
	Sequences []string
	Offline   bool
	Verify    bool
	Out       string
	Tick      time.Duration
}

// ReplayResult reports an offline replay.
type ReplayResult struct {
	SessionID   string             `json:"session_id"`
	Activations int                `json:"activations"`
	Recorded    int                `json:"recorded"`
	Replayed    int                `json:"replayed"`
	Match       bool               `json:"match"`
	Divergence  *ReplayDivergence  `json:"divergence,omitempty"`
	Changes     []transport.Record `json:"changes,omitempty"`
}

// ReplayDivergence is the first point where the replayed changes differ
// from the recorded ones. A missing side is left empty.
type ReplayDivergence struct {
	Index    int               `json:"index"`
	Recorded *transport.Record `json:"recorded,omitempty"`
	Replayed *transport.Record `json:"replayed,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-issue a recorded session's commands",
		Long: `Replay the activations of a session recorded with "pokepad run --db".

By default the activations are re-issued in real time and the reports are
written to --out, as if the commands were typed again.

--offline replays on a simulated clock instead and compares the resulting
report changes with the recorded ones. With --verify a divergence exits
with code 1.

Exit codes:
  0 - Replay finished (and matched, with --verify)
  1 - Replayed changes differ from the recording
  2 - Command error (missing database, unknown session)

Examples:
  pokepad replay --db ./pokepad.db --session 01927c3e-... --out /dev/ttyUSB0
  pokepad replay --db ./pokepad.db --session 01927c3e-... --offline --verify`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite session log (required)")
	cmd.Flags().StringVar(&opts.SessionID, "session", "", "session to replay (required)")
	cmd.Flags().StringSliceVar(&opts.Sequences, "sequences", nil, "CUE sequence directories to register (repeatable)")
	cmd.Flags().BoolVar(&opts.Offline, "offline", false, "replay on a simulated clock")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "fail if the offline replay differs from the recording")
	cmd.Flags().StringVar(&opts.Out, "out", "-", "serial target for real-time replay (- for stdout)")
	cmd.Flags().DurationVar(&opts.Tick, "tick", engine.DefaultTick, "engine tick quantum")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("session")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	if opts.Tick <= 0 {
		return NewExitError(ExitCommandError, "tick must be positive")
	}
	if opts.Verify && !opts.Offline {
		return NewExitError(ExitCommandError, "--verify requires --offline")
	}

	ctx := commandContext(cmd)
	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "database not found", err)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	rec, err := st.ReadRecording(ctx, opts.SessionID)
	if errors.Is(err, store.ErrSessionNotFound) {
		return WrapExitError(ExitCommandError, "unknown session", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}

	seqOpts, err := loadSequenceOptions(opts.Sequences)
	if err != nil {
		return err
	}

	if opts.Offline {
		return replayOffline(opts, cmd, rec, seqOpts)
	}
	return replayRealtime(ctx, opts, cmd, rec, seqOpts)
}

func replayOffline(opts *ReplayOptions, cmd *cobra.Command, rec *store.Recording, seqOpts []engine.Option) error {
	clock := testutil.NewManualClock()
	capture := transport.NewCapture()
	eng := engine.New(append([]engine.Option{
		engine.WithClock(clock),
		engine.WithTransport(capture),
		engine.WithTick(opts.Tick),
	}, seqOpts...)...)

	if err := eng.Replay(clock, rec.Schedule, rec.End); err != nil {
		slog.Warn("replay activation failed", "session", rec.Session.ID, "error", err)
	}

	replayed := capture.Records()
	result := ReplayResult{
		SessionID:   rec.Session.ID,
		Activations: len(rec.Schedule),
		Recorded:    len(rec.Changes),
		Replayed:    len(replayed),
		Divergence:  firstDivergence(rec.Changes, replayed),
	}
	result.Match = result.Divergence == nil
	if opts.Verbose {
		result.Changes = replayed
	}

	if opts.Format == "json" {
		if err := writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: result, SessionID: result.SessionID}); err != nil {
			return err
		}
	} else {
		outputReplayText(cmd.OutOrStdout(), result)
	}

	if opts.Verify && !result.Match {
		return NewExitError(ExitFailure, fmt.Sprintf("replay diverged at change %d", result.Divergence.Index))
	}
	return nil
}

// firstDivergence compares two change lists and returns nil when they are
// equal.
func firstDivergence(recorded, replayed []transport.Record) *ReplayDivergence {
	n := max(len(recorded), len(replayed))
	for i := 0; i < n; i++ {
		var a, b *transport.Record
		if i < len(recorded) {
			a = &recorded[i]
		}
		if i < len(replayed) {
			b = &replayed[i]
		}
		if a != nil && b != nil && *a == *b {
			continue
		}
		return &ReplayDivergence{Index: i, Recorded: a, Replayed: b}
	}
	return nil
}

func outputReplayText(w io.Writer, result ReplayResult) {
	fmt.Fprintf(w, "Session:     %s\n", result.SessionID)
	fmt.Fprintf(w, "Activations: %d\n", result.Activations)
	fmt.Fprintf(w, "Changes:     %d recorded, %d replayed\n", result.Recorded, result.Replayed)
	for _, c := range result.Changes {
		fmt.Fprintf(w, "  %8dms %s\n", c.AtMS, c.Report)
	}
	if result.Match {
		fmt.Fprintln(w, "✓ Replay matches recording")
		return
	}
	d := result.Divergence
	fmt.Fprintf(w, "✗ Replay diverged at change %d\n", d.Index)
	fmt.Fprintf(w, "  recorded: %s\n", describeRecord(d.Recorded))
	fmt.Fprintf(w, "  replayed: %s\n", describeRecord(d.Replayed))
}

func describeRecord(r *transport.Record) string {
	if r == nil {
		return "(none)"
	}
	return fmt.Sprintf("%dms %s", r.AtMS, r.Report)
}

// replayRealtime re-issues each activation at its recorded offset from the
// engine's start.
func replayRealtime(ctx context.Context, opts *ReplayOptions, cmd *cobra.Command, rec *store.Recording, seqOpts []engine.Option) error {
	out, closeOut, err := openOutput(opts.Out, cmd.OutOrStdout())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open output", err)
	}
	defer closeOut()

	eng := engine.New(append([]engine.Option{
		engine.WithTransport(transport.NewSerial(out)),
		engine.WithTick(opts.Tick),
	}, seqOpts...)...)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		defer eng.Stop()
		clock := eng.Context().Clock
		for _, s := range rec.Schedule {
			if !sleepUntil(ctx, clock, s.At) {
				return
			}
			if !eng.Enqueue(s.Activation) {
				return
			}
			slog.Debug("replayed activation", "at", s.At, "activation", s.Activation.String())
		}
		sleepUntil(ctx, clock, rec.End+opts.Tick)
	}()

	runErr := eng.Run(ctx)

	eng.Tick()
	if err := eng.Activate(engine.Activation{Task: engine.TaskIdle}); err != nil {
		slog.Error("final release failed", "error", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Replayed %d activation(s) from session %s\n", len(rec.Schedule), rec.Session.ID)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return WrapExitError(ExitFailure, "engine error", runErr)
	}
	return nil
}

// sleepUntil waits until clock reads at least t. It returns false if ctx
// ends first.
func sleepUntil(ctx context.Context, clock engine.Clock, t time.Duration) bool {
	wait := t - clock.Now()
	if wait <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
