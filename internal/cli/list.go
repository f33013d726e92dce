package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/pokepad/internal/engine"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Sequences []string
}

// TaskInfo describes one registered task.
type TaskInfo struct {
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Steps    int      `json:"steps"`
	Duration string   `json:"duration"`
	Segments []string `json:"segments,omitempty"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the tasks the engine can play",
		Long: `List built-in tasks and any custom sequences loaded with --sequences,
with their step counts, single-pass duration and named segments.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Sequences, "sequences", nil, "CUE sequence directories to register (repeatable)")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	seqOpts, err := loadSequenceOptions(opts.Sequences)
	if err != nil {
		return err
	}
	eng := engine.New(seqOpts...)

	var tasks []TaskInfo
	for _, t := range eng.Tasks() {
		seq, _ := eng.Sequence(t)
		info := TaskInfo{
			Name:     seq.Name,
			Kind:     string(seq.Kind),
			Steps:    seq.Len(),
			Duration: seq.Duration().String(),
		}
		for _, s := range seq.Segments {
			info.Segments = append(info.Segments, fmt.Sprintf("%s[%d:%d]", s.Name, s.Start, s.End))
		}
		tasks = append(tasks, info)
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: tasks})
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK\tKIND\tSTEPS\tPASS\tSEGMENTS")
	for _, t := range tasks {
		segs := strings.Join(t.Segments, " ")
		if segs == "" {
			segs = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", t.Name, t.Kind, t.Steps, t.Duration, segs)
	}
	return tw.Flush()
}
