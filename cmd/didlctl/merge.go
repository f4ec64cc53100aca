package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nainya/didlcore/pkg/moderation"
)

type mergeFlags struct {
	delimiter     string
	pairDelimiter string
	noCollapse    bool
}

func newMergeCmd(global *globalFlags) *cobra.Command {
	flags := &mergeFlags{}
	cmd := &cobra.Command{
		Use:   "merge <snapshot> <fragment>...",
		Short: "Merge update-id fragments into a container update snapshot",
		Long: `Applies each fragment ("id,token") to the snapshot in order and prints
the coalesced snapshot. The last token for an id wins.

Examples:
  didlctl merge "C1,5" "C2,9"          # C1,5,C2,9
  didlctl merge "C1,5" "C1,9"          # C1,9
  didlctl merge "" "C1:5" --pair-delimiter ":"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(cmd, args, global, flags)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.delimiter, "delimiter", "", "Record delimiter (default from config)")
	f.StringVar(&flags.pairDelimiter, "pair-delimiter", "", "Delimiter between id and token (default from config)")
	f.BoolVar(&flags.noCollapse, "no-collapse", false, "Treat an empty fragment as a no-op instead of clearing the snapshot")
	return cmd
}

func runMerge(cmd *cobra.Command, args []string, global *globalFlags, flags *mergeFlags) (err error) {
	e, err := setup(cmd, global)
	if err != nil {
		return err
	}
	start := time.Now()
	records := 0
	defer func() {
		err = e.finish("merge", start, records, err, global)
	}()

	mc := e.cfg.Moderation
	if flags.delimiter != "" {
		mc.Delimiter = flags.delimiter
	}
	if flags.pairDelimiter != "" {
		mc.PairDelimiter = flags.pairDelimiter
	}
	acc := moderation.NewAccumulator(
		moderation.WithDelimiter(mc.Delimiter),
		moderation.WithPairDelimiter(mc.PairDelimiter),
		moderation.WithCollapseOnEmpty(mc.CollapseOnEmpty && !flags.noCollapse),
	)

	opts := []moderation.VariableOption{
		moderation.WithAccumulator(acc),
		moderation.WithLogger(e.log.Component("moderation")),
		moderation.WithMinInterval(0),
	}
	if e.metrics != nil {
		opts = append(opts, moderation.WithRecorder(e.metrics))
	}
	v := moderation.NewVariable("ContainerUpdateIDs", opts...)

	if err := v.Restore(args[0]); err != nil {
		return fmt.Errorf("snapshot %q: %w", args[0], err)
	}
	for _, fragment := range args[1:] {
		if err := v.Push(fragment); err != nil {
			return fmt.Errorf("merge %q: %w", fragment, err)
		}
	}

	out := v.Flush()
	updates, _ := acc.Parse(out)
	records = len(updates)
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}
