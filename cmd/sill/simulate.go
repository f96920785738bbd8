package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sill-dev/sill/internal/errors"
	"github.com/sill-dev/sill/internal/scenario"
)

func simulateCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "simulate <scenario.yaml>",
		Short: "Replay a lifecycle scenario in memory",
		Long: `Replay a YAML lifecycle scenario against an in-memory host tree.

The scenario registers element kinds, runs host mutations in order and
records every callback as one trace line. When the file carries an
expect block the trace is checked against it and a mismatch makes the
command exit non-zero.

Examples:
  sill simulate scenarios/badge.yaml
  sill simulate --verbose scenarios/adoption.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(args[0], verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log dispatch activity to stderr")

	return cmd
}

func runSimulate(path string, verbose bool) error {
	s, err := scenario.Load(path)
	if err != nil {
		return err
	}

	var logger *slog.Logger
	if verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}

	res, err := scenario.Run(s, logger)
	if err != nil {
		return err
	}

	name := s.Name
	if name == "" {
		name = filepath.Base(path)
	}

	fmt.Printf("  %s\n\n", name)
	for _, line := range res.Trace {
		fmt.Printf("  %s\n", line)
	}
	fmt.Println()
	info("constructed=%d connected=%d destroyed=%d failures=%d",
		res.Stats.Constructed, res.Stats.Connected, res.Stats.Destroyed, res.Stats.Failures)

	if len(s.Expect) == 0 {
		warn("no expect block, trace not checked")
		return nil
	}
	if !res.OK() {
		for _, m := range res.Mismatches {
			errorMsg("%s", m)
		}
		return errors.New("E142").
			WithDetail(strconv.Itoa(len(res.Mismatches)) + " trace mismatch(es) in " + path)
	}

	success("trace matched (%d events)", len(res.Trace))
	return nil
}
