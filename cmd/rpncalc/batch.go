package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/lemonberrylabs/rpncalc/pkg/expr"
	"github.com/lemonberrylabs/rpncalc/pkg/parser"
	"github.com/lemonberrylabs/rpncalc/pkg/runtime"
	"github.com/spf13/cobra"
)

func newBatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch FILE",
		Short: "Evaluate every expression of a YAML or JSON batch file",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}
}

func runBatch(cmd *cobra.Command, args []string) error {
	path := args[0]
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading batch file: %w", err)
	}

	b, err := parser.Parse(source)
	if err != nil {
		return err
	}
	name := b.Name
	if name == "" {
		name = filepath.Base(path)
	}

	results, err := runtime.NewEngine(b).Execute(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, r := range results {
		fmt.Fprintln(out, formatResult(r))
	}

	summary := runtime.Summarize(results)
	fmt.Fprintf(out, "%s: %d passed, %d mismatched, %d failed\n", name, summary.Passed, summary.Mismatch, summary.Failed)
	if !summary.OK() {
		return fmt.Errorf("batch %s did not pass", name)
	}
	return nil
}

func formatResult(r runtime.Result) string {
	switch r.Status {
	case runtime.StatusFailed:
		return fmt.Sprintf("%s %s: %s: %v", color.RedString("FAIL"), r.Name, r.Expression, r.Err)
	case runtime.StatusMismatch:
		return fmt.Sprintf("%s %s: %s = %s (expected %s)", color.YellowString("MISS"), r.Name, r.Expression,
			expr.FormatNumber(r.Value), expr.FormatNumber(*r.Expect))
	default:
		return fmt.Sprintf("%s %s: %s = %s", color.GreenString("PASS"), r.Name, r.Expression, expr.FormatNumber(r.Value))
	}
}
