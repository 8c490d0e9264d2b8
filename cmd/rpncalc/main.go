// Package main is the entry point for the rpncalc command.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/lemonberrylabs/rpncalc/pkg/expr"
	"github.com/spf13/cobra"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rpncalc EXPRESSION",
		Short: "Evaluate infix arithmetic through reverse Polish notation",
		Long: `rpncalc converts an infix arithmetic expression to postfix form and
evaluates it. Arguments are joined with spaces, so "rpncalc 2 + 3" works.
Use "--" before expressions that start with a minus sign.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          runEvaluate,
	}

	cmd.Version = version + " (commit=" + commit + ", built=" + date + ")"
	cmd.SetVersionTemplate("rpncalc version {{.Version}}\n")

	cmd.Flags().BoolP("postfix", "p", false, "Print the postfix form instead of evaluating")

	cmd.AddCommand(newServeCmd(), newBatchCmd())
	return cmd
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		printError(root.ErrOrStderr(), err)
		os.Exit(1)
	}
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	expression := strings.Join(args, " ")
	out := cmd.OutOrStdout()

	if postfixOnly, _ := cmd.Flags().GetBool("postfix"); postfixOnly {
		p, err := expr.ToPostfix(expression)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, p.String())
		return nil
	}

	v, err := expr.Evaluate(expression)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s = %s\n", expression, expr.FormatNumber(v))
	return nil
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %v\n", color.New(color.FgRed, color.Bold).Sprint("error:"), err)
}
