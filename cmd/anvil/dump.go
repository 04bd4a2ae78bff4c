package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"ruleforge-hq/anvil/pkg/cli"
	"ruleforge-hq/anvil/pkg/libeval"
)

var dumpFlags struct {
	board string
	units string
}

var dumpCmd = &cobra.Command{
	Use:   "dump EXPRESSION",
	Short: "Print the syntax tree and program of an expression",
	Long: `Compile an expression and print its syntax tree followed by the
instructions of the compiled program.

Examples:
  anvil dump "1mm + 2 * 3mil"
  anvil dump --board board.yaml "A.existsOnLayer('*.Cu')"`,
	Args: cobra.ExactArgs(1),
	RunE: dumpExpression,
}

func init() {
	rootCmd.AddCommand(dumpCmd)

	dumpCmd.Flags().StringVarP(&dumpFlags.board, "board", "b", "", "board file resolving A and B")
	dumpCmd.Flags().StringVar(&dumpFlags.units, "units", "", "unit system without a board: board, schematic")
}

func dumpExpression(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	h, err := newEvalHost(e, dumpFlags.board, dumpFlags.units, "", "")
	if err != nil {
		return err
	}

	compiler := libeval.NewCompiler(h.resolver, libeval.WithLogger(e.slog()))
	prog, err := compiler.Compile(args[0], h.host)
	printDiagnostics(cmd.ErrOrStderr(), args[0], compiler.Diagnostics())
	if err != nil {
		return cli.NewCommandError("dump", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Syntax tree:")
	fmt.Fprint(out, compiler.DumpTree())
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Program (%d instructions):\n", prog.Len())
	fmt.Fprint(out, prog.Dump())
	return nil
}
