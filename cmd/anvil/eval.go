package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"ruleforge-hq/anvil/pkg/board"
	"ruleforge-hq/anvil/pkg/cli"
	"ruleforge-hq/anvil/pkg/libeval"
	"ruleforge-hq/anvil/pkg/textexpr"
	"ruleforge-hq/anvil/pkg/units"
)

var evalFlags struct {
	board string
	itemA string
	itemB string
	units string
	text  bool
}

var evalCmd = &cobra.Command{
	Use:   "eval EXPRESSION",
	Short: "Evaluate an expression",
	Long: `Compile and run a single expression and print its value.

Without --board only literals and arithmetic are available. With --board the
items named by --a and --b are bound to A and B.

With --text the argument is treated as text in which every @{expression}
is replaced by its value.

Examples:
  # Unit arithmetic (result in mm)
  anvil eval "1mm + 2mil"

  # Evaluate against a board item
  anvil eval --board board.yaml --a P1 "A.Clearance >= 0.15mm"

  # Expand computed text
  anvil eval --text --board board.yaml --a P1 "@{A.Name} sits on @{A.Layer}"`,
	Args: cobra.ExactArgs(1),
	RunE: evaluate,
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringVarP(&evalFlags.board, "board", "b", "", "board file providing A and B")
	evalCmd.Flags().StringVar(&evalFlags.itemA, "a", "", "item bound to A")
	evalCmd.Flags().StringVar(&evalFlags.itemB, "b", "", "item bound to B")
	evalCmd.Flags().StringVar(&evalFlags.units, "units", "", "unit system without a board: board, schematic (default from config)")
	evalCmd.Flags().BoolVar(&evalFlags.text, "text", false, "expand @{...} substitutions in text")
}

// evalHost is the compile and run environment of an expression.
type evalHost struct {
	resolver *units.Resolver
	host     libeval.Host
	ctx      *libeval.Context
}

func newEvalHost(e *env, boardPath, unitName, itemA, itemB string) (*evalHost, error) {
	h := &evalHost{ctx: libeval.NewContext()}

	if boardPath == "" {
		if itemA != "" || itemB != "" {
			return nil, cli.NewConfigError("a", "items require --board")
		}
		if unitName == "" {
			unitName = e.cfg.Engine.Units
		}
		r, err := units.ByName(unitName)
		if err != nil {
			return nil, cli.NewConfigError("units", err.Error())
		}
		h.resolver = r
		return h, nil
	}

	b, err := loadBoard(boardPath)
	if err != nil {
		return nil, err
	}
	h.resolver = b.Resolver()
	h.host = board.NewBinder(b)

	a, err := lookupItem(b, "a", itemA)
	if err != nil {
		return nil, err
	}
	bb, err := lookupItem(b, "b", itemB)
	if err != nil {
		return nil, err
	}
	board.Bind(h.ctx, a, bb)
	return h, nil
}

func lookupItem(b *board.Board, flag, name string) (*board.Item, error) {
	if name == "" {
		return nil, nil
	}
	it := b.Item(name)
	if it == nil {
		return nil, cli.NewConfigError(flag, fmt.Sprintf("board %q has no item %q", b.Name, name))
	}
	return it, nil
}

func evaluate(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	h, err := newEvalHost(e, evalFlags.board, evalFlags.units, evalFlags.itemA, evalFlags.itemB)
	if err != nil {
		return err
	}

	compiler := libeval.NewCompiler(h.resolver, libeval.WithLogger(e.slog()))
	out := cmd.OutOrStdout()

	if evalFlags.text {
		eval := textexpr.EvaluatorFunc(func(expr string) (libeval.Value, error) {
			prog, err := compiler.Compile(expr, h.host)
			if err != nil {
				return libeval.Number(0), err
			}
			return prog.RunE(h.ctx)
		})
		text, err := textexpr.Expand(args[0], eval, textexpr.WithResolver(h.resolver))
		fmt.Fprintln(out, text)
		if err != nil {
			return cli.NewCommandError("eval", err)
		}
		return nil
	}

	prog, err := compiler.Compile(args[0], h.host)
	printDiagnostics(cmd.ErrOrStderr(), args[0], compiler.Diagnostics())
	if err != nil {
		return cli.NewCommandError("eval", err)
	}

	v, err := prog.RunE(h.ctx)
	if err != nil {
		return cli.NewCommandError("eval", err)
	}
	for _, msg := range h.ctx.Errors() {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", msg)
	}
	fmt.Fprintln(out, formatValue(v, h.resolver))
	return nil
}

// formatValue renders v for display: quantities in the resolver's display
// unit, strings unquoted.
func formatValue(v libeval.Value, r *units.Resolver) string {
	switch v.Type() {
	case libeval.TypeNumeric:
		return r.FormatQuantity(v.AsDouble(), v.Unit())
	case libeval.TypeString:
		return v.AsString()
	default:
		return v.String()
	}
}

// printDiagnostics writes each compile diagnostic with a caret under its
// offset in src.
func printDiagnostics(w io.Writer, src string, diags []*libeval.Error) {
	for _, d := range diags {
		level := "error"
		if d.Advisory {
			level = "warning"
		}
		fmt.Fprintf(w, "%s: %s\n", level, d.Error())
		if d.Offset >= 0 && d.Offset <= len(src) {
			fmt.Fprintf(w, "  %s\n  %s^\n", src, strings.Repeat(" ", d.Offset))
		}
	}
}
