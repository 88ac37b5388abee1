package cli

import (
	"fmt"
	"math"
	"strconv"
	"unicode"

	"github.com/expr-lang/expr"
	"github.com/spf13/cobra"

	"github.com/colthorp/esios-cli-go/internal/esios"
	"github.com/colthorp/esios-cli-go/internal/frame"
	"github.com/colthorp/esios-cli-go/internal/output"
)

func init() {
	execCmd := &cobra.Command{
		Use:   "exec [ids...]",
		Short: "Fetch indicator data and evaluate an expression on it",
		Long: `Fetch one or more indicators and evaluate an expression against the
result. Column series are reachable with col("name"); the first column
is bound to "values". Helpers: mean, min, max, sum, first, last, count.

Examples:
  esios exec 600 -s 2025-01-01 -e 2025-01-31 -x "mean(values)"
  esios exec 600 -s 2025-01-01 -e 2025-01-31 -x "max(values) - min(values)"
  esios exec 600 10034 -s 2025-01-01 -e 2025-01-31 -x "columns"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runExec,
	}
	addHistoryFlags(execCmd)
	execCmd.Flags().StringP("expr", "x", "values", "Expression to evaluate")
	rootCmd.AddCommand(execCmd)
}

func runExec(cmd *cobra.Command, args []string) error {
	ids := make([]int, 0, len(args))
	for _, a := range args {
		id, err := strconv.Atoi(a)
		if err != nil {
			return fmt.Errorf("invalid indicator id %q", a)
		}
		ids = append(ids, id)
	}
	start, end, err := parseRangeFlags(cmd)
	if err != nil {
		return err
	}
	client, err := newClient()
	if err != nil {
		return err
	}

	var f *frame.Frame
	if len(ids) == 1 {
		h, err := client.Indicators.Get(cmd.Context(), ids[0])
		if err != nil {
			return err
		}
		f, err = h.Historical(cmd.Context(), start, end, esios.HistoricalOptions{})
		if err != nil {
			return err
		}
	} else {
		f, err = client.Indicators.Compare(cmd.Context(), ids, start, end, esios.HistoricalOptions{})
		if err != nil {
			return err
		}
	}
	if f.IsEmpty() {
		fmt.Fprintln(cmd.OutOrStdout(), "No data returned.")
		return nil
	}

	code, _ := cmd.Flags().GetString("expr")
	result, err := evalExpr(code, f)
	if err != nil {
		return fmt.Errorf("evaluating expression: %w", err)
	}
	return renderExprResult(cmd, result)
}

// evalExpr evaluates an expression against a frame's columns. The
// series helpers replace the builtins of the same name: they drop NaN
// holes and return NaN on empty series instead of erroring.
func evalExpr(code string, f *frame.Frame) (interface{}, error) {
	env := map[string]interface{}{
		"columns": f.Columns(),
		"col":     func(name string) []float64 { return columnValues(f, name) },
	}
	for i, c := range f.Columns() {
		if i == 0 {
			env["values"] = columnValues(f, c)
		}
		if isIdentifier(c) {
			if _, taken := env[c]; !taken {
				env[c] = columnValues(f, c)
			}
		}
	}

	opts := []expr.Option{expr.Env(env)}
	helpers := map[string]func([]float64) interface{}{
		"mean":  func(s []float64) interface{} { return seriesMean(s) },
		"min":   func(s []float64) interface{} { return seriesMin(s) },
		"max":   func(s []float64) interface{} { return seriesMax(s) },
		"sum":   func(s []float64) interface{} { return seriesSum(s) },
		"first": func(s []float64) interface{} { return seriesAt(s, 0) },
		"last":  func(s []float64) interface{} { return seriesAt(s, len(s)-1) },
		"count": func(s []float64) interface{} { return len(s) },
	}
	for name, fn := range helpers {
		fn := fn
		opts = append(opts,
			expr.DisableBuiltin(name),
			expr.Function(name, func(params ...interface{}) (interface{}, error) {
				if len(params) != 1 {
					return nil, fmt.Errorf("expected one series argument")
				}
				s, ok := params[0].([]float64)
				if !ok {
					return nil, fmt.Errorf("expected a series argument")
				}
				return fn(s), nil
			}, new(func([]float64) interface{})),
		)
	}

	program, err := expr.Compile(code, opts...)
	if err != nil {
		return nil, err
	}
	return expr.Run(program, env)
}

func renderExprResult(cmd *cobra.Command, result interface{}) error {
	switch v := result.(type) {
	case []float64:
		for _, x := range v {
			fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatFloat(x, 'f', -1, 64))
		}
		return nil
	case float64:
		fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatFloat(v, 'f', -1, 64))
		return nil
	case string, int, bool:
		fmt.Fprintln(cmd.OutOrStdout(), v)
		return nil
	default:
		return output.WriteJSON(cmd.OutOrStdout(), result)
	}
}

// columnValues returns a column's observations with holes dropped.
func columnValues(f *frame.Frame, name string) []float64 {
	var out []float64
	for i := 0; i < f.Len(); i++ {
		if v := f.At(i, name); !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func seriesMean(s []float64) float64 {
	if len(s) == 0 {
		return math.NaN()
	}
	return seriesSum(s) / float64(len(s))
}

func seriesMin(s []float64) float64 {
	if len(s) == 0 {
		return math.NaN()
	}
	m := s[0]
	for _, v := range s[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func seriesMax(s []float64) float64 {
	if len(s) == 0 {
		return math.NaN()
	}
	m := s[0]
	for _, v := range s[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func seriesSum(s []float64) float64 {
	var total float64
	for _, v := range s {
		total += v
	}
	return total
}

func seriesAt(s []float64, i int) float64 {
	if i < 0 || i >= len(s) {
		return math.NaN()
	}
	return s[i]
}

// isIdentifier reports whether a column name can double as an
// expression variable.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if unicode.IsLetter(r) || r == '_' {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}
