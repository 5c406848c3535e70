// Package filter restricts table rows with per-column predicates.
package filter

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/quickternary-cli/internal/table"
)

// ValueError reports a filter operand that does not fit its column or op.
type ValueError struct {
	FilterID string
	Column   string
	Op       Op
	Operand  string
	Reason   string
}

func (e *ValueError) Error() string {
	if e.Operand != "" {
		return fmt.Sprintf("filter %s (%s %s): operand %q: %s", e.FilterID, e.Column, e.Op, e.Operand, e.Reason)
	}
	return fmt.Sprintf("filter %s (%s %s): %s", e.FilterID, e.Column, e.Op, e.Reason)
}

// Operands are kept as text and parsed when the filter is compiled.
type Operands []string

// UnmarshalYAML accepts a scalar or a sequence of scalars.
func (o *Operands) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*o = Operands{node.Value}
	case yaml.SequenceNode:
		out := make(Operands, 0, len(node.Content))
		for _, n := range node.Content {
			if n.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: filter values must be scalars", n.Line)
			}
			out = append(out, n.Value)
		}
		*o = out
	default:
		return fmt.Errorf("line %d: filter values must be a scalar or a list", node.Line)
	}
	return nil
}

// Spec is one configured filter.
type Spec struct {
	ID       string   `yaml:"id,omitempty" json:"id,omitempty"`
	Column   string   `yaml:"column" json:"column"`
	Op       Op       `yaml:"op" json:"op"`
	Operands Operands `yaml:"values" json:"values"`
}

// Predicate tests one row of a column.
type Predicate func(col *table.Column, row int) bool

func (s Spec) fail(operand, reason string) error {
	return &ValueError{FilterID: s.ID, Column: s.Column, Op: s.Op, Operand: operand, Reason: reason}
}

// values expands list operands: a single operand holding commas is split
// into its trimmed, non-empty parts.
func (s Spec) values() []string {
	var out []string
	for _, v := range s.Operands {
		if s.Op.shape() != single && len(s.Operands) == 1 && strings.Contains(v, ",") {
			for _, part := range strings.Split(v, ",") {
				if p := strings.TrimSpace(part); p != "" {
					out = append(out, p)
				}
			}
			continue
		}
		out = append(out, strings.TrimSpace(v))
	}
	return out
}

// Compile parses the operands against the column type and returns the row
// predicate. numeric tells whether the target column holds numbers.
func (s Spec) Compile(numeric bool) (Predicate, error) {
	vals := s.values()
	switch s.Op.shape() {
	case single:
		if len(vals) != 1 {
			return nil, s.fail("", fmt.Sprintf("expects one value, got %d", len(vals)))
		}
	case list:
		if len(vals) == 0 {
			return nil, s.fail("", "expects at least one value")
		}
	case bounds:
		if len(vals) != 2 {
			return nil, s.fail("", fmt.Sprintf("expects two bounds, got %d", len(vals)))
		}
	}
	if s.Op.ordered() && !numeric {
		return nil, s.fail("", "column is not numeric")
	}
	if !numeric {
		return s.compileText(vals), nil
	}
	nums := make([]float64, len(vals))
	for i, v := range vals {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) {
			return nil, s.fail(v, "not a number")
		}
		nums[i] = f
	}
	return s.compileNumeric(nums), nil
}

func (s Spec) compileText(vals []string) Predicate {
	set := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		set[v] = struct{}{}
	}
	in := func(c *table.Column, i int) bool {
		_, ok := set[c.String(i)]
		return ok
	}
	switch s.Op {
	case Equal, OneOf:
		return in
	case NotEqual, NotOneOf:
		return func(c *table.Column, i int) bool { return !in(c, i) }
	}
	panic(fmt.Sprintf("filter: %s is not a text op", s.Op))
}

func (s Spec) compileNumeric(nums []float64) Predicate {
	val := func(c *table.Column, i int) (float64, bool) {
		x := c.Float(i)
		return x, !math.IsNaN(x)
	}
	in := func(x float64) bool {
		for _, n := range nums {
			if x == n {
				return true
			}
		}
		return false
	}
	var test func(x float64) bool
	switch s.Op {
	case Equal, OneOf:
		test = in
	case NotEqual, NotOneOf:
		return func(c *table.Column, i int) bool {
			x, ok := val(c, i)
			return !ok || !in(x)
		}
	case Less:
		test = func(x float64) bool { return x < nums[0] }
	case Greater:
		test = func(x float64) bool { return x > nums[0] }
	case LessEqual:
		test = func(x float64) bool { return x <= nums[0] }
	case GreaterEqual:
		test = func(x float64) bool { return x >= nums[0] }
	case BetweenOpen:
		test = func(x float64) bool { return nums[0] < x && x < nums[1] }
	case BetweenClosed:
		test = func(x float64) bool { return nums[0] <= x && x <= nums[1] }
	case BetweenLowerClosed:
		test = func(x float64) bool { return nums[0] <= x && x < nums[1] }
	case BetweenUpperClosed:
		test = func(x float64) bool { return nums[0] < x && x <= nums[1] }
	default:
		panic(fmt.Sprintf("filter: unhandled op %d", int(s.Op)))
	}
	return func(c *table.Column, i int) bool {
		x, ok := val(c, i)
		return ok && test(x)
	}
}

// Apply returns the subset of rows passing every filter, in declared order.
// The input slice is not modified.
func Apply(t *table.Table, rows []int, specs []Spec) ([]int, error) {
	out := append([]int(nil), rows...)
	for _, s := range specs {
		col, err := t.Column(s.Column)
		if err != nil {
			return nil, err
		}
		pred, err := s.Compile(col.Numeric())
		if err != nil {
			return nil, err
		}
		kept := make([]int, 0, len(out))
		for _, i := range out {
			if pred(col, i) {
				kept = append(kept, i)
			}
		}
		out = kept
	}
	return out, nil
}

// ParseExpr reads a filter written on one line with shell quoting, e.g.
//
//	Rock "is one of" basalt 'high-K andesite'
//	SiO2 a <= x < b 45 52
//
// The longest run of words after the column that names an op is taken as
// the op; the rest are operands.
func ParseExpr(expr string) (Spec, error) {
	words, err := shellquote.Split(expr)
	if err != nil {
		return Spec{}, fmt.Errorf("filter %q: %w", expr, err)
	}
	if len(words) < 2 {
		return Spec{}, fmt.Errorf("filter %q: expected <column> <op> <values...>", expr)
	}
	for k := len(words); k > 1; k-- {
		op, err := ParseOp(strings.Join(words[1:k], " "))
		if err != nil {
			continue
		}
		return Spec{Column: words[0], Op: op, Operands: Operands(words[k:])}, nil
	}
	return Spec{}, fmt.Errorf("filter %q: no operation found", expr)
}
