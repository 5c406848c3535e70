// Package chem parses chemical formulas and converts weight fractions into
// molar proportions.
package chem

import (
	"fmt"
	"strings"
)

// InvalidFormulaError is returned when a formula string cannot be parsed.
type InvalidFormulaError struct {
	Formula string
	Reason  string
}

func (e *InvalidFormulaError) Error() string {
	return fmt.Sprintf("invalid formula %q: %s", e.Formula, e.Reason)
}

// Composition maps element symbols to atom counts.
type Composition map[string]int

func (c Composition) add(other Composition, times int) {
	for sym, n := range other {
		c[sym] += n * times
	}
}

// Mass sums the atomic weights of the composition.
func (c Composition) Mass() float64 {
	var m float64
	for sym, n := range c {
		m += atomicWeights[sym] * float64(n)
	}
	return m
}

// Parse reads a formula such as "Al2O3", "Ca(OH)2" or "CuSO4·5H2O".
// Whitespace, unknown symbols and unbalanced brackets are rejected.
func Parse(formula string) (Composition, error) {
	if formula == "" {
		return nil, &InvalidFormulaError{Formula: formula, Reason: "empty"}
	}
	src := strings.ReplaceAll(formula, "·", "*")
	out := Composition{}
	for _, seg := range strings.FieldsFunc(src, func(r rune) bool { return r == '*' || r == '.' }) {
		p := &parser{src: seg, formula: formula}
		coeff := 1
		if n, ok := p.digits(); ok {
			coeff = n
		}
		comp, err := p.sequence(0)
		if err != nil {
			return nil, err
		}
		if p.pos != len(p.src) {
			return nil, p.fail(fmt.Sprintf("unexpected %q", p.src[p.pos]))
		}
		if len(comp) == 0 {
			return nil, p.fail("no elements")
		}
		out.add(comp, coeff)
	}
	if len(out) == 0 {
		return nil, &InvalidFormulaError{Formula: formula, Reason: "no elements"}
	}
	if strings.HasSuffix(src, "*") || strings.HasSuffix(src, ".") || strings.HasPrefix(src, "*") || strings.HasPrefix(src, ".") {
		return nil, &InvalidFormulaError{Formula: formula, Reason: "dangling separator"}
	}
	return out, nil
}

type parser struct {
	src     string
	formula string
	pos     int
}

func (p *parser) fail(reason string) error {
	return &InvalidFormulaError{Formula: p.formula, Reason: reason}
}

func (p *parser) digits() (int, bool) {
	start := p.pos
	n := 0
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		n = n*10 + int(p.src[p.pos]-'0')
		p.pos++
	}
	return n, p.pos > start
}

func (p *parser) count() (int, error) {
	n, ok := p.digits()
	if !ok {
		return 1, nil
	}
	if n == 0 {
		return 0, p.fail("zero count")
	}
	return n, nil
}

// sequence parses groups and elements until closing (0 for end of input).
func (p *parser) sequence(closing byte) (Composition, error) {
	out := Composition{}
	for p.pos < len(p.src) {
		ch := p.src[p.pos]
		switch {
		case closing != 0 && ch == closing:
			return out, nil
		case ch == '(' || ch == '[':
			end := byte(')')
			if ch == '[' {
				end = ']'
			}
			p.pos++
			inner, err := p.sequence(end)
			if err != nil {
				return nil, err
			}
			if p.pos >= len(p.src) || p.src[p.pos] != end {
				return nil, p.fail("unbalanced brackets")
			}
			p.pos++
			if len(inner) == 0 {
				return nil, p.fail("empty group")
			}
			n, err := p.count()
			if err != nil {
				return nil, err
			}
			out.add(inner, n)
		case ch >= 'A' && ch <= 'Z':
			sym := string(ch)
			p.pos++
			if p.pos < len(p.src) && p.src[p.pos] >= 'a' && p.src[p.pos] <= 'z' {
				sym += string(p.src[p.pos])
				p.pos++
			}
			if _, ok := atomicWeights[sym]; !ok {
				return nil, p.fail("unknown element " + sym)
			}
			n, err := p.count()
			if err != nil {
				return nil, err
			}
			out[sym] += n
		case ch == ')' || ch == ']':
			return nil, p.fail("unbalanced brackets")
		default:
			return out, nil
		}
	}
	if closing != 0 {
		return nil, p.fail("unbalanced brackets")
	}
	return out, nil
}

// MolarMass returns the molar mass of formula in g/mol. "FeOT" (total iron
// reported as FeO) is accepted as an alias of FeO.
func MolarMass(formula string) (float64, error) {
	if strings.EqualFold(formula, "feot") {
		formula = "FeO"
	}
	comp, err := Parse(formula)
	if err != nil {
		return 0, err
	}
	return comp.Mass(), nil
}

// Valid reports whether formula parses.
func Valid(formula string) bool {
	_, err := Parse(formula)
	return err == nil
}
