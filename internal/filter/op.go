package filter

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Op is a filter operation. The set is closed; every switch over Op lists all
// variants.
type Op int

const (
	Equal Op = iota
	NotEqual
	OneOf
	NotOneOf
	Less
	Greater
	LessEqual
	GreaterEqual
	// Between* test a value against two bounds a and b.
	BetweenOpen        // a < x < b
	BetweenClosed      // a <= x <= b
	BetweenLowerClosed // a <= x < b
	BetweenUpperClosed // a < x <= b
)

var opNames = [...]string{
	Equal:              "is",
	NotEqual:           "is not",
	OneOf:              "is one of",
	NotOneOf:           "is not one of",
	Less:               "<",
	Greater:            ">",
	LessEqual:          "<=",
	GreaterEqual:       ">=",
	BetweenOpen:        "a < x < b",
	BetweenClosed:      "a <= x <= b",
	BetweenLowerClosed: "a <= x < b",
	BetweenUpperClosed: "a < x <= b",
}

var opAliases = map[string]Op{
	"==":     Equal,
	"=":      Equal,
	"!=":     NotEqual,
	"in":     OneOf,
	"not in": NotOneOf,
}

func (o Op) String() string {
	if o < 0 || int(o) >= len(opNames) {
		return fmt.Sprintf("Op(%d)", int(o))
	}
	return opNames[o]
}

// ParseOp accepts the display names above and a few symbolic aliases.
// Whitespace and case are not significant, so "a<x<b" and "a < x < b" match.
func ParseOp(s string) (Op, error) {
	key := opKey(s)
	for i, name := range opNames {
		if key == opKey(name) {
			return Op(i), nil
		}
	}
	for alias, op := range opAliases {
		if key == opKey(alias) {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown filter operation %q", s)
}

func opKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

type shape int

const (
	single shape = iota
	list
	bounds
)

func (o Op) shape() shape {
	switch o {
	case Equal, NotEqual, Less, Greater, LessEqual, GreaterEqual:
		return single
	case OneOf, NotOneOf:
		return list
	case BetweenOpen, BetweenClosed, BetweenLowerClosed, BetweenUpperClosed:
		return bounds
	}
	panic(fmt.Sprintf("filter: unhandled op %d", int(o)))
}

// ordered reports whether the op compares magnitudes and so needs numbers.
func (o Op) ordered() bool {
	switch o {
	case Equal, NotEqual, OneOf, NotOneOf:
		return false
	case Less, Greater, LessEqual, GreaterEqual,
		BetweenOpen, BetweenClosed, BetweenLowerClosed, BetweenUpperClosed:
		return true
	}
	panic(fmt.Sprintf("filter: unhandled op %d", int(o)))
}

func (o Op) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *Op) UnmarshalText(b []byte) error {
	op, err := ParseOp(string(b))
	if err != nil {
		return err
	}
	*o = op
	return nil
}

func (o Op) MarshalYAML() (any, error) { return o.String(), nil }

func (o *Op) UnmarshalYAML(node *yaml.Node) error {
	return o.UnmarshalText([]byte(node.Value))
}
