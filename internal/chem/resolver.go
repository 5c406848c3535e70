package chem

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// UnresolvedError means no formula could be derived for a column name.
type UnresolvedError struct {
	Column string
	Tried  []string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("no chemical formula for column %q (tried %s)", e.Column, strings.Join(e.Tried, ", "))
}

// Resolver maps column names to formulas. It holds no state; one value is
// shared by every stage of a render.
type Resolver struct{}

// Resolve derives a formula from a column name: the name itself, then its
// first whitespace-separated token, then the FeOT convention.
func (Resolver) Resolve(column string) (string, error) {
	tried := []string{column}
	if Valid(column) {
		return column, nil
	}
	token := column
	if f := strings.Fields(column); len(f) > 0 {
		token = f[0]
	}
	if token != column {
		tried = append(tried, token)
		if Valid(token) {
			return token, nil
		}
	}
	if strings.EqualFold(token, "feot") {
		return "FeO", nil
	}
	return "", &UnresolvedError{Column: column, Tried: tried}
}

// For returns the configured formula for a column when present, otherwise
// the default resolution.
func (r Resolver) For(column, configured string) (string, error) {
	configured = strings.TrimSpace(configured)
	if configured == "" {
		return r.Resolve(column)
	}
	if _, err := MolarMass(configured); err != nil {
		return "", err
	}
	return configured, nil
}

// ConvertColumn divides each weight value by the molar mass of formula.
// Missing values stay missing.
func ConvertColumn(values []float64, formula string) ([]float64, error) {
	mm, err := MolarMass(formula)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = math.NaN()
			continue
		}
		out[i] = v / mm
	}
	return out, nil
}

var nameSuffixes = []string{"_wt", "_fixed", "_value", "_percent", "_pct", "_normalized", "_norm"}

var commonOxides = map[string]string{
	"al2o3": "Al2O3",
	"sio2":  "SiO2",
	"cao":   "CaO",
	"mgo":   "MgO",
	"na2o":  "Na2O",
	"k2o":   "K2O",
	"fe2o3": "Fe2O3",
	"feo":   "FeO",
	"tio2":  "TiO2",
	"p2o5":  "P2O5",
	"mno":   "MnO",
	"cr2o3": "Cr2O3",
}

// oxidePatterns is commonOxides' keys, longest first, so "fe2o3" wins over
// shorter overlapping patterns.
var oxidePatterns = func() []string {
	keys := make([]string, 0, len(commonOxides))
	for k := range commonOxides {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

// Suggest guesses a formula for a column name by stripping common suffixes
// and looking for well-known oxides. It returns "" when nothing fits.
func Suggest(column string) string {
	cleaned := column
	for _, s := range nameSuffixes {
		if strings.HasSuffix(strings.ToLower(cleaned), s) {
			cleaned = cleaned[:len(cleaned)-len(s)]
		}
	}
	if Valid(cleaned) {
		return cleaned
	}
	lower := strings.ToLower(cleaned)
	for _, pat := range oxidePatterns {
		if strings.Contains(lower, pat) {
			return commonOxides[pat]
		}
	}
	return ""
}
