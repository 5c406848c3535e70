// Package visual derives marker size and colour encodings from data columns.
package visual

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// SortMode decides draw order: later points are drawn on top.
type SortMode int

const (
	NoChange SortMode = iota
	// Ascending draws high values last, on top.
	Ascending
	// Descending draws low values last, on top.
	Descending
	Shuffled
)

var sortNames = map[SortMode]string{
	NoChange:   "no change",
	Ascending:  "high on top",
	Descending: "low on top",
	Shuffled:   "shuffled",
}

var sortAliases = map[string]SortMode{
	"":           NoChange,
	"none":       NoChange,
	"ascending":  Ascending,
	"descending": Descending,
	"shuffle":    Shuffled,
	"random":     Shuffled,
}

func (m SortMode) String() string {
	if s, ok := sortNames[m]; ok {
		return s
	}
	return fmt.Sprintf("SortMode(%d)", int(m))
}

// ParseSortMode accepts the display names and a few aliases.
func ParseSortMode(s string) (SortMode, error) {
	key := strings.ToLower(strings.Join(strings.Fields(s), " "))
	for m, name := range sortNames {
		if key == name {
			return m, nil
		}
	}
	if m, ok := sortAliases[key]; ok {
		return m, nil
	}
	return NoChange, fmt.Errorf("unknown sort mode %q", s)
}

func (m SortMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *SortMode) UnmarshalText(b []byte) error {
	v, err := ParseSortMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

func (m SortMode) MarshalYAML() (any, error) { return m.String(), nil }

func (m *SortMode) UnmarshalYAML(node *yaml.Node) error {
	return m.UnmarshalText([]byte(node.Value))
}

// Sizemap maps a column onto marker diameters in [Min, Max].
type Sizemap struct {
	Column string   `yaml:"column" json:"column"`
	Min    float64  `yaml:"min" json:"min"`
	Max    float64  `yaml:"max" json:"max"`
	Log    bool     `yaml:"log,omitempty" json:"log,omitempty"`
	Sort   SortMode `yaml:"sort,omitempty" json:"sort,omitempty"`
}

// Heatmap maps a column onto a continuous colour scale between Min and Max.
// When Min and Max are both zero the observed range is used.
type Heatmap struct {
	Column     string   `yaml:"column" json:"column"`
	Min        float64  `yaml:"min,omitempty" json:"min,omitempty"`
	Max        float64  `yaml:"max,omitempty" json:"max,omitempty"`
	Log        bool     `yaml:"log,omitempty" json:"log,omitempty"`
	Reverse    bool     `yaml:"reverse,omitempty" json:"reverse,omitempty"`
	Sort       SortMode `yaml:"sort,omitempty" json:"sort,omitempty"`
	Colorscale string   `yaml:"colorscale,omitempty" json:"colorscale,omitempty"`
}

// Transform applies the optional natural log. Non-positive values map to 0.
func Transform(values []float64, log bool) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		switch {
		case !log || math.IsNaN(v):
			out[i] = v
		case v > 0:
			out[i] = math.Log(v)
		default:
			out[i] = 0
		}
	}
	return out
}

// Bounds returns the finite min and max of values, ok=false if there are none.
func Bounds(values []float64) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		ok = true
	}
	return lo, hi, ok
}

// Rescale maps the observed range of values linearly onto [lo, hi]. Missing
// values become 0 and a constant column maps to lo.
func Rescale(values []float64, lo, hi float64) []float64 {
	out := make([]float64, len(values))
	vmin, vmax, ok := Bounds(values)
	for i, v := range values {
		switch {
		case math.IsNaN(v) || math.IsInf(v, 0) || !ok:
			out[i] = 0
		case vmax == vmin:
			out[i] = lo
		default:
			out[i] = (v-vmin)/(vmax-vmin)*(hi-lo) + lo
		}
	}
	return out
}

// Sizes returns marker sizes plus the reference scale a renderer uses to
// convert them to area.
func (s Sizemap) Sizes(values []float64) (sizes []float64, sizeref float64) {
	sizes = Rescale(Transform(values, s.Log), s.Min, s.Max)
	if s.Max > 0 {
		_, hi, ok := Bounds(sizes)
		if ok {
			sizeref = 2 * hi / (s.Max * s.Max)
		}
	}
	return sizes, sizeref
}

// SortKey is one ordering criterion.
type SortKey struct {
	Values []float64
	Mode   SortMode
}

// Order returns a permutation of 0..n-1 that applies each key in turn with a
// stable sort, so the last key dominates and earlier keys break ties. Missing
// values sort first so they end up underneath.
func Order(n int, rng *rand.Rand, keys ...SortKey) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	for _, k := range keys {
		switch k.Mode {
		case NoChange:
		case Shuffled:
			if rng == nil {
				rng = rand.New(rand.NewSource(1))
			}
			rng.Shuffle(n, func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
		case Ascending, Descending:
			desc := k.Mode == Descending
			vals := k.Values
			sort.SliceStable(perm, func(i, j int) bool {
				a, b := vals[perm[i]], vals[perm[j]]
				if math.IsNaN(a) || math.IsNaN(b) {
					return math.IsNaN(a) && !math.IsNaN(b)
				}
				if desc {
					return a > b
				}
				return a < b
			})
		default:
			panic(fmt.Sprintf("visual: unhandled sort mode %d", int(k.Mode)))
		}
	}
	return perm
}

// Permute returns xs reordered by perm.
func Permute[T any](xs []T, perm []int) []T {
	if xs == nil {
		return nil
	}
	out := make([]T, len(perm))
	for i, p := range perm {
		out[i] = xs[p]
	}
	return out
}
