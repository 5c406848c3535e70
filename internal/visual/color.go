package visual

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/aclements/go-gg/palette"
)

func hexRGBA(s string) color.RGBA {
	v, _ := strconv.ParseUint(strings.TrimPrefix(s, "#"), 16, 32)
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}

func gradient(hexes ...string) palette.RGBGradient {
	cs := make([]color.RGBA, len(hexes))
	for i, h := range hexes {
		cs[i] = hexRGBA(h)
	}
	return palette.RGBGradient{Colors: cs}
}

var scales = map[string]palette.Continuous{
	"viridis": gradient("#440154", "#482878", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"),
	"plasma":  gradient("#0d0887", "#46039f", "#7201a8", "#9c179e", "#bd3786", "#d8576b", "#ed7953", "#fb9f3a", "#fdca26", "#f0f921"),
	"inferno": gradient("#000004", "#1b0c41", "#4a0c6b", "#781c6d", "#a52c60", "#cf4446", "#ed6925", "#fb9b06", "#f7d13d", "#fcffa4"),
	"magma":   gradient("#000004", "#180f3d", "#440f76", "#721f81", "#9e2f7f", "#cd4071", "#f1605d", "#fd9668", "#feca8d", "#fcfdbf"),
	"cividis": gradient("#00224e", "#123570", "#3b496c", "#575d6d", "#707173", "#8a8678", "#a59c74", "#c3b369", "#e1cc55", "#fee838"),
	"greys":   gradient("#000000", "#ffffff"),
	"hot":     gradient("#000000", "#e60000", "#ffd200", "#ffffff"),
	"jet":     gradient("#000083", "#003caa", "#05ffff", "#ffff00", "#fa0000", "#800000"),
	"rdbu":    gradient("#050aac", "#6a89f7", "#bebebe", "#dcaa84", "#e6915a", "#b20a1c"),
}

// Scales lists the supported colour scale names.
func Scales() []string {
	return []string{"Viridis", "Plasma", "Inferno", "Magma", "Cividis", "Greys", "Hot", "Jet", "RdBu"}
}

// KnownScale reports whether name is a supported colour scale, ignoring case.
func KnownScale(name string) bool {
	_, ok := scales[strings.ToLower(name)]
	return ok
}

// ScaleName returns the renderer name of a colour scale, suffixed with "_r"
// when reversed.
func ScaleName(name string, reverse bool) string {
	if reverse {
		return name + "_r"
	}
	return name
}

// MapColors renders each value as a "#rrggbb" colour on the named scale
// between cmin and cmax. Missing values get "".
func MapColors(values []float64, cmin, cmax float64, name string, reverse bool) ([]string, error) {
	p, ok := scales[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown colorscale %q (use one of %s)", name, strings.Join(Scales(), ", "))
	}
	out := make([]string, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		x := 0.0
		if cmax > cmin {
			x = (v - cmin) / (cmax - cmin)
		}
		x = math.Max(0, math.Min(1, x))
		if reverse {
			x = 1 - x
		}
		r, g, b, _ := p.Map(x).RGBA()
		out[i] = fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8)
	}
	return out, nil
}

// HexToRGBA converts #RGB, #RGBA, #RRGGBB or #AARRGGBB into an rgba() string.
// Unrecognised input is returned unchanged.
func HexToRGBA(hex string) string {
	h := strings.TrimPrefix(hex, "#")
	nib := func(s string) (int, bool) {
		v, err := strconv.ParseUint(s, 16, 8)
		return int(v), err == nil
	}
	var r, g, b, a int
	var ok1, ok2, ok3, ok4 bool
	switch len(h) {
	case 8:
		a, ok4 = nib(h[0:2])
		r, ok1 = nib(h[2:4])
		g, ok2 = nib(h[4:6])
		b, ok3 = nib(h[6:8])
	case 6:
		r, ok1 = nib(h[0:2])
		g, ok2 = nib(h[2:4])
		b, ok3 = nib(h[4:6])
		a, ok4 = 255, true
	case 4:
		r, ok1 = nib(strings.Repeat(h[0:1], 2))
		g, ok2 = nib(strings.Repeat(h[1:2], 2))
		b, ok3 = nib(strings.Repeat(h[2:3], 2))
		a, ok4 = nib(strings.Repeat(h[3:4], 2))
	case 3:
		r, ok1 = nib(strings.Repeat(h[0:1], 2))
		g, ok2 = nib(strings.Repeat(h[1:2], 2))
		b, ok3 = nib(strings.Repeat(h[2:3], 2))
		a, ok4 = 255, true
	default:
		return hex
	}
	if !(ok1 && ok2 && ok3 && ok4) {
		return hex
	}
	if a == 255 {
		return fmt.Sprintf("rgba(%d, %d, %d, 1)", r, g, b)
	}
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", r, g, b, strconv.FormatFloat(float64(a)/255, 'g', 4, 64))
}

// RGBMapping assigns an apex ("top", "left" or "right") to each colour channel.
type RGBMapping struct {
	Red   string `yaml:"red" json:"red"`
	Green string `yaml:"green" json:"green"`
	Blue  string `yaml:"blue" json:"blue"`
}

// DefaultRGBMapping is top→red, left→green, right→blue.
var DefaultRGBMapping = RGBMapping{Red: "top", Green: "left", Blue: "right"}

// Channels resolves the mapping against apex arrays keyed "top", "left", "right".
func (m RGBMapping) Channels(apexes map[string][]float64) (r, g, b []float64, err error) {
	pick := func(channel, name string) ([]float64, error) {
		if name == "" {
			name = map[string]string{"red": "top", "green": "left", "blue": "right"}[channel]
		}
		v, ok := apexes[strings.TrimSuffix(strings.ToLower(name), "_axis")]
		if !ok {
			return nil, fmt.Errorf("%s channel: unknown apex %q", channel, name)
		}
		return v, nil
	}
	if r, err = pick("red", m.Red); err != nil {
		return
	}
	if g, err = pick("green", m.Green); err != nil {
		return
	}
	b, err = pick("blue", m.Blue)
	return
}

// RGBColors min-max normalizes each channel to 0–255 and returns one
// "rgba(r, g, b, 1)" string per point.
func RGBColors(r, g, b []float64) []string {
	scale := func(xs []float64) []int {
		out := make([]int, len(xs))
		lo, hi, ok := Bounds(xs)
		if !ok || hi <= lo {
			return out
		}
		for i, x := range xs {
			if math.IsNaN(x) {
				continue
			}
			out[i] = int((x - lo) / (hi - lo) * 255)
		}
		return out
	}
	rs, gs, bs := scale(r), scale(g), scale(b)
	out := make([]string, len(rs))
	for i := range rs {
		out[i] = fmt.Sprintf("rgba(%d, %d, %d, 1)", rs[i], gs[i], bs[i])
	}
	return out
}
