package units

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the abstract dimension a unit belongs to.
type Kind int

const (
	// None marks a unit-less value.
	None Kind = iota
	// Distance covers lengths (mm, mil, in, um).
	Distance
	// Angle covers angles (deg).
	Angle
	// Time covers propagation delays (ps, fs).
	Time
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Distance:
		return "distance"
	case Angle:
		return "angle"
	case Time:
		return "time"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Unit describes a single unit suffix.
type Unit struct {
	// Name is the suffix as written in expressions.
	Name string

	// Kind is the dimension of the unit.
	Kind Kind

	// Scale converts one unit into the resolver's base unit.
	Scale float64

	// Round rounds converted values to whole base units.
	Round bool
}

// Resolver converts literal text carrying a unit suffix into a base-unit value.
// Units are matched in declaration order; the first matching suffix wins.
type Resolver struct {
	name  string
	units []Unit
	names []string
}

// NewResolver creates a resolver over the given units.
func NewResolver(name string, units ...Unit) *Resolver {
	names := make([]string, len(units))
	for i, u := range units {
		names[i] = u.Name
	}
	return &Resolver{
		name:  name,
		units: units,
		names: names,
	}
}

// Board returns the resolver for board dimensions. Distances resolve to
// integer nanometres, angles to degrees and delays to femtoseconds.
func Board() *Resolver {
	return NewResolver("board",
		Unit{Name: "mm", Kind: Distance, Scale: 1e6, Round: true},
		Unit{Name: "mil", Kind: Distance, Scale: 25400, Round: true},
		Unit{Name: "in", Kind: Distance, Scale: 25.4e6, Round: true},
		Unit{Name: "um", Kind: Distance, Scale: 1e3, Round: true},
		Unit{Name: "deg", Kind: Angle, Scale: 1},
		Unit{Name: "fs", Kind: Time, Scale: 1},
		Unit{Name: "ps", Kind: Time, Scale: 1e3},
	)
}

// Schematic returns the resolver for schematic dimensions, whose base unit
// is 100 nm.
func Schematic() *Resolver {
	return NewResolver("schematic",
		Unit{Name: "mm", Kind: Distance, Scale: 1e4, Round: true},
		Unit{Name: "mil", Kind: Distance, Scale: 254, Round: true},
		Unit{Name: "in", Kind: Distance, Scale: 254000, Round: true},
	)
}

// ByName returns a builtin resolver ("board" or "schematic").
func ByName(name string) (*Resolver, error) {
	switch strings.ToLower(name) {
	case "board", "pcb", "":
		return Board(), nil
	case "schematic", "sch":
		return Schematic(), nil
	default:
		return nil, fmt.Errorf("unknown unit resolver: %q", name)
	}
}

// Name returns the resolver name.
func (r *Resolver) Name() string {
	return r.name
}

// SupportedUnits returns the unit suffixes in match order.
func (r *Resolver) SupportedUnits() []string {
	return r.names
}

// Convert parses text as a decimal number expressed in the unit at index
// unit and returns it in base units. An out-of-range index converts
// without scaling. Unparseable text converts to 0; text too large for a
// float64 converts to ±Inf.
func (r *Resolver) Convert(text string, unit int) float64 {
	v, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", "."), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0
	}
	if unit < 0 || unit >= len(r.units) {
		return v
	}

	u := r.units[unit]
	v *= u.Scale
	if u.Round {
		v = math.Round(v)
	}
	return v
}

// UnitKind returns the kind of the unit at index unit, or None when the
// index is out of range.
func (r *Resolver) UnitKind(unit int) Kind {
	if unit < 0 || unit >= len(r.units) {
		return None
	}
	return r.units[unit].Kind
}

// Index returns the index of the named unit, or -1.
func (r *Resolver) Index(name string) int {
	for i, n := range r.names {
		if n == name {
			return i
		}
	}
	return -1
}

// ParseQuantity parses a number with an optional unit suffix, such as
// "0.25mm" or "12". Suffixes are matched longest first so that host data
// never depends on declaration order.
func (r *Resolver) ParseQuantity(s string) (float64, Kind, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, None, fmt.Errorf("empty quantity")
	}

	best := -1
	for i, name := range r.names {
		if strings.HasSuffix(s, name) && (best < 0 || len(name) > len(r.names[best])) {
			best = i
		}
	}

	num := s
	if best >= 0 {
		num = strings.TrimSpace(strings.TrimSuffix(s, r.names[best]))
	}
	if _, err := strconv.ParseFloat(strings.ReplaceAll(num, ",", "."), 64); err != nil {
		return 0, None, fmt.Errorf("invalid quantity %q: %w", s, err)
	}

	v := r.Convert(num, best)
	if math.IsInf(v, 0) {
		return 0, None, fmt.Errorf("invalid quantity %q: %w", s, strconv.ErrRange)
	}
	return v, r.UnitKind(best), nil
}

// FormatQuantity renders a base-unit value for display. Distances use the
// first distance unit declared by the resolver, other kinds their first unit.
func (r *Resolver) FormatQuantity(v float64, kind Kind) string {
	if kind == None {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	for _, u := range r.units {
		if u.Kind == kind {
			return strconv.FormatFloat(v/u.Scale, 'f', -1, 64) + u.Name
		}
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
