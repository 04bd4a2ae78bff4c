package board

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"ruleforge-hq/anvil/pkg/libeval"
	"ruleforge-hq/anvil/pkg/units"

	"gopkg.in/yaml.v3"
)

// ErrInvalidBoard is wrapped by every board validation failure.
var ErrInvalidBoard = errors.New("invalid board")

// Board is the object model rules are checked against.
type Board struct {
	// Name identifies the board in reports.
	Name string `yaml:"name"`

	// Units selects the unit system for quantities: "board" or "schematic".
	// Default: "board"
	Units string `yaml:"units"`

	// Layers lists the layer names items may be placed on. When empty any
	// layer name is accepted.
	Layers []string `yaml:"layers"`

	// Items are the checked objects.
	Items []*Item `yaml:"items"`

	resolver   *units.Resolver
	properties map[string]struct{}
}

// Item is a single board object such as a pad, via, track or zone.
type Item struct {
	Name     string   `yaml:"name"`
	Type     string   `yaml:"type"`
	Layers   []string `yaml:"layers"`
	Net      string   `yaml:"net"`
	NetClass string   `yaml:"netclass"`
	Plated   bool     `yaml:"plated"`

	// Properties holds free-form values. Quantities such as "0.25mm" and
	// plain numbers become numeric values, anything else a string.
	Properties map[string]string `yaml:"properties"`

	values map[string]libeval.Value
}

// Load reads and parses a board file.
func Load(path string) (*Board, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read board file %q: %w", path, err)
	}
	b, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("board file %q: %w", path, err)
	}
	return b, nil
}

// Parse decodes a board from YAML and prepares it for checking.
func Parse(data []byte) (*Board, error) {
	var b Board
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse board: %w", err)
	}
	if err := b.Prepare(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Prepare validates the board and converts item properties to values.
// Boards built in code must be prepared before use.
func (b *Board) Prepare() error {
	r, err := units.ByName(b.Units)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBoard, err)
	}
	b.resolver = r

	layers := make(map[string]struct{}, len(b.Layers))
	for _, l := range b.Layers {
		layers[l] = struct{}{}
	}

	seen := make(map[string]struct{}, len(b.Items))
	b.properties = make(map[string]struct{})

	for i, item := range b.Items {
		if item == nil {
			return fmt.Errorf("%w: item %d is empty", ErrInvalidBoard, i)
		}
		if item.Name == "" {
			return fmt.Errorf("%w: item %d has no name", ErrInvalidBoard, i)
		}
		if _, dup := seen[item.Name]; dup {
			return fmt.Errorf("%w: duplicate item name %q", ErrInvalidBoard, item.Name)
		}
		seen[item.Name] = struct{}{}

		if len(layers) > 0 {
			for _, l := range item.Layers {
				if _, ok := layers[l]; !ok {
					return fmt.Errorf("%w: item %q is on undeclared layer %q", ErrInvalidBoard, item.Name, l)
				}
			}
		}

		item.values = make(map[string]libeval.Value, len(item.Properties))
		for name, raw := range item.Properties {
			if _, builtin := builtinFields[name]; builtin {
				return fmt.Errorf("%w: item %q: property %q shadows a builtin field", ErrInvalidBoard, item.Name, name)
			}
			item.values[name] = propertyValue(r, raw)
			b.properties[name] = struct{}{}
		}
	}
	return nil
}

func propertyValue(r *units.Resolver, raw string) libeval.Value {
	if v, kind, err := r.ParseQuantity(raw); err == nil {
		return libeval.Quantity(v, kind)
	}
	return libeval.String(raw)
}

// Resolver returns the unit resolver selected by the board.
func (b *Board) Resolver() *units.Resolver {
	if b.resolver == nil {
		return units.Board()
	}
	return b.resolver
}

// Item returns the named item, or nil.
func (b *Board) Item(name string) *Item {
	for _, item := range b.Items {
		if item.Name == name {
			return item
		}
	}
	return nil
}

// HasLayer reports whether name is a declared layer. Boards without a
// layer list accept any name.
func (b *Board) HasLayer(name string) bool {
	if len(b.Layers) == 0 {
		return true
	}
	for _, l := range b.Layers {
		if l == name {
			return true
		}
	}
	return false
}

// PropertyNames returns the sorted names of all properties declared on
// any item.
func (b *Board) PropertyNames() []string {
	names := make([]string, 0, len(b.properties))
	for name := range b.properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Property returns the value of a property, and whether the item has it.
func (it *Item) Property(name string) (libeval.Value, bool) {
	v, ok := it.values[name]
	return v, ok
}

// OnLayer reports whether the item is on a layer matching pattern, which
// may contain wildcards.
func (it *Item) OnLayer(pattern string) bool {
	for _, l := range it.Layers {
		if libeval.WildcardMatch(pattern, l) {
			return true
		}
	}
	return false
}
