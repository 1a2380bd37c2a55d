package fieldio

import (
	"fmt"
	"sort"

	"github.com/notargets/goice/grid"
	"github.com/notargets/goice/types"
)

// Store is a collection of named fields with attributes. Fields are kept as
// gathered global arrays indexed ((j*Mx)+i)*Mz + k.
type Store interface {
	Put(f *grid.Field) error
	Get(name string, f *grid.Field) error
	Has(name string) bool
	SetAttribute(name, value string)
	Attribute(name string) (string, bool)
}

type Variable struct {
	Name string
	grid.Attributes
	Mz   int
	Data []float64
}

type MemoryStore struct {
	Mx, My  int
	X, Y    []float64
	Zlevels []float64
	vars    map[string]*Variable
	attrs   map[string]string
}

func NewMemoryStore(Mx, My int, X, Y, Zlevels []float64) *MemoryStore {
	return &MemoryStore{
		Mx: Mx, My: My,
		X:       append([]float64{}, X...),
		Y:       append([]float64{}, Y...),
		Zlevels: append([]float64{}, Zlevels...),
		vars:    make(map[string]*Variable),
		attrs:   make(map[string]string),
	}
}

// NewMemoryStoreForGrid sizes a store to g
func NewMemoryStoreForGrid(g *grid.Grid) *MemoryStore {
	return NewMemoryStore(g.Mx, g.My, g.X, g.Y, g.Zlevels)
}

func (s *MemoryStore) Put(f *grid.Field) (err error) {
	g := f.Grid()
	if g.Mx != s.Mx || g.My != s.My {
		return fmt.Errorf("Put %q: field grid %dx%d does not match store %dx%d", f.Name, g.Mx, g.My, s.Mx, s.My)
	}
	s.vars[f.Name] = &Variable{
		Name:       f.Name,
		Attributes: f.Attributes,
		Mz:         f.Mz,
		Data:       f.Gather(),
	}
	return
}

// PutVariable stores global data directly, used by readers
func (s *MemoryStore) PutVariable(v *Variable) (err error) {
	if len(v.Data) != s.Mx*s.My*v.Mz {
		return fmt.Errorf("PutVariable %q: have %d values, need %d", v.Name, len(v.Data), s.Mx*s.My*v.Mz)
	}
	s.vars[v.Name] = v
	return
}

// Get fills f from the stored variable. A missing variable is a
// configuration error naming the field.
func (s *MemoryStore) Get(name string, f *grid.Field) (err error) {
	v, ok := s.vars[name]
	if !ok {
		return types.NewConfigurationError(name, "missing required input field")
	}
	if v.Mz != f.Mz {
		return types.NewConfigurationError(name, "stored with %d levels, field %q has %d", v.Mz, f.Name, f.Mz)
	}
	return f.Scatter(v.Data)
}

func (s *MemoryStore) Variable(name string) (v *Variable, ok bool) {
	v, ok = s.vars[name]
	return
}

func (s *MemoryStore) Has(name string) bool {
	_, ok := s.vars[name]
	return ok
}

func (s *MemoryStore) SetAttribute(name, value string) { s.attrs[name] = value }

func (s *MemoryStore) Attribute(name string) (value string, ok bool) {
	value, ok = s.attrs[name]
	return
}

// Names lists stored variables in sorted order
func (s *MemoryStore) Names() (names []string) {
	for name := range s.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}

func (s *MemoryStore) AttributeNames() (names []string) {
	for name := range s.attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}
