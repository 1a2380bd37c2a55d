package fieldio

import (
	"errors"
	"fmt"
	"io"

	"github.com/ctessum/cdf"

	"github.com/notargets/goice/types"
)

var coordinateNames = map[string]bool{"x": true, "y": true, "z": true}

// WriteNetCDF persists s as a classic NetCDF file with dimensions (y, x, z),
// coordinate variables, and per variable units, long_name, standard_name
// and pism_intent attributes
func WriteNetCDF(w cdf.ReaderWriterAt, s *MemoryStore) (err error) {
	var (
		names = s.Names()
		h     = cdf.NewHeader([]string{"y", "x", "z"}, []int{s.My, s.Mx, len(s.Zlevels)})
	)
	for _, name := range s.AttributeNames() {
		if val, _ := s.Attribute(name); val != "" {
			h.AddAttribute("", name, val)
		}
	}
	for _, c := range []struct {
		name, units, long string
	}{{"y", "m", "Y-coordinate in Cartesian system"},
		{"x", "m", "X-coordinate in Cartesian system"},
		{"z", "m", "Z-coordinate in Cartesian system"}} {
		h.AddVariable(c.name, []string{c.name}, []float64{0})
		h.AddAttribute(c.name, "units", c.units)
		h.AddAttribute(c.name, "long_name", c.long)
	}
	for _, name := range names {
		if coordinateNames[name] {
			return fmt.Errorf("WriteNetCDF: variable name %q is reserved for a coordinate", name)
		}
		v, _ := s.Variable(name)
		dims := []string{"y", "x"}
		if v.Mz > 1 {
			if v.Mz != len(s.Zlevels) {
				return fmt.Errorf("WriteNetCDF: variable %q has %d levels, the store %d",
					name, v.Mz, len(s.Zlevels))
			}
			dims = append(dims, "z")
		}
		h.AddVariable(name, dims, []float64{0})
		for _, att := range [][2]string{
			{"units", v.Units},
			{"long_name", v.LongName},
			{"standard_name", v.StandardName},
			{"pism_intent", v.Kind.Intent()},
		} {
			if att[1] != "" {
				h.AddAttribute(name, att[0], att[1])
			}
		}
	}
	h.Define()
	if errs := h.Check(); len(errs) != 0 {
		return fmt.Errorf("WriteNetCDF: invalid header: %v", errs)
	}
	var f *cdf.File
	if f, err = cdf.Create(w, h); err != nil {
		return
	}
	// The writer reports io.EOF once it has filled the variable
	write := func(name string, data []float64) error {
		n, err := f.Writer(name, nil, nil).Write(data)
		if err != nil && !(errors.Is(err, io.EOF) && n == len(data)) {
			return fmt.Errorf("WriteNetCDF: writing variable %s: %v", name, err)
		}
		return nil
	}
	for name, data := range map[string][]float64{"x": s.X, "y": s.Y, "z": s.Zlevels} {
		if err = write(name, data); err != nil {
			return
		}
	}
	for _, name := range names {
		v, _ := s.Variable(name)
		if err = write(name, v.Data); err != nil {
			return
		}
	}
	return
}

// ReadNetCDF loads every double variable on (y, x) or (y, x, z) and the
// global string attributes
func ReadNetCDF(r cdf.ReaderWriterAt) (s *MemoryStore, err error) {
	var f *cdf.File
	if f, err = cdf.Open(r); err != nil {
		return nil, fmt.Errorf("ReadNetCDF: %v", err)
	}
	read := func(name string) (data []float64, err error) {
		rd := f.Reader(name, nil, nil)
		buf := rd.Zero(-1)
		if _, err = rd.Read(buf); err != nil {
			return nil, fmt.Errorf("ReadNetCDF: reading variable %s: %v", name, err)
		}
		var ok bool
		if data, ok = buf.([]float64); !ok {
			return nil, types.NewConfigurationError(name, "variable is not of type double")
		}
		return
	}
	var coords = make(map[string][]float64)
	for name := range coordinateNames {
		if coords[name], err = read(name); err != nil {
			return
		}
	}
	s = NewMemoryStore(len(coords["x"]), len(coords["y"]), coords["x"], coords["y"], coords["z"])
	for _, name := range f.Header.Attributes("") {
		if val, ok := f.Header.GetAttribute("", name).(string); ok {
			s.SetAttribute(name, val)
		}
	}
	stringAttr := func(v, a string) string {
		val, _ := f.Header.GetAttribute(v, a).(string)
		return val
	}
	for _, name := range f.Header.Variables() {
		if coordinateNames[name] {
			continue
		}
		dims := f.Header.Dimensions(name)
		if len(dims) < 2 || dims[0] != "y" || dims[1] != "x" {
			continue
		}
		v := &Variable{Name: name, Mz: 1}
		if len(dims) == 3 {
			v.Mz = f.Header.Lengths(name)[2]
		}
		if v.Data, err = read(name); err != nil {
			return
		}
		v.Units = stringAttr(name, "units")
		v.LongName = stringAttr(name, "long_name")
		v.StandardName = stringAttr(name, "standard_name")
		v.Kind = types.NewFieldKind(stringAttr(name, "pism_intent"))
		if err = s.PutVariable(v); err != nil {
			return
		}
	}
	return
}
