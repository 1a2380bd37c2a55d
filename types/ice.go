package types

import (
	"fmt"
	"strings"
)

// MaskFlag partitions the horizontal domain into modeled cells and cells held
// by external data (the no-model region)
type MaskFlag uint8

const (
	Mask_Modeled MaskFlag = iota
	Mask_Held
)

var MaskNameMap = map[string]MaskFlag{
	"modeled":  Mask_Modeled,
	"model":    Mask_Modeled,
	"held":     Mask_Held,
	"no_model": Mask_Held,
	"nomodel":  Mask_Held,
}

func NewMaskFlag(label string) (mf MaskFlag, err error) {
	var ok bool
	if mf, ok = MaskNameMap[strings.ToLower(label)]; !ok {
		err = fmt.Errorf("unknown mask flag %q", label)
	}
	return
}

// MaskFromValue converts the floating point storage used by mask fields
func MaskFromValue(v float64) MaskFlag {
	if v > 0.5 {
		return Mask_Held
	}
	return Mask_Modeled
}

func (mf MaskFlag) Value() float64 {
	if mf == Mask_Held {
		return 1
	}
	return 0
}

// Direction names the four faces of the star stencil
type Direction uint8

const (
	East Direction = iota
	North
	West
	South
)

var (
	Directions         = [4]Direction{East, North, West, South}
	DirectionPrintName = [4]string{"East", "North", "West", "South"}
)

func (d Direction) Print() (txt string) {
	txt = DirectionPrintName[d]
	return
}

// Offset is the (di, dj) step to the neighbor across the face
func (d Direction) Offset() (di, dj int) {
	switch d {
	case East:
		di = 1
	case North:
		dj = 1
	case West:
		di = -1
	case South:
		dj = -1
	}
	return
}

func (d Direction) Opposite() Direction {
	return (d + 2) % 4
}

// StarStencil holds a value at a cell and at its four neighbors
type StarStencil[T any] struct {
	IJ                       T
	East, North, West, South T
}

func (s *StarStencil[T]) Get(d Direction) T {
	switch d {
	case East:
		return s.East
	case North:
		return s.North
	case West:
		return s.West
	default:
		return s.South
	}
}

func (s *StarStencil[T]) Put(d Direction, v T) {
	switch d {
	case East:
		s.East = v
	case North:
		s.North = v
	case West:
		s.West = v
	default:
		s.South = v
	}
}

// FieldKind separates persisted state from quantities recomputed each step
type FieldKind uint8

const (
	Field_State FieldKind = iota
	Field_Diagnostic
	Field_Internal
)

var FieldIntentNames = []string{"model_state", "diagnostic", "internal"}

func (fk FieldKind) Intent() string {
	return FieldIntentNames[fk]
}

func NewFieldKind(intent string) (fk FieldKind) {
	for i, name := range FieldIntentNames {
		if name == intent {
			return FieldKind(i)
		}
	}
	return Field_Diagnostic
}
