package types

import (
	"errors"
	"fmt"
)

var (
	// ErrLiquidWater marks enthalpy at or above the liquid bound H_l(p)
	ErrLiquidWater = errors.New("enthalpy equals or exceeds that of liquid water")
	// ErrInvalidWaterFraction marks a water fraction outside [0,1], or water in cold ice
	ErrInvalidWaterFraction = errors.New("water fraction out of range")
	// ErrSupercooledInput marks a temperature above the valid melting bound
	ErrSupercooledInput = errors.New("temperature exceeds the melting bound")
	// ErrUnconfigured is returned by components used before they were bound to a converter
	ErrUnconfigured = errors.New("component is not bound to a conversion context")
	// ErrOutOfDomain marks a point query outside the physical domain
	ErrOutOfDomain = errors.New("point is outside the domain")
)

// PhysicalViolation is always fatal: the run stops and reports where it happened.
// Negative indices mean the location is not known at the point of failure.
type PhysicalViolation struct {
	Op      string
	I, J, K int
	Step    int
	Values  map[string]float64
	Err     error
}

func NewPhysicalViolation(op string, err error, values map[string]float64) *PhysicalViolation {
	return &PhysicalViolation{
		Op: op, I: -1, J: -1, K: -1, Step: -1,
		Values: values,
		Err:    err,
	}
}

// At returns a copy of pv located at (i,j,k)
func (pv *PhysicalViolation) At(i, j, k int) *PhysicalViolation {
	c := *pv
	c.I, c.J, c.K = i, j, k
	return &c
}

func (pv *PhysicalViolation) Error() string {
	var loc string
	if pv.I >= 0 {
		loc = fmt.Sprintf(" at (i,j,k)=(%d,%d,%d)", pv.I, pv.J, pv.K)
	}
	if pv.Step >= 0 {
		loc += fmt.Sprintf(" step %d", pv.Step)
	}
	return fmt.Sprintf("physical violation in %s%s: %v %v", pv.Op, loc, pv.Err, pv.Values)
}

func (pv *PhysicalViolation) Unwrap() error { return pv.Err }

// ConfigurationError is raised during setup, never mid-run
type ConfigurationError struct {
	Key string
	Err error
}

func (ce *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error for %q: %v", ce.Key, ce.Err)
}

func (ce *ConfigurationError) Unwrap() error { return ce.Err }

func NewConfigurationError(key string, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Key: key, Err: fmt.Errorf(format, args...)}
}

// DomainError fails the requesting call only; shared state is untouched
type DomainError struct {
	Op   string
	X, Y float64
	Err  error
}

func (de *DomainError) Error() string {
	if de.Err == ErrOutOfDomain {
		return fmt.Sprintf("%s: point (%g, %g): %v", de.Op, de.X, de.Y, de.Err)
	}
	return fmt.Sprintf("%s: %v", de.Op, de.Err)
}

func (de *DomainError) Unwrap() error { return de.Err }

func IsPhysicalViolation(err error) bool {
	var pv *PhysicalViolation
	return errors.As(err, &pv)
}

func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}
