package InputParameters

import (
	"fmt"
	"sort"

	"github.com/ghodss/yaml"

	"github.com/notargets/goice/types"
)

// Grid section of the run file. Zlevels overrides a uniform Mz over Lz.
type GridParameters struct {
	Mx      int       `json:"Mx"`
	My      int       `json:"My"`
	Lx      float64   `json:"Lx"` // half width, m
	Ly      float64   `json:"Ly"` // half width, m
	Lz      float64   `json:"Lz"` // m
	Mz      int       `json:"Mz"`
	Zlevels []float64 `json:"Zlevels"`
	Px      int       `json:"Px"`
	Py      int       `json:"Py"`
}

// Parameters obtained from the YAML input file. Times are in years.
type InputParametersIce struct {
	Title             string             `json:"Title"`
	CFL               float64            `json:"CFL"`
	FinalTime         float64            `json:"FinalTime"`
	MaxTimeStep       float64            `json:"MaxTimeStep"`
	MaxIterations     int                `json:"MaxIterations"`
	PrintEvery        int                `json:"PrintEvery"`
	ColdIceMode       bool               `json:"ColdIceMode"`
	Grid              GridParameters     `json:"Grid"`
	FlowLaw           string             `json:"FlowLaw"`
	FlowLawExpression string             `json:"FlowLawExpression"`
	StressBalance     string             `json:"StressBalance"` // "prescribed" or "sia"
	Velocity          []float64          `json:"Velocity"`      // prescribed (u, v), m a-1
	Regional          bool               `json:"Regional"`
	ClosedBoundary    bool               `json:"ClosedBoundary"`
	Constants         map[string]float64 `json:"Constants"` // calibration overrides by name
	Bootstrap         map[string]string  `json:"Bootstrap"` // field name to an expression in x, y, z
}

func (ip *InputParametersIce) Parse(data []byte) (err error) {
	if err = yaml.Unmarshal(data, ip); err != nil {
		return
	}
	ip.setDefaults()
	return ip.validate()
}

func (ip *InputParametersIce) setDefaults() {
	if ip.CFL == 0 {
		ip.CFL = 0.5
	}
	if ip.FlowLaw == "" {
		ip.FlowLaw = "gpbld"
	}
	if ip.StressBalance == "" {
		ip.StressBalance = "prescribed"
	}
	if ip.Grid.Px == 0 {
		ip.Grid.Px = 1
	}
	if ip.Grid.Py == 0 {
		ip.Grid.Py = 1
	}
}

func (ip *InputParametersIce) validate() (err error) {
	switch {
	case ip.StressBalance != "prescribed" && ip.StressBalance != "sia":
		err = types.NewConfigurationError("StressBalance", "unknown stress balance %q", ip.StressBalance)
	case len(ip.Velocity) != 0 && len(ip.Velocity) != 2:
		err = types.NewConfigurationError("Velocity", "need (u, v), have %d values", len(ip.Velocity))
	case ip.FinalTime < 0:
		err = types.NewConfigurationError("FinalTime", "must be non negative, have %g", ip.FinalTime)
	case len(ip.Grid.Zlevels) == 0 && ip.Grid.Mz != 0 && (ip.Grid.Mz < 2 || ip.Grid.Lz <= 0):
		err = types.NewConfigurationError("Grid", "uniform levels need Mz >= 2 and Lz > 0, have %d, %g",
			ip.Grid.Mz, ip.Grid.Lz)
	}
	return
}

// Levels are the vertical levels of the run grid
func (ip *InputParametersIce) Levels() (z []float64) {
	if len(ip.Grid.Zlevels) != 0 {
		return append(z, ip.Grid.Zlevels...)
	}
	if ip.Grid.Mz < 2 {
		return
	}
	dz := ip.Grid.Lz / float64(ip.Grid.Mz-1)
	for k := 0; k < ip.Grid.Mz; k++ {
		z = append(z, float64(k)*dz)
	}
	z[ip.Grid.Mz-1] = ip.Grid.Lz
	return
}

// PrescribedVelocity is (u, v) in m a-1, zero when not given
func (ip *InputParametersIce) PrescribedVelocity() (u, v float64) {
	if len(ip.Velocity) == 2 {
		u, v = ip.Velocity[0], ip.Velocity[1]
	}
	return
}

func (ip *InputParametersIce) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("%8.5f\t\t= CFL\n", ip.CFL)
	fmt.Printf("%8.3f\t\t= FinalTime (years)\n", ip.FinalTime)
	fmt.Printf("%8.3f\t\t= MaxTimeStep (years)\n", ip.MaxTimeStep)
	fmt.Printf("[%s]\t\t\t= Flow Law\n", ip.FlowLaw)
	fmt.Printf("[%s]\t\t= Stress Balance\n", ip.StressBalance)
	fmt.Printf("[%v]\t\t\t= Cold Ice Mode\n", ip.ColdIceMode)
	fmt.Printf("[%v]\t\t\t= Regional, closed boundary = %v\n", ip.Regional, ip.ClosedBoundary)
	fmt.Printf("Grid %dx%d, [%g,%g], %d levels, %dx%d tiles\n",
		ip.Grid.Mx, ip.Grid.My, ip.Grid.Lx, ip.Grid.Ly, len(ip.Levels()), ip.Grid.Px, ip.Grid.Py)
	for _, key := range sortedKeys(ip.Constants) {
		fmt.Printf("Constants[%s] = %g\n", key, ip.Constants[key])
	}
	for _, key := range sortedKeys(ip.Bootstrap) {
		fmt.Printf("Bootstrap[%s] = %s\n", key, ip.Bootstrap[key])
	}
}

func sortedKeys[T any](m map[string]T) (keys []string) {
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return
}
