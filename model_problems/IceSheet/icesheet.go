package IceSheet

import (
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/notargets/goice/config"
	"github.com/notargets/goice/grid"
	"github.com/notargets/goice/rheology"
	"github.com/notargets/goice/thermo"
	"github.com/notargets/goice/types"
	"github.com/notargets/goice/utils"
)

const SecondsPerYear = 3.15569259747e7

type Params struct {
	FinalTime     float64 // s
	MaxIterations int
	CFL           float64
	MaxTimeStep   float64 // s, 0 leaves the step to the stability bounds
	ColdIceMode   bool    // hold enthalpy, derive it from temperature on output
	PrintEvery    int     // steps between progress lines
}

func (p *Params) validate() (err error) {
	switch {
	case !(p.CFL > 0 && p.CFL <= 1):
		err = types.NewConfigurationError("CFL", "must be in (0,1], have %g", p.CFL)
	case p.FinalTime < 0 || math.IsNaN(p.FinalTime):
		err = types.NewConfigurationError("FinalTime", "must be non negative, have %g", p.FinalTime)
	case p.MaxTimeStep < 0:
		err = types.NewConfigurationError("MaxTimeStep", "must be non negative, have %g", p.MaxTimeStep)
	}
	if p.MaxIterations <= 0 {
		p.MaxIterations = math.MaxInt32
	}
	if p.PrintEvery <= 0 {
		p.PrintEvery = 100
	}
	return
}

/*
IceSheet steps ice thickness and enthalpy on a tiled grid. The strategies
for held cells (FluxPolicy, EnthalpyPolicy) and the velocity source
(StressBalance) are chosen at setup and fixed for the run.
*/
type IceSheet struct {
	Params
	G          *grid.Grid
	EC         *thermo.EnthalpyConverter
	Rheology   *rheology.Adapter
	Flux       FluxPolicy
	EnthalpyBC EnthalpyPolicy
	Stress     StressBalance
	Logger     *zap.Logger
	Out        io.Writer // progress table
	Time       float64
	Steps      int
	// Model state
	Thk, Topg, Usurf, Enth, Temp, Bmelt *grid.Field
	// Boundary inputs
	SMB, Ts, Ghf, Enhancement *grid.Field
	// Double buffers and the flux limiter, published only after exchange
	ThkNew, EnthNew, BmeltNew *grid.Field
	FluxENew, FluxNNew        *grid.Field
	Limiter                   *grid.Field
	FluxE, FluxN              *grid.Field // limited face fluxes, m2 s-1
	Diagnostics               StepDiagnostics
	Totals                    StepDiagnostics
	verbose                   bool
}

func NewIceSheet(g *grid.Grid, c config.Constants, law rheology.FlowLaw, p Params, verbose bool) (m *IceSheet, err error) {
	if err = p.validate(); err != nil {
		return
	}
	m = &IceSheet{
		Params:     p,
		G:          g,
		Flux:       StandardFlux{},
		EnthalpyBC: DefaultEnthalpyBC{},
		Logger:     zap.NewNop(),
		Out:        os.Stdout,
		verbose:    verbose,
	}
	if m.EC, err = thermo.NewEnthalpyConverter(c); err != nil {
		return
	}
	if law == nil {
		law = rheology.NewGPBLD(c)
	}
	m.Rheology = rheology.NewAdapter(m.EC, law)
	m.allocate()
	m.Enhancement.Set(1)
	m.Stress = NewPrescribed(g)
	if verbose {
		fmt.Printf("Polythermal ice sheet, enthalpy and mass continuity\n")
		fmt.Printf("Using %d go routines in parallel\n", g.NumTiles())
		fmt.Printf("%s\n", g.Print())
		fmt.Printf("Flow law: %s\n", law.Name())
		fmt.Printf("CFL = %8.4f, FinalTime = %8.3f years, Cold ice mode = %v\n\n",
			p.CFL, p.FinalTime/SecondsPerYear, p.ColdIceMode)
	}
	return
}

func (m *IceSheet) allocate() {
	var (
		g     = m.G
		state = func(units, long, std string) grid.Attributes {
			return grid.Attributes{Units: units, LongName: long, StandardName: std, Kind: types.Field_State}
		}
		diag = func(units, long string) grid.Attributes {
			return grid.Attributes{Units: units, LongName: long, Kind: types.Field_Diagnostic}
		}
		internal = grid.Attributes{Kind: types.Field_Internal}
	)
	m.Thk = g.NewField2D("thk", state("m", "land ice thickness", "land_ice_thickness"))
	m.Topg = g.NewField2D("topg", state("m", "bedrock surface elevation", "bedrock_altitude"))
	m.Usurf = g.NewField2D("usurf", diag("m", "ice upper surface elevation"))
	m.Enth = g.NewField3D("enthalpy", state("J kg-1", "ice enthalpy (sensible heat, latent heat, pressure)", ""))
	m.Temp = g.NewField3D("temp", state("K", "ice temperature", "land_ice_temperature"))
	m.Bmelt = g.NewField2D("bmelt", state("m s-1", "ice basal melt rate", ""))
	m.SMB = g.NewField2D("climatic_mass_balance", state("m s-1", "surface mass balance, ice equivalent", ""))
	m.Ts = g.NewField2D("ice_surface_temp", state("K", "ice temperature at the ice surface", ""))
	m.Ghf = g.NewField2D("bheatflx", state("W m-2", "upward geothermal flux at the bedrock surface", ""))
	m.Enhancement = g.NewField2D("enhancement", state("1", "flow enhancement factor", ""))
	m.ThkNew = g.NewField2D("thk_new", internal)
	m.EnthNew = g.NewField3D("enthalpy_new", internal)
	m.BmeltNew = g.NewField2D("bmelt_new", internal)
	m.FluxENew = g.NewField2D("flux_east_new", internal)
	m.FluxNNew = g.NewField2D("flux_north_new", internal)
	m.Limiter = g.NewField2D("flux_limiter", internal)
	m.FluxE = g.NewField2D("flux_east", diag("m2 s-1", "ice flux through the east cell face"))
	m.FluxN = g.NewField2D("flux_north", diag("m2 s-1", "ice flux through the north cell face"))
}

// SetRegional installs r as both the flux and the enthalpy policy, capturing
// its snapshot from the current state if that has not happened yet
func (m *IceSheet) SetRegional(r *Regional) (err error) {
	if !r.Captured() {
		if err = r.Capture(m); err != nil {
			return
		}
	}
	m.Flux, m.EnthalpyBC = r, r
	return
}

func (m *IceSheet) SetLogger(l *zap.Logger) {
	if l != nil {
		m.Logger = l
	}
}

func (m *IceSheet) stateFields() []*grid.Field {
	return []*grid.Field{m.Thk, m.Topg, m.Usurf, m.Enth, m.Bmelt, m.SMB, m.Ts, m.Ghf, m.Enhancement}
}

// staged pairs a published field with the buffer holding its next value
type staged struct {
	live, next *grid.Field
}

// swapStaged exchanges every pair, so a second call undoes the first
func (m *IceSheet) swapStaged(pairs []staged) (err error) {
	for _, p := range pairs {
		if err = p.live.SwapData(p.next); err != nil {
			return
		}
	}
	m.updateSurface()
	return
}

// Step advances thickness and enthalpy by dt. Any error leaves the published
// state of the previous step in place.
func (m *IceSheet) Step(dt float64) (err error) {
	if utils.IsNan(dt) || dt <= 0 || math.IsInf(dt, 0) {
		return fmt.Errorf("Step: invalid time step %g", dt)
	}
	m.Diagnostics = StepDiagnostics{}
	if err = m.G.Exchange(m.stateFields()...); err != nil {
		return
	}
	if err = m.Stress.Update(m); err != nil {
		return
	}
	if err = m.massContinuityStep(dt); err != nil {
		return
	}
	geometry := []staged{{m.Thk, m.ThkNew}, {m.FluxE, m.FluxENew}, {m.FluxN, m.FluxNNew}}
	if err = m.swapStaged(geometry); err != nil {
		return
	}
	if !m.ColdIceMode {
		// Velocities consistent with the new geometry
		if err = m.Stress.Update(m); err == nil {
			err = m.enthalpyStep(dt)
		}
		if err != nil {
			m.withdraw(geometry)
			return
		}
	}
	m.Steps++
	m.Time += dt
	m.Totals.Add(m.Diagnostics)
	m.Logger.Debug("step",
		zap.Int("step", m.Steps),
		zap.Float64("time_years", m.Time/SecondsPerYear),
		zap.Float64("dt", dt),
		m.Diagnostics.Field("diagnostics"))
	return
}

// withdraw restores the geometry of the previous step and its velocities
func (m *IceSheet) withdraw(geometry []staged) {
	if err := m.swapStaged(geometry); err != nil {
		m.Logger.Warn("restoring thickness", zap.Error(err))
		return
	}
	if err := m.Stress.Update(m); err != nil {
		m.Logger.Warn("restoring velocities", zap.Error(err))
	}
}

// MaxTimestep is the largest step satisfying the advective CFL condition,
// the vertical diffusion bound and, for diffusive stress balances, the
// explicit mass continuity bound
func (m *IceSheet) MaxTimestep() (dt float64) {
	var (
		c   = m.EC.Constants()
		vel = m.Stress.Velocity()
		g   = m.G
	)
	dt = math.Inf(1)
	for _, uv := range [][2]*grid.Field{{vel.U, vel.Ubar}, {vel.V, vel.Vbar}} {
		h := g.Dx
		if uv[0] == vel.V {
			h = g.Dy
		}
		if vmax := math.Max(uv[0].MaxAbs(), uv[1].MaxAbs()); vmax > 0 {
			dt = math.Min(dt, m.CFL*h/vmax)
		}
	}
	if !m.ColdIceMode {
		dzMin := math.Inf(1)
		for k := 1; k < g.Mz; k++ {
			dzMin = math.Min(dzMin, g.Zlevels[k]-g.Zlevels[k-1])
		}
		D := c.IceThermalConductivity / (c.IceDensity * c.IceSpecificHeat)
		dt = math.Min(dt, 0.5*dzMin*dzMin/D)
	}
	if d, ok := m.Stress.(diffusive); ok {
		if Dmax := d.MaxDiffusivity(); Dmax > 0 {
			h := math.Min(g.Dx, g.Dy)
			dt = math.Min(dt, 0.25*h*h/Dmax)
		}
	}
	if m.MaxTimeStep > 0 {
		dt = math.Min(dt, m.MaxTimeStep)
	}
	return
}

// Run steps to FinalTime or MaxIterations
func (m *IceSheet) Run() (err error) {
	var (
		dt       float64
		finished = m.CheckIfFinished(m.Time, m.FinalTime, m.Steps)
		elapsed  time.Duration
		start    time.Time
		V0       = m.IceVolume()
	)
	m.Logger.Info("run start",
		zap.Float64("final_time_years", m.FinalTime/SecondsPerYear),
		zap.String("flux_policy", m.Flux.Name()),
		zap.String("stress_balance", m.Stress.Name()))
	m.PrintInitialization()
	if err = m.G.Exchange(m.stateFields()...); err != nil {
		return
	}
	if err = m.Stress.Update(m); err != nil {
		return
	}
	for !finished {
		remaining := m.FinalTime - m.Time
		dt = math.Min(m.MaxTimestep(), remaining)
		start = time.Now()
		if err = m.Step(dt); err != nil {
			m.Logger.Error("step failed", zap.Int("step", m.Steps+1), zap.Error(err))
			return
		}
		elapsed += time.Since(start)
		if dt == remaining {
			m.Time = m.FinalTime
		}
		finished = m.CheckIfFinished(m.Time, m.FinalTime, m.Steps)
		if finished || m.Steps%m.PrintEvery == 0 || m.Steps == 1 {
			m.PrintUpdate(dt)
		}
	}
	m.PrintFinal(elapsed)
	m.Logger.Info("run complete",
		zap.Int("steps", m.Steps),
		zap.Float64("volume_change", m.IceVolume()-V0),
		m.Totals.Field("totals"))
	return
}

func (m *IceSheet) CheckIfFinished(Time, FinalTime float64, steps int) (finished bool) {
	if Time >= FinalTime || steps >= m.MaxIterations {
		finished = true
	}
	return
}

// IceVolume in m3
func (m *IceSheet) IceVolume() float64 {
	return m.Thk.Sum() * m.G.Dx * m.G.Dy
}

func (m *IceSheet) PrintInitialization() {
	fmt.Fprintf(m.Out, "Solving until finaltime = %8.3f years\n", m.FinalTime/SecondsPerYear)
	fmt.Fprintf(m.Out, "    iter   time(a)     dt(a)")
	fmt.Fprintf(m.Out, "  volume(m3)    max_thk  SIAcount BULGEcount\n")
}

func (m *IceSheet) PrintUpdate(dt float64) {
	format := "%11.4e"
	fmt.Fprintf(m.Out, "%8d%10.3f%10.5f", m.Steps, m.Time/SecondsPerYear, dt/SecondsPerYear)
	fmt.Fprintf(m.Out, " "+format, m.IceVolume())
	fmt.Fprintf(m.Out, " "+format, m.Thk.MaxAbs())
	fmt.Fprintf(m.Out, "%10d%11d\n", m.Diagnostics.VertSacrCount, m.Diagnostics.BulgeCount)
}

func (m *IceSheet) PrintFinal(elapsed time.Duration) {
	if m.Steps == 0 {
		return
	}
	rate := float64(elapsed.Microseconds()) / float64(m.G.Mx*m.G.My*m.Steps)
	fmt.Fprintf(m.Out, "\nRate of execution = %8.5f us/(column*iteration) over %d iterations\n", rate, m.Steps)
	fmt.Fprintf(m.Out, "Totals: %s\n", m.Totals.Print())
	if m.verbose {
		fmt.Fprintf(m.Out, "%s\n", utils.GetMemUsage())
	}
}
