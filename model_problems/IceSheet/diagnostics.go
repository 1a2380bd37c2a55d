package IceSheet

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// StepDiagnostics are reporting only, nothing in the stepping depends on them
type StepDiagnostics struct {
	VertSacrCount   int     // columns needing vertical stabilization
	BulgeCount      int     // levels clipped at the cold bulge bound
	LiquifiedVolume float64 // m3 of water drained above the maximum water fraction
	NonnegFlux      float64 // m3 of ice removed by clipping negative thickness
	BoundaryFlux    float64 // m3 of ice leaving through the domain edge
	MassBalance     float64 // m3 of ice added by surface and basal mass balance
}

func (sd *StepDiagnostics) Add(o StepDiagnostics) {
	sd.VertSacrCount += o.VertSacrCount
	sd.BulgeCount += o.BulgeCount
	sd.LiquifiedVolume += o.LiquifiedVolume
	sd.NonnegFlux += o.NonnegFlux
	sd.BoundaryFlux += o.BoundaryFlux
	sd.MassBalance += o.MassBalance
}

// reduce sums per tile partial diagnostics
func reduce(parts []StepDiagnostics) (sd StepDiagnostics) {
	for _, p := range parts {
		sd.Add(p)
	}
	return
}

func (sd StepDiagnostics) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("vert_sacr_count", sd.VertSacrCount)
	enc.AddInt("bulge_count", sd.BulgeCount)
	enc.AddFloat64("liquified_volume", sd.LiquifiedVolume)
	enc.AddFloat64("nonneg_flux", sd.NonnegFlux)
	enc.AddFloat64("boundary_flux", sd.BoundaryFlux)
	enc.AddFloat64("mass_balance", sd.MassBalance)
	return nil
}

func (sd StepDiagnostics) Field(key string) zap.Field {
	return zap.Object(key, sd)
}

func (sd StepDiagnostics) Print() string {
	return fmt.Sprintf("SIAcount %d, BULGEcount %d, liquified %10.3e m3, nonneg %10.3e m3, boundary %10.3e m3",
		sd.VertSacrCount, sd.BulgeCount, sd.LiquifiedVolume, sd.NonnegFlux, sd.BoundaryFlux)
}
