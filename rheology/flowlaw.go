package rheology

import (
	"fmt"
	"math"
	"strings"

	"github.com/Knetic/govaluate"

	"github.com/notargets/goice/config"
	"github.com/notargets/goice/types"
	"github.com/notargets/goice/utils"
)

// FlowLaw is an isotropic Glen-type law. Temperatures are pressure adjusted,
// so T_0 is the melting point at any depth.
type FlowLaw interface {
	Name() string
	Exponent() float64
	Softness(Tpa, omega float64) float64
	Hardness(Tpa, omega float64) float64
}

type FlowLawType uint8

const (
	FLOW_PatersonBudd FlowLawType = iota
	FLOW_GPBLD
	FLOW_Expression
)

var (
	FlowLawNames = map[string]FlowLawType{
		"pb":         FLOW_PatersonBudd,
		"gpbld":      FLOW_GPBLD,
		"expression": FLOW_Expression,
	}
	FlowLawPrintNames = []string{"Paterson-Budd", "Glen-Paterson-Budd-Lliboutry-Duval", "Expression"}
)

func (fl FlowLawType) Print() (txt string) {
	txt = FlowLawPrintNames[fl]
	return
}

func NewFlowLawType(label string) (fl FlowLawType, err error) {
	var ok bool
	if fl, ok = FlowLawNames[strings.ToLower(label)]; !ok {
		err = types.NewConfigurationError("flow_law", "unknown flow law %q", label)
	}
	return
}

// NewFlowLaw builds a flow law by name. expr is only used by "expression".
func NewFlowLaw(name string, c config.Constants, expr string) (fl FlowLaw, err error) {
	var flt FlowLawType
	if flt, err = NewFlowLawType(name); err != nil {
		return
	}
	switch flt {
	case FLOW_PatersonBudd:
		fl = NewPatersonBudd(c)
	case FLOW_GPBLD:
		fl = NewGPBLD(c)
	case FLOW_Expression:
		fl, err = NewExpression(c, expr)
	}
	return
}

// PatersonBudd is the cold/warm Arrhenius law of Paterson and Budd (1982)
type PatersonBudd struct {
	n                float64
	ACold, AWarm     float64
	QCold, QWarm     float64
	TCrit, R         float64
	hardnessExponent float64
}

func NewPatersonBudd(c config.Constants) *PatersonBudd {
	return &PatersonBudd{
		n:     c.GlenExponent,
		ACold: c.SoftnessColdFactor, AWarm: c.SoftnessWarmFactor,
		QCold: c.ActivationColdQ, QWarm: c.ActivationWarmQ,
		TCrit: c.CriticalTemperature, R: c.IdealGasConstant,
		hardnessExponent: -1 / c.GlenExponent,
	}
}

func (pb *PatersonBudd) Name() string      { return FLOW_PatersonBudd.Print() }
func (pb *PatersonBudd) Exponent() float64 { return pb.n }

func (pb *PatersonBudd) Softness(Tpa, omega float64) float64 {
	if Tpa < pb.TCrit {
		return pb.ACold * math.Exp(-pb.QCold/(pb.R*Tpa))
	}
	return pb.AWarm * math.Exp(-pb.QWarm/(pb.R*Tpa))
}

func (pb *PatersonBudd) Hardness(Tpa, omega float64) float64 {
	return math.Pow(pb.Softness(Tpa, omega), pb.hardnessExponent)
}

// GPBLD softens temperate ice with its water content, after Lliboutry and
// Duval (1985). The enhancement saturates at the maximum water fraction.
type GPBLD struct {
	PatersonBudd
	WaterFracCoeff, WaterFracMax float64
}

func NewGPBLD(c config.Constants) *GPBLD {
	return &GPBLD{
		PatersonBudd:   *NewPatersonBudd(c),
		WaterFracCoeff: c.WaterFractionCoefficient,
		WaterFracMax:   c.MaxWaterFraction,
	}
}

func (gp *GPBLD) Name() string { return FLOW_GPBLD.Print() }

func (gp *GPBLD) Softness(Tpa, omega float64) float64 {
	omega = math.Max(0, math.Min(omega, gp.WaterFracMax))
	return gp.PatersonBudd.Softness(Tpa, omega) * (1 + gp.WaterFracCoeff*omega)
}

func (gp *GPBLD) Hardness(Tpa, omega float64) float64 {
	return math.Pow(gp.Softness(Tpa, omega), gp.hardnessExponent)
}

// Expression evaluates a softness curve A(T, omega) given as text. The
// calibration constants are available by their configuration names, for example
// "Paterson_Budd_A_cold * exp(-Paterson_Budd_Q_cold / (ideal_gas_constant * T))"
type Expression struct {
	n      float64
	text   string
	expr   *govaluate.EvaluableExpression
	consts map[string]float64
}

type softnessParameters struct {
	T, omega float64
	consts   map[string]float64
}

func (sp softnessParameters) Get(name string) (interface{}, error) {
	switch name {
	case "T":
		return sp.T, nil
	case "omega":
		return sp.omega, nil
	}
	if val, ok := sp.consts[name]; ok {
		return val, nil
	}
	return nil, fmt.Errorf("unknown variable %q", name)
}

var expressionFunctions = map[string]govaluate.ExpressionFunction{
	"exp": func(args ...interface{}) (interface{}, error) {
		x, err := utils.FloatArgs("exp", 1, args)
		if err != nil {
			return nil, err
		}
		return math.Exp(x[0]), nil
	},
	"pow": func(args ...interface{}) (interface{}, error) {
		x, err := utils.FloatArgs("pow", 2, args)
		if err != nil {
			return nil, err
		}
		return math.Pow(x[0], x[1]), nil
	},
	"min": func(args ...interface{}) (interface{}, error) {
		x, err := utils.FloatArgs("min", 2, args)
		if err != nil {
			return nil, err
		}
		return math.Min(x[0], x[1]), nil
	},
}

// Monotonicity of the softness curve is checked over this range at omega = 0
const (
	checkTmin    = 223.15
	checkTmax    = 273.15
	checkSamples = 101
)

func NewExpression(c config.Constants, text string) (ex *Expression, err error) {
	var (
		expr *govaluate.EvaluableExpression
	)
	if expr, err = govaluate.NewEvaluableExpressionWithFunctions(text, expressionFunctions); err != nil {
		err = types.NewConfigurationError("flow_law_expression", "%v", err)
		return
	}
	ex = &Expression{n: c.GlenExponent, text: text, expr: expr, consts: make(map[string]float64)}
	for _, key := range config.Keys() {
		if ex.consts[key], err = c.Lookup(key); err != nil {
			ex = nil
			return
		}
	}
	for _, v := range expr.Vars() {
		if _, err = (softnessParameters{consts: ex.consts}).Get(v); err != nil {
			err = types.NewConfigurationError("flow_law_expression", "%v", err)
			ex = nil
			return
		}
	}
	var (
		prev = math.Inf(-1)
		A    float64
	)
	for i := 0; i < checkSamples; i++ {
		T := checkTmin + float64(i)*(checkTmax-checkTmin)/float64(checkSamples-1)
		if A, err = ex.evaluate(T, 0); err != nil {
			err = types.NewConfigurationError("flow_law_expression", "%v", err)
			ex = nil
			return
		}
		if A <= 0 || math.IsNaN(A) || A < prev {
			err = types.NewConfigurationError("flow_law_expression",
				"softness must be positive and non-decreasing in T, got A(%g) = %g", T, A)
			ex = nil
			return
		}
		prev = A
	}
	return
}

func (ex *Expression) evaluate(T, omega float64) (A float64, err error) {
	var (
		res interface{}
		ok  bool
	)
	if res, err = ex.expr.Eval(softnessParameters{T: T, omega: omega, consts: ex.consts}); err != nil {
		return
	}
	if A, ok = res.(float64); !ok {
		err = fmt.Errorf("expression %q returned %T, not a number", ex.text, res)
	}
	return
}

func (ex *Expression) Name() string      { return FLOW_Expression.Print() + ": " + ex.text }
func (ex *Expression) Exponent() float64 { return ex.n }

// Softness was validated at construction, evaluation errors past that point
// can only come from inputs outside the float domain and yield NaN.
func (ex *Expression) Softness(Tpa, omega float64) float64 {
	A, err := ex.evaluate(Tpa, omega)
	if err != nil {
		return math.NaN()
	}
	return A
}

func (ex *Expression) Hardness(Tpa, omega float64) float64 {
	return math.Pow(ex.Softness(Tpa, omega), -1/ex.n)
}
