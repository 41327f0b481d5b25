package models

// Coefficient is a pointwise coefficient function of (t, x).
type Coefficient func(t, x float64) (float64, error)

// Func builds an equation from closures. A nil DVolFn is reported as a
// zero derivative.
type Func struct {
	DriftFn Coefficient
	VolFn   Coefficient
	DVolFn  Coefficient
}

func (f *Func) Drift(t, x float64) (float64, error) { return f.DriftFn(t, x) }

func (f *Func) Vol(t, x float64) (float64, error) { return f.VolFn(t, x) }

func (f *Func) DVolDx(t, x float64) (float64, error) {
	if f.DVolFn == nil {
		return 0, nil
	}
	return f.DVolFn(t, x)
}
