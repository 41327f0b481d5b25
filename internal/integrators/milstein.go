package integrators

import "github.com/san-kum/sdesim/internal/dynamo"

// Milstein extends Euler–Maruyama with the Itô–Taylor correction
// 0.5*sigma*sigma'*(dB^2 - dt).
//
// Equations that do not implement dynamo.VolDerivative are treated as
// having sigma' = 0, which reduces the update to Euler–Maruyama.
type Milstein struct{}

func NewMilstein() *Milstein {
	return &Milstein{}
}

func (m *Milstein) Name() string { return "milstein" }

func (m *Milstein) StrongOrder() float64 { return 1.0 }

func (m *Milstein) Step(eq dynamo.SDE, t, x, dt, dB float64) (float64, error) {
	// all coefficients at the same (t, x) before anything is combined
	mu, err := eq.Drift(t, x)
	if err != nil {
		return 0, err
	}
	sigma, err := eq.Vol(t, x)
	if err != nil {
		return 0, err
	}
	dsigma := 0.0
	if d, ok := eq.(dynamo.VolDerivative); ok {
		dsigma, err = d.DVolDx(t, x)
		if err != nil {
			return 0, err
		}
	}

	return x + mu*dt + sigma*dB + 0.5*sigma*dsigma*(dB*dB-dt), nil
}
