package integrators

import "github.com/san-kum/sdesim/internal/dynamo"

// EulerMaruyama advances x by mu*dt + sigma*dB.
type EulerMaruyama struct{}

func NewEulerMaruyama() *EulerMaruyama {
	return &EulerMaruyama{}
}

func (e *EulerMaruyama) Name() string { return "euler" }

func (e *EulerMaruyama) StrongOrder() float64 { return 0.5 }

func (e *EulerMaruyama) Step(eq dynamo.SDE, t, x, dt, dB float64) (float64, error) {
	mu, err := eq.Drift(t, x)
	if err != nil {
		return 0, err
	}
	sigma, err := eq.Vol(t, x)
	if err != nil {
		return 0, err
	}
	return x + mu*dt + sigma*dB, nil
}
