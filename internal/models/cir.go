package models

import (
	"math"

	"github.com/san-kum/sdesim/internal/dynamo"
)

// CIR is the Cox–Ingersoll–Ross square-root process
// dX = kappa (theta - X) dt + sigma sqrt(X) dB.
type CIR struct {
	Kappa float64
	Theta float64
	Sigma float64
}

func NewCIR(kappa, theta, sigma float64) *CIR {
	return &CIR{Kappa: kappa, Theta: theta, Sigma: sigma}
}

func (c *CIR) Drift(t, x float64) (float64, error) {
	return c.Kappa * (c.Theta - x), nil
}

func (c *CIR) Vol(t, x float64) (float64, error) {
	if x < 0 || math.IsNaN(x) {
		return 0, dynamo.DomainError("vol", t, x)
	}
	return c.Sigma * math.Sqrt(x), nil
}

func (c *CIR) DVolDx(t, x float64) (float64, error) {
	if x <= 0 || math.IsNaN(x) {
		return 0, dynamo.DomainError("dvol_dx", t, x)
	}
	return c.Sigma / (2 * math.Sqrt(x)), nil
}

// Feller reports whether 2 kappa theta >= sigma^2, under which the exact
// process stays strictly positive.
func (c *CIR) Feller() bool {
	return 2*c.Kappa*c.Theta >= c.Sigma*c.Sigma
}
