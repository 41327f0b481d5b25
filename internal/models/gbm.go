package models

import "math"

// GBM is geometric Brownian motion dX = mu X dt + sigma X dB.
type GBM struct {
	Mu    float64
	Sigma float64
}

func NewGBM(mu, sigma float64) *GBM {
	return &GBM{Mu: mu, Sigma: sigma}
}

func (g *GBM) Drift(t, x float64) (float64, error) { return g.Mu * x, nil }

func (g *GBM) Vol(t, x float64) (float64, error) { return g.Sigma * x, nil }

func (g *GBM) DVolDx(t, x float64) (float64, error) { return g.Sigma, nil }

func (g *GBM) Exact(t, x0, w float64) float64 {
	return x0 * math.Exp((g.Mu-0.5*g.Sigma*g.Sigma)*t+g.Sigma*w)
}
