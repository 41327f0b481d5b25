package models

// OrnsteinUhlenbeck is the mean-reverting process
// dX = theta (mean - X) dt + sigma dB.
type OrnsteinUhlenbeck struct {
	Theta float64
	Mean  float64
	Sigma float64
}

func NewOrnsteinUhlenbeck(theta, mean, sigma float64) *OrnsteinUhlenbeck {
	return &OrnsteinUhlenbeck{Theta: theta, Mean: mean, Sigma: sigma}
}

func (o *OrnsteinUhlenbeck) Drift(t, x float64) (float64, error) {
	return o.Theta * (o.Mean - x), nil
}

func (o *OrnsteinUhlenbeck) Vol(t, x float64) (float64, error) { return o.Sigma, nil }

func (o *OrnsteinUhlenbeck) DVolDx(t, x float64) (float64, error) { return 0, nil }
