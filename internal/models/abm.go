package models

// ArithmeticBrownian is dX = mu dt + sigma dB. It has constant diffusion
// and does not implement dynamo.VolDerivative.
type ArithmeticBrownian struct {
	Mu    float64
	Sigma float64
}

func NewArithmeticBrownian(mu, sigma float64) *ArithmeticBrownian {
	return &ArithmeticBrownian{Mu: mu, Sigma: sigma}
}

func (a *ArithmeticBrownian) Drift(t, x float64) (float64, error) { return a.Mu, nil }

func (a *ArithmeticBrownian) Vol(t, x float64) (float64, error) { return a.Sigma, nil }

func (a *ArithmeticBrownian) Exact(t, x0, w float64) float64 {
	return x0 + a.Mu*t + a.Sigma*w
}
