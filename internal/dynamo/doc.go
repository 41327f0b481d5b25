// Package dynamo provides core primitives for simulating scalar stochastic
// differential equations over an ensemble of paths.
//
// The package defines the fundamental interfaces and types shared by the
// solver, the schemes and the concrete equations:
//
//   - [State]: ensemble values, one entry per simulated path
//   - [SDE]: drift and diffusion of dX = mu(t, X) dt + sigma(t, X) dB
//   - [VolDerivative]: optional spatial derivative of the diffusion
//   - [Scheme]: per-path update rule of a discretization scheme
//   - [Metric]: ensemble observer accumulated across steps
//
// # Example
//
//	eq := models.NewGBM(0.05, 0.2)
//	times := dynamo.UniformGrid(0, 1, 250)
//	b, _ := brownian.NewGenerator(42).Paths(times, 1000)
//	s, _ := sim.New(integrators.NewMilstein(), times, []float64{100}, 1000, b)
//	paths, _ := s.RunAll(eq)
//
// # Thread Safety
//
// SDE values must be safe for concurrent reads; the solver may evaluate
// them from several goroutines when path-parallel stepping is enabled.
// Solver instances themselves are NOT thread-safe.
package dynamo
