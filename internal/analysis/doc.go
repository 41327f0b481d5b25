// Package analysis provides convergence and distribution tools for
// simulated ensembles.
//
// The package includes:
//
//   - [StrongConvergence]: strong error of a scheme across refinements of a
//     single Brownian realization, with the fitted convergence order
//   - [EstimateOrder]: least-squares slope of log(error) against log(dt)
//   - [Quantiles]: per-time ensemble quantile bands
//   - [FanChartToASCII]: terminal rendering of an ensemble over time
//
// # Convergence Check
//
// The fitted order should approach the scheme's nominal strong order:
//
//	report, _ := analysis.StrongConvergence(ctx, analysis.Study{
//	    SDE: models.NewGBM(0.05, 0.5), Scheme: integrators.NewMilstein(),
//	    X0: 1, Horizon: 1, FineSteps: 256, Factors: []int{2, 4, 8, 16},
//	    Paths: 2000, Seed: 1,
//	})
//	fmt.Println(report.Order) // close to 1
package analysis
