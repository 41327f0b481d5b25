package sim_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/sdesim/internal/brownian"
	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/integrators"
	"github.com/san-kum/sdesim/internal/models"
	"github.com/san-kum/sdesim/internal/sim"
)

var _ = Describe("Solver", func() {
	var (
		gbm    *models.GBM
		times  []float64
		single *mat.Dense
	)

	BeforeEach(func() {
		gbm = models.NewGBM(0.05, 0.2)
		times = []float64{0, 0.5, 1.0}
		single = mat.NewDense(1, 3, []float64{0, 0.1, -0.05})
	})

	Describe("construction", func() {
		It("rejects a brownian array whose time points disagree with the grid", func() {
			n := 4
			b := mat.NewDense(3, n, nil)
			grid := dynamo.UniformGrid(0, 1, n+1)
			Expect(grid).To(HaveLen(n + 2))

			_, err := sim.New(integrators.NewMilstein(), grid, []float64{1}, 3, b)
			Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
		})

		It("rejects a path count that disagrees with the brownian rows", func() {
			_, err := sim.New(integrators.NewMilstein(), times, []float64{1}, 2, single)
			Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
		})

		It("rejects an initial condition of the wrong length", func() {
			b := mat.NewDense(3, 3, nil)
			_, err := sim.New(integrators.NewEulerMaruyama(), times, []float64{1, 2}, 3, b)
			Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
		})

		It("rejects grids that are not strictly increasing", func() {
			_, err := sim.New(integrators.NewEulerMaruyama(), []float64{0, 0.5, 0.5}, []float64{1}, 1, single)
			Expect(err).To(MatchError(dynamo.ErrInvalidGrid))
		})

		It("rejects a nil scheme", func() {
			_, err := sim.New(nil, times, []float64{1}, 1, single)
			Expect(err).To(MatchError(dynamo.ErrInvalidScheme))
		})

		It("broadcasts a scalar initial condition", func() {
			s, err := sim.New(integrators.NewEulerMaruyama(), times, []float64{7}, 3, mat.NewDense(3, 3, nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Current()).To(Equal(dynamo.State{7, 7, 7}))
			Expect(s.Steps()).To(Equal(2))
			Expect(s.NumPaths()).To(Equal(3))
		})
	})

	Describe("stepping", func() {
		It("produces the Milstein value for a GBM step", func() {
			s, err := sim.New(integrators.NewMilstein(), times, []float64{100}, 1, single)
			Expect(err).NotTo(HaveOccurred())

			x1, err := s.Step(gbm)
			Expect(err).NotTo(HaveOccurred())
			Expect(x1[0]).To(BeNumerically("~", 103.52, 1e-9))
			Expect(s.Iter()).To(Equal(1))

			x2, err := s.Step(gbm)
			Expect(err).NotTo(HaveOccurred())
			x, dB := x1[0], -0.15
			want := x + 0.05*x*0.5 + 0.2*x*dB + 0.5*0.2*x*0.2*(dB*dB-0.5)
			Expect(x2[0]).To(BeNumerically("~", want, 1e-9))
		})

		It("stops at the last grid point", func() {
			s, _ := sim.New(integrators.NewMilstein(), times, []float64{100}, 1, single)

			for i := 0; i < s.Steps(); i++ {
				Expect(s.Done()).To(BeFalse())
				_, err := s.Step(gbm)
				Expect(err).NotTo(HaveOccurred())
			}

			Expect(s.Done()).To(BeTrue())
			Expect(s.Iter()).To(Equal(s.Steps() - 1))

			_, err := s.Step(gbm)
			Expect(err).To(MatchError(dynamo.ErrOutOfRange))
		})

		It("returns a copy of the live state", func() {
			s, _ := sim.New(integrators.NewMilstein(), times, []float64{100}, 1, single)
			x, _ := s.Step(gbm)
			x[0] = -1
			Expect(s.Current()[0]).To(BeNumerically("~", 103.52, 1e-9))
		})

		It("uses each interval's own step size", func() {
			drift := models.NewArithmeticBrownian(1, 0)
			grid := []float64{0, 0.1, 0.4, 1.0}
			s, _ := sim.New(integrators.NewEulerMaruyama(), grid, []float64{2}, 1, mat.NewDense(1, 4, nil))

			Expect(s.StepSize(1)).To(BeNumerically("~", 0.3, 1e-15))
			x, err := s.Step(drift)
			Expect(err).NotTo(HaveOccurred())
			Expect(x[0]).To(BeNumerically("~", 2.1, 1e-12))
			x, _ = s.Step(drift)
			Expect(x[0]).To(BeNumerically("~", 2.4, 1e-12))
			x, _ = s.Step(drift)
			Expect(x[0]).To(BeNumerically("~", 3.0, 1e-12))
		})

		It("aborts the whole ensemble update on a domain error", func() {
			cir := models.NewCIR(1, 0.04, 0.3)
			b := mat.NewDense(3, 3, []float64{
				0, 0.01, 0.02,
				0, -0.01, 0.0,
				0, 0.02, 0.01,
			})
			s, _ := sim.New(integrators.NewEulerMaruyama(), times, []float64{0.04, -1, 0.05}, 3, b)

			_, err := s.Step(cir)
			Expect(err).To(MatchError(dynamo.ErrDomain))

			var simErr *dynamo.SimulationError
			Expect(err).To(BeAssignableToTypeOf(simErr))
			simErr = err.(*dynamo.SimulationError)
			Expect(simErr.Path).To(Equal(1))
			Expect(simErr.Step).To(Equal(0))

			Expect(s.Current()).To(Equal(dynamo.State{0.04, -1, 0.05}))
			Expect(s.Iter()).To(Equal(0))
			Expect(s.Done()).To(BeFalse())
		})

		It("rejects non-finite results when validation is on", func() {
			blowup := &models.Func{
				DriftFn: func(t, x float64) (float64, error) { return math.Inf(1), nil },
				VolFn:   func(t, x float64) (float64, error) { return 0, nil },
			}
			s, _ := sim.New(integrators.NewEulerMaruyama(), times, []float64{1}, 1, single, sim.WithValidation(true))

			_, err := s.Step(blowup)
			Expect(err).To(MatchError(dynamo.ErrInvalidState))
			Expect(s.Current()).To(Equal(dynamo.State{1}))
		})
	})

	Describe("running", func() {
		const paths = 600
		var grid []float64
		var b *mat.Dense

		BeforeEach(func() {
			grid = dynamo.UniformGrid(0, 1, 50)
			var err error
			b, err = brownian.NewGenerator(7).Paths(grid, paths)
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns the full trajectory with the initial state first", func() {
			s, _ := sim.New(integrators.NewMilstein(), grid, []float64{100}, paths, b)
			out, err := s.RunAll(gbm)
			Expect(err).NotTo(HaveOccurred())

			r, c := out.Dims()
			Expect(r).To(Equal(paths))
			Expect(c).To(Equal(len(grid)))
			Expect(out.At(0, 0)).To(Equal(100.0))
			Expect(s.Done()).To(BeTrue())
		})

		It("is deterministic for identical inputs", func() {
			run := func() *mat.Dense {
				s, err := sim.New(integrators.NewMilstein(), grid, []float64{100}, paths, b)
				Expect(err).NotTo(HaveOccurred())
				out, err := s.RunAll(gbm)
				Expect(err).NotTo(HaveOccurred())
				return out
			}
			Expect(mat.Equal(run(), run())).To(BeTrue())
		})

		It("matches the serial result when paths are split across workers", func() {
			serial, _ := sim.New(integrators.NewMilstein(), grid, []float64{100}, paths, b)
			parallel, _ := sim.New(integrators.NewMilstein(), grid, []float64{100}, paths, b, sim.WithWorkers(4))

			a, err := serial.RunAll(gbm)
			Expect(err).NotTo(HaveOccurred())
			p, err := parallel.RunAll(gbm)
			Expect(err).NotTo(HaveOccurred())
			Expect(mat.Equal(a, p)).To(BeTrue())
		})

		It("yields lazily and resumes where it stopped", func() {
			s, _ := sim.New(integrators.NewEulerMaruyama(), grid, []float64{100}, paths, b)

			taken := 0
			for _, err := range s.Run(gbm) {
				Expect(err).NotTo(HaveOccurred())
				taken++
				if taken == 3 {
					break
				}
			}
			Expect(s.Iter()).To(Equal(3))

			for _, err := range s.Run(gbm) {
				Expect(err).NotTo(HaveOccurred())
				taken++
			}
			Expect(taken).To(Equal(s.Steps()))
			Expect(s.Done()).To(BeTrue())
		})

		It("reports out of range when run again after completion", func() {
			s, _ := sim.New(integrators.NewEulerMaruyama(), grid, []float64{100}, paths, b)
			_, err := s.RunAll(gbm)
			Expect(err).NotTo(HaveOccurred())

			var errs []error
			for x, err := range s.Run(gbm) {
				Expect(x).To(BeNil())
				errs = append(errs, err)
			}
			Expect(errs).To(HaveLen(1))
			Expect(errs[0]).To(MatchError(dynamo.ErrOutOfRange))

			_, err = s.RunAll(gbm)
			Expect(err).To(MatchError(dynamo.ErrOutOfRange))
		})
	})
})
