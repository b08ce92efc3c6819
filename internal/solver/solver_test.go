package solver_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/mdokit/internal/mdo"
	"github.com/san-kum/mdokit/internal/solver"
)

// affineSteps couples a = ka·b + ca and b = kb·a + cb. With |ka·kb| < 1 the
// iteration contracts to the simultaneous solution
// a = (ka·cb + ca)/(1 - ka·kb), b = kb·a + cb.
func affineSteps(ka, ca, kb, cb float64) []solver.Step {
	return []solver.Step{
		{Name: "ua", Run: func(s *mdo.Store) error {
			s.SetScalar("a", ka*s.Float("b")+ca)
			return nil
		}},
		{Name: "ub", Run: func(s *mdo.Store) error {
			s.SetScalar("b", kb*s.Float("a")+cb)
			return nil
		}},
	}
}

var _ = Describe("Solve", func() {
	var (
		ctx   context.Context
		store *mdo.Store
		opts  solver.Options
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = mdo.NewStore()
		store.SetScalar("a", 0)
		store.SetScalar("b", 0)
		opts = solver.DefaultOptions()
	})

	Context("with a contracting affine cycle", func() {
		It("converges to the closed-form simultaneous solution", func() {
			// a = 0.5b + 1, b = 0.5a + 1 has the solution a = b = 2.
			steps := affineSteps(0.5, 1, 0.5, 1)
			rec, err := solver.Solve(ctx, "pair", steps, []string{"a", "b"}, store, opts)

			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Converged).To(BeTrue())
			Expect(store.Float("a")).To(BeNumerically("~", 2.0, 1e-7))
			Expect(store.Float("b")).To(BeNumerically("~", 2.0, 1e-7))
			Expect(rec.History).To(HaveLen(rec.Iterations))
			Expect(rec.Residual).To(BeNumerically("<=", opts.Tolerance))
		})

		It("honors a caller-supplied initial guess", func() {
			store.SetScalar("a", 2)
			store.SetScalar("b", 2)
			rec, err := solver.Solve(ctx, "pair", affineSteps(0.5, 1, 0.5, 1), []string{"a", "b"}, store, opts)

			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Iterations).To(Equal(1))
		})

		It("is deterministic across repeated solves", func() {
			run := func() (*solver.Record, float64, float64) {
				s := mdo.NewStore()
				s.SetScalar("a", 0)
				s.SetScalar("b", 0)
				rec, err := solver.Solve(ctx, "pair", affineSteps(0.3, 2, 0.4, -1), []string{"a", "b"}, s, opts)
				Expect(err).NotTo(HaveOccurred())
				return rec, s.Float("a"), s.Float("b")
			}

			rec1, a1, b1 := run()
			rec2, a2, b2 := run()
			Expect(a1).To(Equal(a2))
			Expect(b1).To(Equal(b2))
			Expect(rec1.Iterations).To(Equal(rec2.Iterations))
			Expect(rec1.History).To(Equal(rec2.History))
		})
	})

	Context("with a non-contracting cycle", func() {
		It("fails with ErrNoConvergence at the iteration cap", func() {
			opts.MaxIterations = 25
			rec, err := solver.Solve(ctx, "diverge", affineSteps(2, 1, 2, 1), []string{"a", "b"}, store, opts)

			Expect(err).To(MatchError(mdo.ErrNoConvergence))
			var cerr *mdo.ConvergenceError
			Expect(errors.As(err, &cerr)).To(BeTrue())
			Expect(cerr.Iterations).To(Equal(25))
			Expect(cerr.Residual).To(BeNumerically(">", 0))
			Expect(rec.Converged).To(BeFalse())
			Expect(rec.Iterations).To(Equal(25))
		})
	})

	Context("options", func() {
		It("rejects a non-positive tolerance", func() {
			opts.Tolerance = 0
			_, err := solver.Solve(ctx, "pair", affineSteps(0.5, 1, 0.5, 1), []string{"a", "b"}, store, opts)
			Expect(err).To(HaveOccurred())
		})

		It("rejects a non-positive iteration cap", func() {
			opts.MaxIterations = 0
			_, err := solver.Solve(ctx, "pair", affineSteps(0.5, 1, 0.5, 1), []string{"a", "b"}, store, opts)
			Expect(err).To(HaveOccurred())
		})

		It("supports relative residuals", func() {
			// Large magnitudes: absolute changes stay above a tight absolute
			// tolerance for longer than their relative counterparts.
			store.SetScalar("a", 0)
			store.SetScalar("b", 0)
			opts.Relative = true
			opts.Tolerance = 1e-12
			rec, err := solver.Solve(ctx, "pair", affineSteps(0.5, 1e9, 0.5, 1e9), []string{"a", "b"}, store, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Converged).To(BeTrue())
		})
	})

	Context("observer", func() {
		It("sees every iteration in order", func() {
			var iters []int
			var residuals []float64
			opts.Observer = solver.ObserverFunc(func(iter int, residual float64, _ *mdo.Store) {
				iters = append(iters, iter)
				residuals = append(residuals, residual)
			})

			rec, err := solver.Solve(ctx, "pair", affineSteps(0.5, 1, 0.5, 1), []string{"a", "b"}, store, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(iters).To(HaveLen(rec.Iterations))
			for i, it := range iters {
				Expect(it).To(Equal(i + 1))
			}
			Expect(residuals).To(Equal(rec.History))
		})
	})

	Context("cancellation", func() {
		It("stops on a canceled context", func() {
			canceled, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := solver.Solve(canceled, "pair", affineSteps(0.5, 1, 0.5, 1), []string{"a", "b"}, store, opts)
			Expect(err).To(MatchError(context.Canceled))
		})
	})
})
