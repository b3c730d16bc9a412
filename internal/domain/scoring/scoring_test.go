package scoring_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/facegate/internal/domain/model"
	scoring "github.com/okian/facegate/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSimilarityScorer_Score(t *testing.T) {
	Convey("Given a scorer with default weights", t, func() {
		scorer := scoring.NewSimilarityScorer()

		Convey("When an embedding is compared against itself", func() {
			a := []float64{0.12, -0.4, 0.33, 0.9}
			result, err := scorer.Score(a, a)

			Convey("Then every similarity should be 1 and the confidence clamped at 1", func() {
				So(err, ShouldBeNil)
				So(result.Cosine, ShouldAlmostEqual, 1.0)
				So(result.Euclidean, ShouldEqual, 1.0)
				So(result.Combined, ShouldAlmostEqual, 1.0)
				So(result.Confidence, ShouldEqual, 1.0)
			})
		})

		Convey("When orthogonal unit vectors are compared", func() {
			result, err := scorer.Score([]float64{1, 0}, []float64{0, 1})

			Convey("Then only the euclidean part should contribute", func() {
				So(err, ShouldBeNil)
				So(result.Cosine, ShouldAlmostEqual, 0)
				So(result.Euclidean, ShouldAlmostEqual, 1/(1+math.Sqrt2))
				So(result.Confidence, ShouldAlmostEqual, 0.3/(1+math.Sqrt2))
			})
		})

		Convey("When opposite vectors are compared", func() {
			result, err := scorer.Score([]float64{1, 0}, []float64{-1, 0})

			Convey("Then the confidence should be clamped at 0", func() {
				So(err, ShouldBeNil)
				So(result.Combined, ShouldBeLessThan, 0)
				So(result.Confidence, ShouldEqual, 0)
			})
		})

		Convey("When an all-zero vector is compared", func() {
			result, err := scorer.Score([]float64{0, 0}, []float64{0, 0})

			Convey("Then cosine similarity should be 0 and no NaN should leak", func() {
				So(err, ShouldBeNil)
				So(result.Cosine, ShouldEqual, 0)
				So(math.IsNaN(result.Confidence), ShouldBeFalse)
				So(result.Confidence, ShouldAlmostEqual, 0.3)
			})
		})

		Convey("When dimensions differ", func() {
			_, err := scorer.Score([]float64{1, 2, 3}, []float64{1, 2})

			Convey("Then it should be an error", func() {
				So(errors.Is(err, model.ErrDimensionMismatch), ShouldBeTrue)
			})
		})

		Convey("When vectors are empty", func() {
			_, err := scorer.Score(nil, nil)

			Convey("Then it should be an error", func() {
				So(errors.Is(err, model.ErrDimensionMismatch), ShouldBeTrue)
			})
		})
	})
}

func TestSimilarityScorer_Boost(t *testing.T) {
	Convey("Given the default boost rule", t, func() {
		scorer := scoring.NewSimilarityScorer()

		Convey("Then a combined score at the threshold should be unchanged", func() {
			So(scorer.Boost(0.95), ShouldEqual, 0.95)
		})

		Convey("Then a combined score just above the threshold should saturate", func() {
			So(scorer.Boost(0.951), ShouldEqual, 1.0)
		})

		Convey("Then a mid-range score should pass through", func() {
			So(scorer.Boost(0.5), ShouldEqual, 0.5)
		})
	})

	Convey("Given custom weights and boost", t, func() {
		scorer := scoring.NewSimilarityScorer(
			scoring.WithWeights(1, 0),
			scoring.WithBoost(0.8, 0.1),
		)

		Convey("Then the options should drive the result", func() {
			So(scorer.Boost(0.85), ShouldAlmostEqual, 0.95)
			result, err := scorer.Score([]float64{1, 1}, []float64{1, 0})
			So(err, ShouldBeNil)
			So(result.Combined, ShouldAlmostEqual, 1/math.Sqrt2)
		})
	})

	Convey("Given invalid options", t, func() {
		scorer := scoring.NewSimilarityScorer(
			scoring.WithWeights(-1, 2),
			scoring.WithWeights(0, 0),
			scoring.WithBoost(-0.5, 0.1),
		)

		Convey("Then the defaults should be kept", func() {
			So(scorer.Boost(0.951), ShouldEqual, 1.0)
			result, err := scorer.Score([]float64{1, 0}, []float64{0, 1})
			So(err, ShouldBeNil)
			So(result.Confidence, ShouldAlmostEqual, 0.3/(1+math.Sqrt2))
		})
	})
}
