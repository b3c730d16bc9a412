package matcher

import (
	"context"
	"image"

	"github.com/okian/facegate/internal/domain/backend"
	"github.com/okian/facegate/internal/domain/model"
	"github.com/okian/facegate/pkg/logger"
	"github.com/okian/facegate/pkg/metrics"
)

// PoseScore is the outcome of comparing a query against one pose.
type PoseScore struct {
	Pose     model.Pose
	Best     float64
	Verified int
	Failed   int
}

// Counts reports whether the pose counts toward quorum.
func (p PoseScore) Counts() bool { return p.Verified > 0 }

// Comparison is the outcome of comparing a query against one identity.
type Comparison struct {
	Identity   string
	Matched    bool
	Confidence float64
	Counting   int
	Poses      []PoseScore
	// Attempted and Failed count verify calls, for error reporting.
	Attempted int
	Failed    int
}

// Quorum matches by requiring verified agreement across several poses.
type Quorum struct {
	locator  FaceLocator
	gate     LivenessChecker
	verifier backend.Verifier
	settings
}

// NewQuorum creates a quorum matcher.
func NewQuorum(locator FaceLocator, gate LivenessChecker, verifier backend.Verifier, opts ...Option) *Quorum {
	return &Quorum{
		locator:  locator,
		gate:     gate,
		verifier: verifier,
		settings: newSettings(opts),
	}
}

// Compare verifies query against every reference of every pose of id. A pose
// counts iff at least one comparison verified; its score is the best
// 1-distance over verified comparisons. The identity matches iff the
// counting poses reach the quorum, with confidence the mean of their scores.
func (q *Quorum) Compare(ctx context.Context, query image.Image, id model.EnrolledIdentity) Comparison {
	c := Comparison{Identity: id.Name}
	var sum float64
	for _, pose := range q.poses {
		refs := id.Poses[pose]
		if len(refs) == 0 {
			continue
		}
		ps := PoseScore{Pose: pose}
		for _, ref := range refs {
			c.Attempted++
			v, err := q.verifier.Verify(ctx, query, ref)
			if err != nil {
				ps.Failed++
				c.Failed++
				continue
			}
			if !v.Verified {
				continue
			}
			conf := clamp01(1 - v.Distance)
			if ps.Verified == 0 || conf > ps.Best {
				ps.Best = conf
			}
			ps.Verified++
		}
		if ps.Counts() {
			c.Counting++
			sum += ps.Best
		}
		c.Poses = append(c.Poses, ps)
	}

	if c.Counting >= q.quorum {
		c.Matched = true
		c.Confidence = sum / float64(c.Counting)
	}
	return c
}

// Best compares query against every identity with pose references and
// returns the most confident one that met quorum.
func (q *Quorum) Best(ctx context.Context, query image.Image, identities []model.EnrolledIdentity) (Comparison, bool) {
	best, found, _ := q.best(ctx, query, identities)
	return best, found
}

// verifyTally counts verification calls across identities.
type verifyTally struct {
	attempted int
	failed    int
}

func (q *Quorum) best(ctx context.Context, query image.Image, identities []model.EnrolledIdentity) (Comparison, bool, verifyTally) {
	var (
		best  Comparison
		found bool
		tally verifyTally
	)
	for _, id := range identities {
		if !id.HasPoses() {
			continue
		}
		c := q.Compare(ctx, query, id)
		metrics.RecordQuorumPoses(c.Counting)
		tally.attempted += c.Attempted
		tally.failed += c.Failed
		if !c.Matched {
			continue
		}
		if !found || c.Confidence > best.Confidence {
			best = c
			found = true
		}
	}
	return best, found, tally
}

// Match runs the high-assurance pipeline over frame: locate faces, gate each
// on liveness and keep the best quorum match across live faces.
func (q *Quorum) Match(ctx context.Context, frame image.Image, identities []model.EnrolledIdentity) model.MatchResult {
	faces, err := q.locator.Locate(ctx, frame)
	if err != nil {
		q.logger.Error(ctx, "Face detection failed", logger.Error(err))
		return model.NewResult(model.StatusRecognitionError)
	}
	if len(faces) == 0 {
		return model.NewResult(model.StatusNoFaceDetected)
	}

	var (
		best       model.MatchResult
		found      bool
		spoofed    int
		attempted  int
		failed     int
		firstSpoof *model.Box
		firstLive  *model.Box
	)
	for _, face := range faces {
		if d := q.gate.Check(ctx, face.Crop); !d.Live {
			spoofed++
			if firstSpoof == nil {
				firstSpoof = regionOf(face)
			}
			continue
		}
		if firstLive == nil {
			firstLive = regionOf(face)
		}
		if len(identities) == 0 {
			continue
		}

		c, ok, tally := q.best(ctx, face.Crop, identities)
		attempted += tally.attempted
		failed += tally.failed
		if ok && (!found || c.Confidence > best.Confidence) {
			best = model.MatchResult{Identity: c.Identity, Confidence: c.Confidence, Region: regionOf(face)}
			found = true
		}
	}

	switch {
	case spoofed == len(faces):
		return model.MatchResult{Status: model.StatusSpoofDetected, Region: firstSpoof}
	case len(identities) == 0:
		return model.MatchResult{Status: model.StatusNoEnrolledIdentities, Region: firstLive}
	case !found && attempted > 0 && failed == attempted:
		q.logger.Warn(ctx, "Every verification failed", logger.Int("attempted", attempted))
		return model.MatchResult{Status: model.StatusRecognitionError, Region: firstLive}
	case !found:
		return model.MatchResult{Status: model.StatusNoMatch, Region: firstLive}
	}

	best.Status = q.thresholds.Classify(best.Confidence)
	if !best.Status.Matched() {
		best.Identity = ""
	}
	return best
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}
