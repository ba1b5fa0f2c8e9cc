package tiles

import (
	"time"

	"golang.org/x/exp/constraints"
)

// FadeDuration is how long a freshly loaded tile takes to become opaque
const FadeDuration = 400 * time.Millisecond

// Animator drives a step function until it reports completion. elapsed is
// measured from the first time the step runs.
type Animator interface {
	Animate(step func(elapsed time.Duration) (done bool))
}

// FrameAnimator runs animation steps whenever Tick is called, typically once
// per frame.
type FrameAnimator struct {
	runs []*animation
}

type animation struct {
	step    func(elapsed time.Duration) bool
	start   time.Time
	started bool
}

func NewFrameAnimator() *FrameAnimator {
	return &FrameAnimator{}
}

func (a *FrameAnimator) Animate(step func(elapsed time.Duration) bool) {
	a.runs = append(a.runs, &animation{step: step})
}

// Tick advances every running animation to now and reports whether any are
// still running.
func (a *FrameAnimator) Tick(now time.Time) bool {
	runs := a.runs
	a.runs = nil

	var active []*animation
	for _, r := range runs {
		if !r.started {
			r.start = now
			r.started = true
		}
		if !r.step(now.Sub(r.start)) {
			active = append(active, r)
		}
	}
	// steps may have started new animations
	a.runs = append(active, a.runs...)
	return len(a.runs) > 0
}

// Active returns the number of running animations
func (a *FrameAnimator) Active() int {
	return len(a.runs)
}

func fadeOpacity(base float64, elapsed time.Duration) float64 {
	return clamp(base+float64(elapsed)/float64(FadeDuration), 0, 1)
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	return max(lo, min(v, hi))
}
