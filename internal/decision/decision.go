// Package decision implements the Decision Engine: a pure function
// from (schedule snapshot, target snapshot, now) to the mutation
// intents needed to bring observed state into alignment with the
// active schedule plan.
package decision

import (
	"fmt"
	"sort"
	"time"

	"github.com/linki/hpa-schedule-controller/internal/clock"
	"github.com/linki/hpa-schedule-controller/internal/schedulestore"
	"github.com/linki/hpa-schedule-controller/internal/targetindex"
)

// Reason names why a MutationIntent was emitted.
type Reason string

const (
	// ReasonWindowEnter is emitted when an active window's target
	// floor differs from the observed floor.
	ReasonWindowEnter Reason = "WINDOW_ENTER"
	// ReasonWindowExit is emitted when no window is active and the
	// default floor differs from the observed floor.
	ReasonWindowExit Reason = "WINDOW_EXIT"
)

// scaleTypeCustom is the only scale-type that activates a window; all
// other values are accepted at ingestion and stored, but never
// contribute to an active window.
const scaleTypeCustom = "custom"

// MutationIntent is one instruction to bring an autoscaler's
// minReplicas into alignment with the currently active plan.
type MutationIntent struct {
	Key        schedulestore.Key
	Namespace  string
	HPAName    string
	DesiredMin int64
	Reason     Reason

	// Fingerprint identifies this exact intent (key + desired value).
	// The reconciler records it on the Target Index after a successful
	// patch; quarantine after a permanent Patch error is keyed by Key.
	Fingerprint string
}

// Evaluate computes the mutation intents required at instant now. It
// performs no I/O and has no side effects; calling it twice with the
// same arguments yields the same result.
func Evaluate(c *clock.Clock, schedules schedulestore.Snapshot, targets targetindex.Snapshot, now time.Time) []MutationIntent {
	intents := make([]MutationIntent, 0)

	for _, sched := range schedules.All() {
		target, ok := targets.Get(sched.Key)
		if !ok {
			// No observed autoscaler for this key yet: nothing
			// addressable to mutate.
			continue
		}

		desired, active := highestActiveTarget(c, sched, now)

		var reason Reason
		if active {
			reason = ReasonWindowEnter
		} else {
			desired = sched.DefaultMinReplicas
			reason = ReasonWindowExit
		}

		if target.ObservedMinReplicas == desired {
			// Idempotence gate: observed already matches desired,
			// emit nothing.
			continue
		}

		intents = append(intents, MutationIntent{
			Key:         sched.Key,
			Namespace:   target.Namespace,
			HPAName:     target.Name,
			DesiredMin:  desired,
			Reason:      reason,
			Fingerprint: fmt.Sprintf("%s:%d", sched.Key, desired),
		})
	}

	return intents
}

// ActiveKeys returns the set of schedule keys with at least one active
// custom-scale-type window at now, independent of what the observed
// target currently is. Used to report a declaration's active-app count
// back onto its status, not by the dispatch path itself.
func ActiveKeys(c *clock.Clock, schedules schedulestore.Snapshot, now time.Time) map[schedulestore.Key]bool {
	active := make(map[schedulestore.Key]bool)
	for _, sched := range schedules.All() {
		if _, ok := highestActiveTarget(c, sched, now); ok {
			active[sched.Key] = true
		}
	}
	return active
}

// highestActiveTarget selects the active window with the highest
// TargetMinReplicas among sched's custom-scale-type windows active at
// now, breaking ties by earliest start. Returns (0, false) if no
// window is active.
func highestActiveTarget(c *clock.Clock, sched schedulestore.AppSchedule, now time.Time) (int64, bool) {
	type candidate struct {
		target int64
		start  clock.TimeOfDay
	}

	var best *candidate

	for _, w := range sched.Windows {
		if w.ScaleType != scaleTypeCustom {
			continue
		}
		if !c.WindowActive(now, w.Start, w.Duration, w.Days) {
			continue
		}

		cand := candidate{target: w.TargetMinReplicas, start: w.Start}
		if best == nil || higherPriority(cand.target, cand.start, best.target, best.start) {
			best = &cand
		}
	}

	if best == nil {
		return 0, false
	}
	return best.target, true
}

// higherPriority reports whether (target, start) outranks
// (otherTarget, otherStart): higher target wins; ties broken by
// earlier start.
func higherPriority(target int64, start clock.TimeOfDay, otherTarget int64, otherStart clock.TimeOfDay) bool {
	if target != otherTarget {
		return target > otherTarget
	}
	return timeOfDayBefore(start, otherStart)
}

func timeOfDayBefore(a, b clock.TimeOfDay) bool {
	return a.Hour*60+a.Minute < b.Hour*60+b.Minute
}

// sortedByKey is a test convenience: Evaluate's output order follows
// map iteration over schedules and is not itself meaningful, so tests
// sort by key before asserting on exact slices.
func sortedByKey(intents []MutationIntent) []MutationIntent {
	out := append([]MutationIntent(nil), intents...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key.String() < out[j].Key.String()
	})
	return out
}
