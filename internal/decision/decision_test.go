package decision

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linki/hpa-schedule-controller/internal/clock"
	"github.com/linki/hpa-schedule-controller/internal/schedulestore"
	"github.com/linki/hpa-schedule-controller/internal/targetindex"
)

func mustClock(t *testing.T) *clock.Clock {
	t.Helper()
	c, err := clock.New(clock.Config{Timezone: "UTC"})
	require.NoError(t, err)
	return c
}

func mustTimeOfDay(t *testing.T, s string) clock.TimeOfDay {
	t.Helper()
	tod, err := clock.ParseTimeOfDay(s)
	require.NoError(t, err)
	return tod
}

func newSnapshots(key schedulestore.Key, sched schedulestore.AppSchedule, observedMin int64) (schedulestore.Snapshot, targetindex.Snapshot) {
	store := schedulestore.New()
	_ = store.ApplyAdded("decl", []schedulestore.AppSchedule{sched})

	idx := targetindex.New()
	idx.OnAutoscalerEvent("default", key.Env+"-"+key.App+"-hpa", observedMin, observedMin)

	return store.Snapshot(), idx.Snapshot()
}

func TestEvaluateWindowEnter(t *testing.T) {
	c := mustClock(t)
	key := schedulestore.Key{Env: "prod", App: "api"}
	sched := schedulestore.AppSchedule{
		Key:                key,
		DefaultMinReplicas: 2,
		Windows: []schedulestore.Window{
			{
				Start:             mustTimeOfDay(t, "09:00"),
				Duration:          clock.Duration{Hours: 1},
				Days:              []string{"weekday"},
				TargetMinReplicas: 5,
				ScaleType:         "custom",
			},
		},
	}

	schedSnap, targetSnap := newSnapshots(key, sched, 2)

	// 2026-03-03 is a Tuesday.
	now := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	intents := Evaluate(c, schedSnap, targetSnap, now)

	require.Len(t, intents, 1)
	assert.Equal(t, ReasonWindowEnter, intents[0].Reason)
	assert.Equal(t, int64(5), intents[0].DesiredMin)
}

func TestEvaluateWindowExit(t *testing.T) {
	c := mustClock(t)
	key := schedulestore.Key{Env: "prod", App: "api"}
	sched := schedulestore.AppSchedule{
		Key:                key,
		DefaultMinReplicas: 2,
		Windows: []schedulestore.Window{
			{
				Start:             mustTimeOfDay(t, "09:00"),
				Duration:          clock.Duration{Hours: 1},
				Days:              []string{"weekday"},
				TargetMinReplicas: 5,
				ScaleType:         "custom",
			},
		},
	}

	schedSnap, targetSnap := newSnapshots(key, sched, 5)

	now := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)
	intents := Evaluate(c, schedSnap, targetSnap, now)

	require.Len(t, intents, 1)
	assert.Equal(t, ReasonWindowExit, intents[0].Reason)
	assert.Equal(t, int64(2), intents[0].DesiredMin)
}

func TestEvaluateIdempotenceGateSuppressesNoOp(t *testing.T) {
	c := mustClock(t)
	key := schedulestore.Key{Env: "prod", App: "api"}
	sched := schedulestore.AppSchedule{
		Key:                key,
		DefaultMinReplicas: 2,
		Windows: []schedulestore.Window{
			{
				Start:             mustTimeOfDay(t, "09:00"),
				Duration:          clock.Duration{Hours: 1},
				Days:              []string{"weekday"},
				TargetMinReplicas: 5,
				ScaleType:         "custom",
			},
		},
	}

	schedSnap, targetSnap := newSnapshots(key, sched, 5)

	now := time.Date(2026, 3, 3, 9, 5, 0, 0, time.UTC)
	intents := Evaluate(c, schedSnap, targetSnap, now)
	assert.Empty(t, intents)
}

func TestEvaluateOverlapTieBreakHighestTargetWins(t *testing.T) {
	c := mustClock(t)
	key := schedulestore.Key{Env: "prod", App: "api"}
	sched := schedulestore.AppSchedule{
		Key:                key,
		DefaultMinReplicas: 1,
		Windows: []schedulestore.Window{
			{
				Start:             mustTimeOfDay(t, "09:00"),
				Duration:          clock.Duration{Hours: 4},
				Days:              []string{"weekday"},
				TargetMinReplicas: 5,
				ScaleType:         "custom",
			},
			{
				Start:             mustTimeOfDay(t, "10:00"),
				Duration:          clock.Duration{Hours: 1},
				Days:              []string{"weekday"},
				TargetMinReplicas: 9,
				ScaleType:         "custom",
			},
		},
	}

	schedSnap, targetSnap := newSnapshots(key, sched, 1)

	now := time.Date(2026, 3, 3, 10, 30, 0, 0, time.UTC)
	intents := Evaluate(c, schedSnap, targetSnap, now)

	require.Len(t, intents, 1)
	assert.Equal(t, int64(9), intents[0].DesiredMin)
}

func TestEvaluateOverlapTieBreakEarliestStartWins(t *testing.T) {
	c := mustClock(t)
	key := schedulestore.Key{Env: "prod", App: "api"}
	sched := schedulestore.AppSchedule{
		Key:                key,
		DefaultMinReplicas: 1,
		Windows: []schedulestore.Window{
			{
				Start:             mustTimeOfDay(t, "09:00"),
				Duration:          clock.Duration{Hours: 4},
				Days:              []string{"weekday"},
				TargetMinReplicas: 5,
				ScaleType:         "custom",
			},
			{
				Start:             mustTimeOfDay(t, "10:00"),
				Duration:          clock.Duration{Hours: 1},
				Days:              []string{"weekday"},
				TargetMinReplicas: 5,
				ScaleType:         "custom",
			},
		},
	}

	schedSnap, targetSnap := newSnapshots(key, sched, 1)

	now := time.Date(2026, 3, 3, 10, 30, 0, 0, time.UTC)
	intents := Evaluate(c, schedSnap, targetSnap, now)

	require.Len(t, intents, 1)
	// Both windows are active with the same target; the 09:00 window
	// (earliest start) must be the one driving the result, though in
	// this case the desired value is identical either way. The
	// fingerprint still reflects a single, stable decision.
	assert.Equal(t, int64(5), intents[0].DesiredMin)
}

func TestEvaluateNonCustomScaleTypeNeverActivates(t *testing.T) {
	c := mustClock(t)
	key := schedulestore.Key{Env: "prod", App: "api"}
	sched := schedulestore.AppSchedule{
		Key:                key,
		DefaultMinReplicas: 2,
		Windows: []schedulestore.Window{
			{
				Start:             mustTimeOfDay(t, "09:00"),
				Duration:          clock.Duration{Hours: 1},
				Days:              []string{"weekday"},
				TargetMinReplicas: 5,
				ScaleType:         "future-variant",
			},
		},
	}

	schedSnap, targetSnap := newSnapshots(key, sched, 2)

	now := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	intents := Evaluate(c, schedSnap, targetSnap, now)
	assert.Empty(t, intents)
}

func TestEvaluateSkipsKeysWithNoObservedTarget(t *testing.T) {
	c := mustClock(t)
	key := schedulestore.Key{Env: "prod", App: "api"}
	sched := schedulestore.AppSchedule{
		Key:                key,
		DefaultMinReplicas: 2,
		Windows: []schedulestore.Window{
			{
				Start:             mustTimeOfDay(t, "09:00"),
				Duration:          clock.Duration{Hours: 1},
				Days:              []string{"weekday"},
				TargetMinReplicas: 5,
				ScaleType:         "custom",
			},
		},
	}

	store := schedulestore.New()
	require.NoError(t, store.ApplyAdded("decl", []schedulestore.AppSchedule{sched}))

	emptyTargets := targetindex.New().Snapshot()

	now := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	intents := Evaluate(c, store.Snapshot(), emptyTargets, now)
	assert.Empty(t, intents)
}

func TestEvaluateIsPure(t *testing.T) {
	c := mustClock(t)
	key := schedulestore.Key{Env: "prod", App: "api"}
	sched := schedulestore.AppSchedule{
		Key:                key,
		DefaultMinReplicas: 2,
		Windows: []schedulestore.Window{
			{
				Start:             mustTimeOfDay(t, "09:00"),
				Duration:          clock.Duration{Hours: 1},
				Days:              []string{"weekday"},
				TargetMinReplicas: 5,
				ScaleType:         "custom",
			},
		},
	}

	schedSnap, targetSnap := newSnapshots(key, sched, 2)
	now := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)

	first := sortedByKey(Evaluate(c, schedSnap, targetSnap, now))
	second := sortedByKey(Evaluate(c, schedSnap, targetSnap, now))
	assert.Equal(t, first, second)
}
