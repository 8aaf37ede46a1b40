package targetindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linki/hpa-schedule-controller/internal/schedulestore"
)

func TestOnAutoscalerEventDerivesEnvAppKey(t *testing.T) {
	idx := New()
	idx.OnAutoscalerEvent("default", "prod-checkout-hpa", 2, 4)

	snap := idx.Snapshot()
	state, ok := snap.Get(schedulestore.Key{Env: "prod", App: "checkout"})
	require.True(t, ok)
	assert.Equal(t, int64(2), state.ObservedMinReplicas)
	assert.Equal(t, int64(4), state.ObservedCurrentReplicas)
}

func TestOnAutoscalerEventDiscardsShortNames(t *testing.T) {
	idx := New()
	idx.OnAutoscalerEvent("default", "onlyonesegment", 2, 4)

	snap := idx.Snapshot()
	assert.Empty(t, snap.All())
}

func TestOnAutoscalerEventUpdatesExistingPreservesFingerprint(t *testing.T) {
	idx := New()
	idx.OnAutoscalerEvent("default", "prod-checkout-hpa", 2, 4)
	idx.RecordDispatchedFingerprint(schedulestore.Key{Env: "prod", App: "checkout"}, "fp-1")

	idx.OnAutoscalerEvent("default", "prod-checkout-hpa", 3, 5)

	snap := idx.Snapshot()
	state, ok := snap.Get(schedulestore.Key{Env: "prod", App: "checkout"})
	require.True(t, ok)
	assert.Equal(t, int64(3), state.ObservedMinReplicas)
	assert.Equal(t, "fp-1", state.LastIntentFingerprint)
}

func TestOnAutoscalerDeletedRemovesTarget(t *testing.T) {
	idx := New()
	idx.OnAutoscalerEvent("default", "prod-checkout-hpa", 2, 4)
	idx.OnAutoscalerDeleted("default", "prod-checkout-hpa")

	snap := idx.Snapshot()
	_, ok := snap.Get(schedulestore.Key{Env: "prod", App: "checkout"})
	assert.False(t, ok)
}

func TestSnapshotIndependentOfLaterMutation(t *testing.T) {
	idx := New()
	idx.OnAutoscalerEvent("default", "prod-checkout-hpa", 2, 4)
	snap := idx.Snapshot()

	idx.OnAutoscalerEvent("default", "prod-checkout-hpa", 9, 9)

	state, ok := snap.Get(schedulestore.Key{Env: "prod", App: "checkout"})
	require.True(t, ok)
	assert.Equal(t, int64(2), state.ObservedMinReplicas)
}
