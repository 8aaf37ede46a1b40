package schedulestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func schedule(env, app string, floor int64) AppSchedule {
	return AppSchedule{
		Key:                Key{Env: env, App: app},
		DefaultMinReplicas: floor,
	}
}

func TestApplyAddedInsertsNewKeys(t *testing.T) {
	s := New()
	err := s.ApplyAdded("decl-a", []AppSchedule{schedule("prod", "checkout", 2)})
	require.NoError(t, err)

	snap := s.Snapshot()
	got, ok := snap.Get(Key{Env: "prod", App: "checkout"})
	require.True(t, ok)
	assert.Equal(t, int64(2), got.DefaultMinReplicas)
}

func TestApplyAddedRejectsCollisionAtomically(t *testing.T) {
	s := New()
	require.NoError(t, s.ApplyAdded("decl-a", []AppSchedule{
		schedule("prod", "checkout", 2),
		schedule("prod", "cart", 1),
	}))

	err := s.ApplyAdded("decl-b", []AppSchedule{
		schedule("prod", "checkout", 9),
		schedule("prod", "new-app", 5),
	})
	require.Error(t, err)

	// The whole declaration was rejected: "new-app" must not have been
	// partially inserted, and "checkout" must still belong to decl-a.
	snap := s.Snapshot()
	_, ok := snap.Get(Key{Env: "prod", App: "new-app"})
	assert.False(t, ok)

	checkout, ok := snap.Get(Key{Env: "prod", App: "checkout"})
	require.True(t, ok)
	assert.Equal(t, int64(2), checkout.DefaultMinReplicas)
}

func TestApplyModifiedUnconditionallyReplaces(t *testing.T) {
	s := New()
	require.NoError(t, s.ApplyAdded("decl-a", []AppSchedule{schedule("prod", "checkout", 2)}))
	require.NoError(t, s.ApplyAdded("decl-b", []AppSchedule{schedule("prod", "cart", 1)}))

	// decl-a's MODIFIED takes over "cart", a key decl-b owns.
	s.ApplyModified("decl-a", []AppSchedule{
		schedule("prod", "checkout", 3),
		schedule("prod", "cart", 7),
	})

	snap := s.Snapshot()
	cart, ok := snap.Get(Key{Env: "prod", App: "cart"})
	require.True(t, ok)
	assert.Equal(t, int64(7), cart.DefaultMinReplicas)
}

func TestApplyModifiedDropsKeysNoLongerDeclared(t *testing.T) {
	s := New()
	require.NoError(t, s.ApplyAdded("decl-a", []AppSchedule{
		schedule("prod", "checkout", 2),
		schedule("prod", "cart", 1),
	}))

	s.ApplyModified("decl-a", []AppSchedule{schedule("prod", "checkout", 2)})

	snap := s.Snapshot()
	_, ok := snap.Get(Key{Env: "prod", App: "cart"})
	assert.False(t, ok, "cart was dropped from decl-a's declaration and must be removed")
}

func TestApplyDeletedRemovesOnlyOwnedKeys(t *testing.T) {
	s := New()
	require.NoError(t, s.ApplyAdded("decl-a", []AppSchedule{schedule("prod", "checkout", 2)}))
	require.NoError(t, s.ApplyAdded("decl-b", []AppSchedule{schedule("prod", "cart", 1)}))

	s.ApplyDeleted("decl-a")

	snap := s.Snapshot()
	_, ok := snap.Get(Key{Env: "prod", App: "checkout"})
	assert.False(t, ok)

	_, ok = snap.Get(Key{Env: "prod", App: "cart"})
	assert.True(t, ok, "decl-b's key must survive decl-a's deletion")
}

func TestSnapshotIsIndependentOfSubsequentMutation(t *testing.T) {
	s := New()
	require.NoError(t, s.ApplyAdded("decl-a", []AppSchedule{schedule("prod", "checkout", 2)}))

	snap := s.Snapshot()
	s.ApplyModified("decl-a", []AppSchedule{schedule("prod", "checkout", 99)})

	got, ok := snap.Get(Key{Env: "prod", App: "checkout"})
	require.True(t, ok)
	assert.Equal(t, int64(2), got.DefaultMinReplicas, "snapshot must not observe a later mutation")
}

func TestRejectedAddLeavesStoreEntirelyUnchanged(t *testing.T) {
	s := New()
	require.NoError(t, s.ApplyAdded("decl-a", []AppSchedule{schedule("prod", "checkout", 2)}))
	before := s.Snapshot()

	err := s.ApplyAdded("decl-b", []AppSchedule{schedule("prod", "checkout", 5)})
	require.Error(t, err)

	after := s.Snapshot()
	assert.Equal(t, before.Len(), after.Len())
	got, _ := after.Get(Key{Env: "prod", App: "checkout"})
	assert.Equal(t, int64(2), got.DefaultMinReplicas)
}
