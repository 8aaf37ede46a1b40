// Package targetindex tracks the last-observed state of every
// autoscaler the controller might mutate, keyed by the same env-app
// composite key the Schedule Store uses.
package targetindex

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/linki/hpa-schedule-controller/internal/schedulestore"
)

// TargetState is the last-observed state of one HorizontalPodAutoscaler.
type TargetState struct {
	Namespace string
	Name      string

	ObservedMinReplicas     int64
	ObservedCurrentReplicas int64

	// LastIntentFingerprint is an opaque marker of the last mutation
	// intent successfully dispatched for this target. The Decision
	// Engine does not read it: its idempotence gate compares
	// ObservedMinReplicas against the desired floor.
	LastIntentFingerprint string
}

// Snapshot is an immutable point-in-time view of the index.
type Snapshot struct {
	targets map[schedulestore.Key]TargetState
}

// Get returns the target state for key, if known.
func (s Snapshot) Get(key schedulestore.Key) (TargetState, bool) {
	t, ok := s.targets[key]
	return t, ok
}

// All returns every known target. The returned slice is owned by the
// caller.
func (s Snapshot) All() []TargetState {
	out := make([]TargetState, 0, len(s.targets))
	for _, t := range s.targets {
		out = append(out, t)
	}
	return out
}

// Index is the single-writer holder of observed autoscaler state, fed
// by the autoscaler watch stream.
type Index struct {
	// keyOf derives an env-app key from an HPA name; overridable in
	// tests.
	keyOf func(namespace, name string) (schedulestore.Key, bool)

	cur map[schedulestore.Key]TargetState
}

// New constructs an empty Index using the default "<env>-<app>-<suffix>"
// key derivation rule: split the HPA name on "-" and take the first
// two segments as env and app; an HPA name with fewer than two
// segments cannot be mapped and is discarded with a warning.
func New() *Index {
	return &Index{
		keyOf: defaultKeyOf,
		cur:   make(map[schedulestore.Key]TargetState),
	}
}

func defaultKeyOf(namespace, name string) (schedulestore.Key, bool) {
	parts := strings.Split(name, "-")
	if len(parts) < 2 {
		return schedulestore.Key{}, false
	}
	return schedulestore.Key{Env: parts[0], App: parts[1]}, true
}

// OnAutoscalerEvent records or updates an observed autoscaler's state.
func (i *Index) OnAutoscalerEvent(namespace, name string, observedMin, observedCurrent int64) {
	key, ok := i.keyOf(namespace, name)
	if !ok {
		logrus.WithFields(logrus.Fields{
			"namespace": namespace,
			"name":      name,
		}).Warn("targetindex: HorizontalPodAutoscaler name has fewer than two '-'-separated segments, cannot derive env-app key")
		return
	}

	existing := i.cur[key]
	i.cur[key] = TargetState{
		Namespace:               namespace,
		Name:                    name,
		ObservedMinReplicas:     observedMin,
		ObservedCurrentReplicas: observedCurrent,
		LastIntentFingerprint:   existing.LastIntentFingerprint,
	}
}

// OnAutoscalerDeleted removes a target, e.g. when its HPA is deleted.
func (i *Index) OnAutoscalerDeleted(namespace, name string) {
	key, ok := i.keyOf(namespace, name)
	if !ok {
		return
	}
	delete(i.cur, key)
}

// RecordDispatchedFingerprint updates the fingerprint of the last
// intent dispatched for key; later snapshots carry it in
// LastIntentFingerprint.
func (i *Index) RecordDispatchedFingerprint(key schedulestore.Key, fingerprint string) {
	t, ok := i.cur[key]
	if !ok {
		return
	}
	t.LastIntentFingerprint = fingerprint
	i.cur[key] = t
}

// Snapshot returns an immutable copy of the current target set.
func (i *Index) Snapshot() Snapshot {
	out := make(map[schedulestore.Key]TargetState, len(i.cur))
	for k, v := range i.cur {
		out[k] = v
	}
	return Snapshot{targets: out}
}
