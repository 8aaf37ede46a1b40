// Package schedulestore holds the last-known-good set of schedule
// declarations, keyed by env-app, and produces immutable snapshots for
// the Decision Engine.
package schedulestore

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/linki/hpa-schedule-controller/internal/clock"
)

// Window is one scaling window within an AppSchedule.
type Window struct {
	Start             clock.TimeOfDay
	Duration          clock.Duration
	Days              []string
	TargetMinReplicas int64
	ScaleType         string

	// ScaleDurationMinutes is carried through for wire compatibility
	// with the declarations this schema evolved from. The Decision
	// Engine never reads it; only ScaleType == "custom" activates a
	// window, and custom windows ramp instantly at their boundaries.
	ScaleDurationMinutes int
}

// Key identifies a schedule declaration's position in the store: the
// environment joined with the application name.
type Key struct {
	Env string
	App string
}

// String renders the key in "env/app" form, used in log fields.
func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.Env, k.App)
}

// AppSchedule is one application's validated, ready-to-evaluate
// schedule: a default floor plus its ordered windows.
type AppSchedule struct {
	Key                Key
	DefaultMinReplicas int64
	Windows            []Window

	// declarationName is the source object's name, tracked to reject
	// cross-declaration key collisions on ADDED, to warn about them on
	// MODIFIED (see DESIGN.md Open Question decisions), and to remove
	// only owned keys on MODIFIED and DELETED.
	declarationName string
}

// Snapshot is an immutable point-in-time view of the store, safe to
// read concurrently and to hand to the Decision Engine without further
// locking.
type Snapshot struct {
	schedules map[Key]AppSchedule
}

// Get returns the schedule for key, if present.
func (s Snapshot) Get(key Key) (AppSchedule, bool) {
	sch, ok := s.schedules[key]
	return sch, ok
}

// All returns every schedule in the snapshot. The returned slice is
// owned by the caller.
func (s Snapshot) All() []AppSchedule {
	out := make([]AppSchedule, 0, len(s.schedules))
	for _, sch := range s.schedules {
		out = append(out, sch)
	}
	return out
}

// Len reports the number of schedules held.
func (s Snapshot) Len() int {
	return len(s.schedules)
}

// Store is the single-writer holder of all known schedule
// declarations. All mutating methods must be called from one
// goroutine (the reconciler's event loop); Snapshot is safe to read
// from any goroutine afterwards since it is never mutated in place.
type Store struct {
	mu  sync.RWMutex
	cur map[Key]AppSchedule

	// byDeclaration tracks which keys a given declaration (object
	// name) currently owns, so DELETED can remove exactly those keys
	// and MODIFIED can detect a shrinking key set.
	byDeclaration map[string]map[Key]struct{}
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		cur:           make(map[Key]AppSchedule),
		byDeclaration: make(map[string]map[Key]struct{}),
	}
}

// ApplyAdded inserts a newly observed declaration's schedules.
//
// ADDED is first-writer-wins and atomic: if any key in decl already
// exists in the store (owned by a different declaration), the entire
// declaration is rejected and the store is left unchanged. A
// validation failure upstream (internal/ingest) must never reach here;
// ApplyAdded only enforces the key-collision invariant.
func (s *Store) ApplyAdded(name string, schedules []AppSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sch := range schedules {
		if existing, ok := s.cur[sch.Key]; ok && existing.declarationName != name {
			return fmt.Errorf("schedulestore: key %s already declared by %q, rejecting declaration %q", sch.Key, existing.declarationName, name)
		}
	}

	keys := make(map[Key]struct{}, len(schedules))
	for _, sch := range schedules {
		sch.declarationName = name
		s.cur[sch.Key] = sch
		keys[sch.Key] = struct{}{}
	}
	s.byDeclaration[name] = keys

	return nil
}

// ApplyModified unconditionally replaces a declaration's schedules:
// every key it newly declares overwrites whatever was there, even if
// owned by a different declaration. A key previously owned by this
// declaration but absent from the new version is removed. A collision
// with a different declaration's key is logged as a warning but does
// not block the replacement.
func (s *Store) ApplyModified(name string, schedules []AppSchedule) {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.byDeclaration[name]
	newKeys := make(map[Key]struct{}, len(schedules))

	for _, sch := range schedules {
		if existing, ok := s.cur[sch.Key]; ok && existing.declarationName != name {
			logrus.WithFields(logrus.Fields{
				"key":                 sch.Key.String(),
				"previous_declaration": existing.declarationName,
				"new_declaration":      name,
			}).Warn("schedulestore: MODIFIED replaced a key owned by a different declaration")
		}
		sch.declarationName = name
		s.cur[sch.Key] = sch
		newKeys[sch.Key] = struct{}{}
	}

	for key := range previous {
		if _, stillOwned := newKeys[key]; stillOwned {
			continue
		}
		if existing, ok := s.cur[key]; ok && existing.declarationName == name {
			delete(s.cur, key)
		}
	}

	s.byDeclaration[name] = newKeys
}

// ApplyDeleted removes every key owned by the named declaration.
func (s *Store) ApplyDeleted(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.byDeclaration[name] {
		if existing, ok := s.cur[key]; ok && existing.declarationName == name {
			delete(s.cur, key)
		}
	}
	delete(s.byDeclaration, name)
}

// DeclarationKeys returns the keys currently owned by the named
// declaration, for reporting a declaration's own app count and active
// count back onto its status.
func (s *Store) DeclarationKeys(name string) []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owned := s.byDeclaration[name]
	out := make([]Key, 0, len(owned))
	for k := range owned {
		out = append(out, k)
	}
	return out
}

// Snapshot returns an immutable copy of the current schedule set.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[Key]AppSchedule, len(s.cur))
	for k, v := range s.cur {
		out[k] = v
	}
	return Snapshot{schedules: out}
}
