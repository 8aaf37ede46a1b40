// Package reconciler implements the Reconciler Loop: the orchestrator
// that serializes two event streams and a periodic tick into a single
// writer of the Schedule Store and Target Index, invokes the Decision
// Engine on fresh snapshots, and dispatches the resulting mutation
// intents through a bounded-concurrency Patch Client.
package reconciler

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/tools/record"

	"github.com/linki/hpa-schedule-controller/api/v1alpha1"
	"github.com/linki/hpa-schedule-controller/internal/clock"
	"github.com/linki/hpa-schedule-controller/internal/decision"
	"github.com/linki/hpa-schedule-controller/internal/ingest"
	"github.com/linki/hpa-schedule-controller/internal/metrics"
	"github.com/linki/hpa-schedule-controller/internal/patchclient"
	"github.com/linki/hpa-schedule-controller/internal/schedulestore"
	"github.com/linki/hpa-schedule-controller/internal/targetindex"
	"github.com/linki/hpa-schedule-controller/internal/watch"
)

// Config tunes the Reconciler Loop's timing and concurrency. Zero
// values are replaced by sane defaults in New.
type Config struct {
	// TickInterval is the periodic trigger that fires WINDOW_ENTER and
	// WINDOW_EXIT transitions when neither stream has delivered an
	// event. Defaults to 10s, matching the teacher's own
	// scheduled-scaling poll interval.
	TickInterval time.Duration

	// QueueCapacity bounds the single input queue merging both
	// streams and the tick. Defaults to 64.
	QueueCapacity int

	// DispatchConcurrency bounds how many Patch Client calls run at
	// once. Defaults to 10, matching the teacher's errgroup.SetLimit.
	DispatchConcurrency int

	// Quarantine is how long a key's dispatch is suppressed after a
	// permanent Patch error. Defaults to 60s.
	Quarantine time.Duration

	// DrainTimeout bounds how long Run keeps processing already
	// queued events after ctx is cancelled. Defaults to 5s.
	DrainTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = 10 * time.Second
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = 64
	}
	if c.DispatchConcurrency <= 0 {
		c.DispatchConcurrency = 10
	}
	if c.Quarantine <= 0 {
		c.Quarantine = 60 * time.Second
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = 5 * time.Second
	}
	return c
}

// Reconciler holds the Schedule Store, the Target Index, and the
// quarantine bookkeeping for permanent Patch errors. Every mutating
// method it exposes is only ever called from the single goroutine
// running Run's event loop.
type Reconciler struct {
	clock        *clock.Clock
	store        *schedulestore.Store
	targets      *targetindex.Index
	patchClient  patchclient.PatchClient
	recorder     record.EventRecorder
	statusWriter watch.StatusWriter
	cfg          Config

	quarantineUntil map[schedulestore.Key]time.Time
}

// New constructs a Reconciler. recorder may be nil, in which case no
// Kubernetes events are emitted for dispatched mutations.
func New(c *clock.Clock, store *schedulestore.Store, targets *targetindex.Index, patchClient patchclient.PatchClient, recorder record.EventRecorder, cfg Config) *Reconciler {
	return &Reconciler{
		clock:           c,
		store:           store,
		targets:         targets,
		patchClient:     patchClient,
		recorder:        recorder,
		cfg:             cfg.withDefaults(),
		quarantineUntil: make(map[schedulestore.Key]time.Time),
	}
}

// SetStatusWriter attaches a StatusWriter used to keep each
// ScheduledScaling's printer-column status current after every ADDED
// or MODIFIED event. Leaving it unset disables status updates.
func (r *Reconciler) SetStatusWriter(w watch.StatusWriter) {
	r.statusWriter = w
}

// inputEvent is the single queue's element type: exactly one of its
// fields is set.
type inputEvent struct {
	scheduleEvent   *watch.ScheduleEvent
	autoscalerEvent *watch.AutoscalerEvent
	tick            bool
}

// Run serializes scheduleEvents, autoscalerEvents, and a periodic tick
// onto one bounded queue, applying each to the Schedule Store or
// Target Index and then invoking the Decision Engine, until ctx is
// cancelled. On cancellation it keeps draining whatever is already
// queued for up to cfg.DrainTimeout before returning.
func (r *Reconciler) Run(ctx context.Context, scheduleEvents <-chan watch.ScheduleEvent, autoscalerEvents <-chan watch.AutoscalerEvent) {
	queue := make(chan inputEvent, r.cfg.QueueCapacity)

	var feeders sync.WaitGroup
	feeders.Add(3)

	go func() {
		defer feeders.Done()
		for {
			select {
			case ev, ok := <-scheduleEvents:
				if !ok {
					return
				}
				ev := ev
				select {
				case queue <- inputEvent{scheduleEvent: &ev}:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		defer feeders.Done()
		for {
			select {
			case ev, ok := <-autoscalerEvents:
				if !ok {
					return
				}
				ev := ev
				select {
				case queue <- inputEvent{autoscalerEvent: &ev}:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		defer feeders.Done()
		ticker := time.NewTicker(r.cfg.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				select {
				case queue <- inputEvent{tick: true}:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case ev := <-queue:
			r.handle(ctx, ev)
		case <-ctx.Done():
			feeders.Wait()
			r.drain(queue)
			return
		}
	}
}

// drain processes whatever is already buffered in queue, for up to
// cfg.DrainTimeout, then returns even if the queue is not empty.
func (r *Reconciler) drain(queue chan inputEvent) {
	deadline := time.Now().Add(r.cfg.DrainTimeout)
	bg := context.Background()
	for time.Now().Before(deadline) {
		select {
		case ev := <-queue:
			r.handle(bg, ev)
		default:
			return
		}
	}
}

func (r *Reconciler) handle(ctx context.Context, ev inputEvent) {
	switch {
	case ev.scheduleEvent != nil:
		r.applyScheduleEvent(ctx, *ev.scheduleEvent)
	case ev.autoscalerEvent != nil:
		r.applyAutoscalerEvent(*ev.autoscalerEvent)
	}

	r.evaluateAndDispatch(ctx)
}

func (r *Reconciler) applyScheduleEvent(ctx context.Context, ev watch.ScheduleEvent) {
	switch ev.Type {
	case watch.Added:
		schedules, err := ingest.Ingest(ev.Object)
		if err != nil {
			metrics.DeclarationsRejected.Inc()
			logrus.WithError(err).WithField("declaration", ev.Object.Name).Warn("reconciler: rejected ADDED declaration")
			return
		}
		if err := r.store.ApplyAdded(ev.Object.Name, schedules); err != nil {
			logrus.WithError(err).WithField("declaration", ev.Object.Name).Warn("reconciler: rejected ADDED declaration due to key collision")
			return
		}
		r.refreshStatus(ctx, ev.Object)
	case watch.Modified:
		schedules, err := ingest.Ingest(ev.Object)
		if err != nil {
			metrics.DeclarationsRejected.Inc()
			logrus.WithError(err).WithField("declaration", ev.Object.Name).Warn("reconciler: rejected MODIFIED declaration")
			return
		}
		r.store.ApplyModified(ev.Object.Name, schedules)
		r.refreshStatus(ctx, ev.Object)
	case watch.Deleted:
		r.store.ApplyDeleted(ev.Object.Name)
	}
}

// refreshStatus recomputes the declaration's app count and active-app
// count from the Schedule Store's current view and patches them onto
// the object's status, so kubectl's printer columns stay live. A nil
// statusWriter, or a failed patch, only costs a stale printer column:
// it never blocks ingestion or dispatch.
func (r *Reconciler) refreshStatus(ctx context.Context, obj *v1alpha1.ScheduledScaling) {
	if r.statusWriter == nil {
		return
	}

	keys := r.store.DeclarationKeys(obj.Name)
	active := decision.ActiveKeys(r.clock, r.store.Snapshot(), r.clock.Now())

	activeApps := make([]string, 0, len(keys))
	activeCount := 0
	for _, key := range keys {
		if active[key] {
			activeCount++
			activeApps = append(activeApps, key.String())
		}
	}

	status := v1alpha1.ScheduledScalingStatus{
		AppCount:       len(obj.Spec.Apps),
		ActiveAppCount: activeCount,
		ActiveApps:     activeApps,
	}

	if err := r.statusWriter.UpdateStatus(ctx, obj.Name, status); err != nil {
		logrus.WithError(err).WithField("declaration", obj.Name).Warn("reconciler: failed to update status")
	}
}

func (r *Reconciler) applyAutoscalerEvent(ev watch.AutoscalerEvent) {
	switch ev.Type {
	case watch.Added, watch.Modified:
		observedMin := int64(1)
		if ev.Object.Spec.MinReplicas != nil {
			observedMin = int64(*ev.Object.Spec.MinReplicas)
		}
		r.targets.OnAutoscalerEvent(ev.Object.Namespace, ev.Object.Name, observedMin, int64(ev.Object.Status.CurrentReplicas))
	case watch.Deleted:
		r.targets.OnAutoscalerDeleted(ev.Object.Namespace, ev.Object.Name)
	}
}

func (r *Reconciler) evaluateAndDispatch(ctx context.Context) {
	now := r.clock.Now()
	schedSnap := r.store.Snapshot()
	targetSnap := r.targets.Snapshot()

	intents := decision.Evaluate(r.clock, schedSnap, targetSnap, now)
	if len(intents) == 0 {
		return
	}

	r.dispatch(ctx, intents, now)
}

type dispatchOutcome struct {
	key          schedulestore.Key
	fingerprint  string
	reason       decision.Reason
	namespace    string
	name         string
	permanentErr bool
}

// dispatch patches every non-quarantined intent concurrently, bounded
// by cfg.DispatchConcurrency, then applies the outcomes back to the
// Target Index and quarantine map serially, on the caller's goroutine,
// so none of those structures need their own locking against this
// method.
func (r *Reconciler) dispatch(ctx context.Context, intents []decision.MutationIntent, now time.Time) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.DispatchConcurrency)

	var mu sync.Mutex
	outcomes := make([]dispatchOutcome, 0, len(intents))

	for _, intent := range intents {
		intent := intent
		if r.isQuarantined(intent.Key, now) {
			continue
		}

		g.Go(func() error {
			err := r.patchClient.SetMinReplicas(gctx, intent.Namespace, intent.HPAName, intent.DesiredMin)

			outcome := dispatchOutcome{
				key:         intent.Key,
				fingerprint: intent.Fingerprint,
				reason:      intent.Reason,
				namespace:   intent.Namespace,
				name:        intent.HPAName,
			}

			if err != nil {
				if patchclient.IsPermanent(err) {
					metrics.PatchPermanentErrors.Inc()
					outcome.permanentErr = true
					logrus.WithError(err).WithField("key", intent.Key.String()).Error("reconciler: permanent patch error, quarantining key")
				} else {
					metrics.PatchTransientErrors.Inc()
					logrus.WithError(err).WithField("key", intent.Key.String()).Warn("reconciler: transient patch error, idempotence gate will retry")
				}
			} else {
				metrics.RecordDispatch(intent.Reason)
				r.emitEvent(intent)
			}

			mu.Lock()
			outcomes = append(outcomes, outcome)
			mu.Unlock()

			return nil
		})
	}

	_ = g.Wait()

	for _, o := range outcomes {
		if o.permanentErr {
			r.quarantineUntil[o.key] = now.Add(r.cfg.Quarantine)
			continue
		}
		r.targets.RecordDispatchedFingerprint(o.key, o.fingerprint)
	}

	metrics.QuarantinedKeys.Set(float64(len(r.quarantineUntil)))
}

// isQuarantined reports whether key's dispatch is currently suppressed,
// pruning the entry if its quarantine window has elapsed.
func (r *Reconciler) isQuarantined(key schedulestore.Key, now time.Time) bool {
	until, ok := r.quarantineUntil[key]
	if !ok {
		return false
	}
	if now.After(until) {
		delete(r.quarantineUntil, key)
		return false
	}
	return true
}

func (r *Reconciler) emitEvent(intent decision.MutationIntent) {
	if r.recorder == nil {
		return
	}
	r.recorder.Eventf(&corev1.ObjectReference{
		Kind:      "HorizontalPodAutoscaler",
		Namespace: intent.Namespace,
		Name:      intent.HPAName,
	}, corev1.EventTypeNormal, string(intent.Reason), "set minReplicas to %d", intent.DesiredMin)
}
