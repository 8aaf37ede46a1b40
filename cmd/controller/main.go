package main

import (
	"context"
	"net/http"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/tools/record"

	"github.com/linki/hpa-schedule-controller/api/v1alpha1"
	"github.com/linki/hpa-schedule-controller/internal/clock"
	"github.com/linki/hpa-schedule-controller/internal/metrics"
	"github.com/linki/hpa-schedule-controller/internal/patchclient"
	"github.com/linki/hpa-schedule-controller/internal/reconciler"
	"github.com/linki/hpa-schedule-controller/internal/schedulestore"
	"github.com/linki/hpa-schedule-controller/internal/signals"
	"github.com/linki/hpa-schedule-controller/internal/targetindex"
	"github.com/linki/hpa-schedule-controller/internal/watch"
)

// options holds every flag this command accepts.
type options struct {
	kubeconfig         string
	policyTimezone     string
	watchNamespace     string
	tickInterval       time.Duration
	dispatchLimit      int
	quarantine         time.Duration
	metricsAddress     string
	bothStreamsDownMax time.Duration
}

func newCommand() *cobra.Command {
	o := &options{
		policyTimezone:     clock.DefaultTimezone,
		watchNamespace:     "",
		tickInterval:       10 * time.Second,
		dispatchLimit:      10,
		quarantine:         60 * time.Second,
		metricsAddress:     ":7979",
		bothStreamsDownMax: 5 * time.Minute,
	}

	cmd := &cobra.Command{
		Use:   "hpa-schedule-controller",
		Short: "Maintains time-windowed HorizontalPodAutoscaler minReplicas floors",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), o)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&o.kubeconfig, "kubeconfig", "", "Path to a kubeconfig file; defaults to in-cluster config")
	flags.StringVar(&o.policyTimezone, "policy-timezone", o.policyTimezone, "IANA timezone all schedule windows are evaluated in")
	flags.StringVar(&o.watchNamespace, "watch-namespace", o.watchNamespace, "Namespace to watch HorizontalPodAutoscalers in; empty watches all namespaces")
	flags.DurationVar(&o.tickInterval, "tick-interval", o.tickInterval, "Periodic reconciliation tick interval")
	flags.IntVar(&o.dispatchLimit, "dispatch-concurrency", o.dispatchLimit, "Maximum concurrent Patch Client calls")
	flags.DurationVar(&o.quarantine, "quarantine", o.quarantine, "How long to suppress dispatch for a key after a permanent patch error")
	flags.StringVar(&o.metricsAddress, "metrics-address", o.metricsAddress, "Address to serve /metrics on")
	flags.DurationVar(&o.bothStreamsDownMax, "both-streams-down-max", o.bothStreamsDownMax, "Exit with status 2 if both watch streams stay disconnected this long")

	return cmd
}

func main() {
	cmd := newCommand()
	if err := cmd.Execute(); err != nil {
		log.WithError(err).Error("hpa-schedule-controller exited with an error")
		os.Exit(1)
	}
}

func run(ctx context.Context, o *options) error {
	ctx = withSignals(ctx)

	restConfig, err := loadRESTConfig(o.kubeconfig)
	if err != nil {
		log.WithError(err).Error("failed to load kubernetes client configuration")
		os.Exit(1)
	}

	kubeClient, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		log.WithError(err).Error("failed to construct kubernetes client")
		os.Exit(1)
	}

	scheme := runtime.NewScheme()
	if err := clientgoscheme.AddToScheme(scheme); err != nil {
		log.WithError(err).Error("failed to add client-go types to scheme")
		os.Exit(1)
	}
	if err := v1alpha1.AddToScheme(scheme); err != nil {
		log.WithError(err).Error("failed to add scheduling types to scheme")
		os.Exit(1)
	}

	scheduleClient, err := watch.NewScheduleRESTClient(restConfig, scheme)
	if err != nil {
		log.WithError(err).Error("failed to construct schedule REST client")
		os.Exit(1)
	}

	policyClock, err := clock.New(clock.Config{Timezone: o.policyTimezone})
	if err != nil {
		log.WithError(err).Error("failed to load policy timezone")
		os.Exit(1)
	}

	store := schedulestore.New()
	targets := targetindex.New()
	patchClient := patchclient.New(kubeClient)
	recorder := newEventRecorder(kubeClient, scheme)

	rec := reconciler.New(policyClock, store, targets, patchClient, recorder, reconciler.Config{
		TickInterval:        o.tickInterval,
		DispatchConcurrency: o.dispatchLimit,
		Quarantine:          o.quarantine,
	})
	rec.SetStatusWriter(watch.NewStatusWriter(scheduleClient))

	scheduleEvents := make(chan watch.ScheduleEvent, 64)
	autoscalerEvents := make(chan watch.AutoscalerEvent, 64)

	scheduleHealth := watch.NewStreamHealth()
	autoscalerHealth := watch.NewStreamHealth()

	go watch.RunSchedules(ctx, scheduleClient, scheduleEvents, scheduleHealth)
	go watch.RunAutoscalers(ctx, kubeClient, o.watchNamespace, autoscalerEvents, autoscalerHealth)
	go watchStreamHealth(ctx, o.bothStreamsDownMax, scheduleHealth, autoscalerHealth)
	go serveMetrics(o.metricsAddress)

	rec.Run(ctx, scheduleEvents, autoscalerEvents)

	log.Info("hpa-schedule-controller shut down cleanly")
	return nil
}

func withSignals(ctx context.Context) context.Context {
	sigCtx := signals.Context()
	merged, cancel := context.WithCancel(ctx)
	go func() {
		<-sigCtx.Done()
		cancel()
	}()
	return merged
}

func loadRESTConfig(kubeconfig string) (*rest.Config, error) {
	if kubeconfig != "" {
		return clientcmd.BuildConfigFromFlags("", kubeconfig)
	}
	if cfg, err := rest.InClusterConfig(); err == nil {
		return cfg, nil
	}
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		clientcmd.NewDefaultClientConfigLoadingRules(),
		&clientcmd.ConfigOverrides{},
	).ClientConfig()
}

func newEventRecorder(kubeClient kubernetes.Interface, scheme *runtime.Scheme) record.EventRecorder {
	broadcaster := record.NewBroadcaster()
	broadcaster.StartLogging(log.Infof)
	broadcaster.StartRecordingToSink(&record.EventSinkImpl{Interface: kubeClient.CoreV1().Events("")})
	return broadcaster.NewRecorder(scheme, corev1.EventSource{Component: "hpa-schedule-controller"})
}

// watchStreamHealth exits the process with status 2 once both streams
// have stayed disconnected continuously for longer than max: past that
// point the controller can no longer observe reality and staying up
// would just mean serving a stale view.
func watchStreamHealth(ctx context.Context, max time.Duration, schedules, autoscalers *watch.StreamHealth) {
	var bothDownSince time.Time

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			bothDown := !schedules.Healthy() && !autoscalers.Healthy()
			if !bothDown {
				bothDownSince = time.Time{}
				continue
			}
			if bothDownSince.IsZero() {
				bothDownSince = time.Now()
				continue
			}
			if time.Since(bothDownSince) > max {
				log.Errorf("both watch streams have been disconnected for over %s, exiting", max)
				os.Exit(2)
			}
		}
	}
}

func serveMetrics(address string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	if err := http.ListenAndServe(address, mux); err != nil {
		log.WithError(err).Error("metrics server exited")
	}
}
