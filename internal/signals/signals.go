// Package signals turns SIGINT/SIGTERM into a cancelled context so the
// Reconciler Loop can drain its input queue before exiting.
package signals

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
)

// Context returns a context cancelled on the first SIGINT or SIGTERM.
// A second signal during shutdown exits the process immediately,
// rather than waiting on a drain that may be stuck.
func Context() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Infof(`received signal "%s"; beginning shutdown`, sig)
		cancel()

		sig = <-sigCh
		log.Fatalf(`received signal "%s" during shutdown; exiting immediately`, sig)
	}()

	return ctx
}
