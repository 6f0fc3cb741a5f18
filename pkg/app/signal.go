package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SetupSignalContext returns a context cancelled on SIGINT/SIGTERM. The
// teacher's binaries get this from k8s.io/apiserver/pkg/server, a
// dependency this module does not carry; os/signal.NotifyContext is the
// standard-library equivalent and there is no third-party library in
// the example pack that does this any differently.
func SetupSignalContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}
