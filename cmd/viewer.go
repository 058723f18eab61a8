package cmd

import (
	"context"
	"sync/atomic"

	"github.com/astromechza/bloog/pkg/handler"
	"github.com/astromechza/bloog/pkg/store"
	"github.com/foomo/keel"
	"github.com/foomo/keel/healthz"
	"github.com/foomo/keel/net/http/middleware"
	"github.com/foomo/keel/service"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func NewViewerCommand() *cobra.Command {
	v := newViper()

	cmd := &cobra.Command{
		Use:   "viewer",
		Short: "Start the read only viewer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svr := keel.NewServer(
				keel.WithHTTPPrometheusService(servicePrometheusEnabledFlag(v)),
				keel.WithHTTPHealthzService(serviceHealthzEnabledFlag(v)),
				keel.WithPrometheusMeter(servicePrometheusEnabledFlag(v)),
				keel.WithGracefulPeriod(gracefulPeriodFlag(v)),
				keel.WithOTLPGRPCTracer(otelEnabledFlag(v)),
				keel.WithHTTPPProfService(servicePProfEnabledFlag(v)),
			)

			l := svr.Logger()

			s, closer, err := createStore(cmd.Context(), v, l)
			if err != nil {
				return err
			}
			svr.AddClosers(closer)

			var validated atomic.Bool
			svr.AddStartupHealthzers(healthz.NewHealthzerFn(func(ctx context.Context) error {
				if !validated.Load() {
					return errors.New("posts not validated yet")
				}
				return nil
			}))
			svr.AddReadinessHealthzers(healthz.NewHealthzerFn(s.Readyz))

			svr.AddServices(
				service.NewGoRoutine(l.Named("go.validate"), "validate", func(ctx context.Context, l *zap.Logger) error {
					return validatePosts(ctx, l, s, &validated)
				}),
				service.NewHTTP(l.Named("svc.http"), "http", addressFlag(v),
					handler.NewViewer(l.Named("inst.handler"), s),
					middleware.Telemetry(),
					middleware.Logger(),
					middleware.GZip(middleware.GZipWithLevel(gzipLevelFlag(v))),
					middleware.Recover(),
				),
			)

			svr.Run()
			return nil
		},
	}

	flags := cmd.Flags()
	addAddressFlag(flags, v, ":8080")
	addServerFlags(flags, v)

	return cmd
}

// validatePosts renders every stored post once. Serving posts that no longer render is refused,
// so a failure stops the server.
func validatePosts(ctx context.Context, l *zap.Logger, s *store.Store, validated *atomic.Bool) error {
	l = l.With(zap.String("run_id", uuid.New().String()))
	l.Info("validating posts")
	if err := s.ValidateAll(ctx); err != nil {
		return errors.Wrap(err, "post validation failed")
	}
	validated.Store(true)
	l.Info("posts validated")
	return nil
}
