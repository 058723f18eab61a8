package cmd

import (
	"github.com/astromechza/bloog/pkg/handler"
	"github.com/foomo/keel"
	"github.com/foomo/keel/healthz"
	"github.com/foomo/keel/net/http/middleware"
	"github.com/foomo/keel/service"
	"github.com/spf13/cobra"
)

func NewEditorCommand() *cobra.Command {
	v := newViper()

	cmd := &cobra.Command{
		Use:   "editor",
		Short: "Start the read write editor",
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
			svr.AddReadinessHealthzers(healthz.NewHealthzerFn(s.Readyz))

			svr.AddServices(
				service.NewHTTP(l.Named("svc.http"), "http", addressFlag(v),
					handler.NewEditor(l.Named("inst.handler"), s,
						handler.WithMaxImageBytes(maxImageBytesFlag(v)),
					),
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
	addAddressFlag(flags, v, ":8081")
	addMaxImageBytesFlag(flags, v)
	addServerFlags(flags, v)

	return cmd
}
