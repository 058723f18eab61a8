package cmd

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func logLevelFlag(v *viper.Viper) string {
	return v.GetString("log.level")
}

func addLogLevelFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("log-level", "info", "log level")
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindEnv("log.level", "LOG_LEVEL")
}

func logFormatFlag(v *viper.Viper) string {
	return v.GetString("log.format")
}

func addLogFormatFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("log-format", "json", "log format")
	_ = v.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = v.BindEnv("log.format", "LOG_FORMAT")
}

func addressFlag(v *viper.Viper) string {
	return v.GetString("address")
}

func addAddressFlag(flags *pflag.FlagSet, v *viper.Viper, def string) {
	flags.String("address", def, "Address to bind to (host:port)")
	_ = v.BindPFlag("address", flags.Lookup("address"))
	_ = v.BindEnv("address", "BLOOG_ADDRESS")
}

func storeTypeFlag(v *viper.Viper) string {
	return v.GetString("store.type")
}

func addStoreTypeFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("store-type", "filesystem", "Storage backend type: filesystem or blob")
	_ = v.BindPFlag("store.type", flags.Lookup("store-type"))
	_ = v.BindEnv("store.type", "BLOOG_STORE_TYPE")
}

func storeURLFlag(v *viper.Viper) string {
	return v.GetString("store.url")
}

func addStoreURLFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("store-url", "", "Bucket URL for blob storage (e.g., s3://bucket, gs://bucket, azblob://container, file:///path, mem://)")
	_ = v.BindPFlag("store.url", flags.Lookup("store-url"))
	_ = v.BindEnv("store.url", "BLOOG_STORE_URL")
}

func storeDirFlag(v *viper.Viper) string {
	return v.GetString("store.dir")
}

func addStoreDirFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("store-dir", "/var/lib/bloog", "Directory for filesystem storage")
	_ = v.BindPFlag("store.dir", flags.Lookup("store-dir"))
	_ = v.BindEnv("store.dir", "BLOOG_STORE_DIR")
}

func storeRootFlag(v *viper.Viper) string {
	return v.GetString("store.root")
}

func addStoreRootFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("store-root", "default", "Key prefix all posts and images are stored below")
	_ = v.BindPFlag("store.root", flags.Lookup("store-root"))
	_ = v.BindEnv("store.root", "BLOOG_STORE_ROOT")
}

func addStoreFlags(flags *pflag.FlagSet, v *viper.Viper) {
	addStoreTypeFlag(flags, v)
	addStoreURLFlag(flags, v)
	addStoreDirFlag(flags, v)
	addStoreRootFlag(flags, v)
}

func maxImageBytesFlag(v *viper.Viper) int64 {
	return v.GetInt64("max_image_bytes")
}

func addMaxImageBytesFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Int64("max-image-bytes", 32<<20, "Maximum size of an uploaded image")
	_ = v.BindPFlag("max_image_bytes", flags.Lookup("max-image-bytes"))
	_ = v.BindEnv("max_image_bytes", "BLOOG_MAX_IMAGE_BYTES")
}

func overwriteFlag(v *viper.Viper) bool {
	return v.GetBool("overwrite")
}

func addOverwriteFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("overwrite", false, "Replace posts that already exist")
	_ = v.BindPFlag("overwrite", flags.Lookup("overwrite"))
}

func gracefulPeriodFlag(v *viper.Viper) time.Duration {
	return v.GetDuration("graceful_period")
}

func addGracefulPeriodFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Duration("graceful-period", 0, "Graceful shutdown period")
	_ = v.BindPFlag("graceful_period", flags.Lookup("graceful-period"))
	_ = v.BindEnv("graceful_period", "BLOOG_GRACEFUL_PERIOD")
}

func gzipLevelFlag(v *viper.Viper) int {
	return v.GetInt("gzip.level")
}

func addGzipLevelFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Int("gzip-level", 5, "Compression level for http responses")
	_ = v.BindPFlag("gzip.level", flags.Lookup("gzip-level"))
	_ = v.BindEnv("gzip.level", "BLOOG_GZIP_LEVEL")
}

func serviceHealthzEnabledFlag(v *viper.Viper) bool {
	return v.GetBool("service.healthz.enabled")
}

func addServiceHealthzEnabledFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("service-healthz-enabled", false, "Enable healthz service")
	_ = v.BindPFlag("service.healthz.enabled", flags.Lookup("service-healthz-enabled"))
}

func servicePrometheusEnabledFlag(v *viper.Viper) bool {
	return v.GetBool("service.prometheus.enabled")
}

func addServicePrometheusEnabledFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("service-prometheus-enabled", false, "Enable prometheus service")
	_ = v.BindPFlag("service.prometheus.enabled", flags.Lookup("service-prometheus-enabled"))
}

func servicePProfEnabledFlag(v *viper.Viper) bool {
	return v.GetBool("service.pprof.enabled")
}

func addServicePProfEnabledFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("service-pprof-enabled", false, "Enable pprof service")
	_ = v.BindPFlag("service.pprof.enabled", flags.Lookup("service-pprof-enabled"))
}

func otelEnabledFlag(v *viper.Viper) bool {
	return v.GetBool("otel.enabled")
}

func addOtelEnabledFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("otel-enabled", false, "Enable otel service")
	_ = v.BindPFlag("otel.enabled", flags.Lookup("otel-enabled"))
	_ = v.BindEnv("otel.enabled", "OTEL_ENABLED")
}

// addServerFlags registers the flags shared by every command running a keel server.
func addServerFlags(flags *pflag.FlagSet, v *viper.Viper) {
	addStoreFlags(flags, v)
	addGracefulPeriodFlag(flags, v)
	addGzipLevelFlag(flags, v)
	addOtelEnabledFlag(flags, v)
	addServiceHealthzEnabledFlag(flags, v)
	addServicePrometheusEnabledFlag(flags, v)
	addServicePProfEnabledFlag(flags, v)
}
