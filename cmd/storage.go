package cmd

import (
	"context"

	"github.com/astromechza/bloog/pkg/storage"
	"github.com/astromechza/bloog/pkg/store"
	"github.com/astromechza/bloog/pkg/utils"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// supportedBlobSchemes lists the URL schemes registered with gocloud
var supportedBlobSchemes = map[string]string{
	"gs":     "Google Cloud Storage",
	"s3":     "AWS S3",
	"azblob": "Azure Blob Storage",
	"file":   "Local directory",
	"mem":    "In memory",
}

// createStorage creates a storage backend based on the configuration
func createStorage(ctx context.Context, v *viper.Viper, l *zap.Logger) (storage.Storage, error) {
	storeType := storeTypeFlag(v)
	storeURL := storeURLFlag(v)

	if storeType != "blob" && storeURL != "" {
		l.Warn("store url is set but store-type is not 'blob'; it will be ignored",
			zap.String("store-type", storeType),
			zap.String("store-url", utils.RedactURL(storeURL)),
		)
	}

	switch storeType {
	case "blob":
		if storeURL == "" {
			return nil, errors.New("store url is required when store-type is 'blob'")
		}
		provider, ok := supportedBlobSchemes[utils.Scheme(storeURL)]
		if !ok {
			return nil, errors.Errorf("unsupported store url scheme in %q", utils.RedactURL(storeURL))
		}
		l.Info("using blob storage",
			zap.String("url", utils.RedactURL(storeURL)),
			zap.String("provider", provider),
		)
		return storage.NewBlobStorage(ctx, storeURL, "")
	case "filesystem", "":
		dir := storeDirFlag(v)
		l.Info("using filesystem storage", zap.String("dir", dir))
		return storage.NewFilesystemStorage(dir)
	default:
		return nil, errors.Errorf("unknown store type: %s (supported: filesystem, blob)", storeType)
	}
}

// createStore opens the configured backend and returns the store with a closer for the backend.
func createStore(ctx context.Context, v *viper.Viper, l *zap.Logger) (*store.Store, func(context.Context) error, error) {
	backend, err := createStorage(ctx, v, l)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to create storage")
	}
	s := store.New(l.Named("inst"), backend, store.WithRoot(storeRootFlag(v)))
	l.Info("opened store", zap.String("root", s.Root()))
	return s, func(context.Context) error {
		return backend.Close()
	}, nil
}
