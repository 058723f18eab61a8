package handler

import (
	"net/http"
	"time"

	"github.com/astromechza/bloog/pkg/conversion"
	"github.com/astromechza/bloog/pkg/imaging"
	"github.com/astromechza/bloog/pkg/metrics"
	"github.com/astromechza/bloog/pkg/store"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// errBadRequest marks malformed requests that never reached the store
	errBadRequest = errors.New("bad request")
	// errUnavailable marks a failed readiness check
	errUnavailable = errors.New("unavailable")
)

// routeFunc serves a single route and returns the error to be mapped onto the response.
type routeFunc func(w http.ResponseWriter, r *http.Request) error

// errorWriter writes err to w with the given status code.
type errorWriter func(l *zap.Logger, w http.ResponseWriter, r *http.Request, code int, err error)

type router struct {
	l           *zap.Logger
	name        string
	mux         *http.ServeMux
	writeError  errorWriter
	statusOfErr func(err error) int
}

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func newRouter(l *zap.Logger, name string, writeError errorWriter, statusOfErr func(error) int) *router {
	return &router{
		l:           l,
		name:        name,
		mux:         http.NewServeMux(),
		writeError:  writeError,
		statusOfErr: statusOfErr,
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

func (rt *router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt.mux.ServeHTTP(w, r)
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func (rt *router) handle(pattern string, fn routeFunc) {
	rt.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		err := fn(w, r)
		if err != nil {
			code := rt.statusOfErr(err)
			if code >= http.StatusInternalServerError {
				rt.l.Error("request failed", zap.String("route", pattern), zap.Error(err))
			} else {
				rt.l.Debug("request rejected", zap.String("route", pattern), zap.Int("code", code), zap.Error(err))
			}
			rt.writeError(rt.l, w, r, code, err)
		}
		metrics.ServiceRequestCounter.WithLabelValues(rt.name, pattern, metrics.Status(err)).Inc()
		metrics.ServiceRequestDuration.WithLabelValues(rt.name, pattern, metrics.Status(err)).Observe(time.Since(start).Seconds())
	})
}

// statusCode maps store, conversion and image errors onto http status codes.
func statusCode(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrSlugAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, errUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, errBadRequest),
		store.IsValidationError(err),
		conversion.IsConversionError(err),
		errors.Is(err, imaging.ErrUnsupportedImageFormat),
		errors.Is(err, imaging.ErrEmptySVG):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) error {
	bytes, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "failed to encode reply")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(bytes)
	return nil
}

func readJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, v interface{}) error {
	if r.Body == nil {
		return errors.Wrap(errBadRequest, "empty request body")
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBytes)).Decode(v); err != nil {
		return errors.Wrapf(errBadRequest, "could not read incoming json: %s", err)
	}
	return nil
}

func noContent(w http.ResponseWriter) error {
	w.WriteHeader(http.StatusNoContent)
	return nil
}
