package post

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/blogapi/pkg/file"
)

// Observer receives telemetry about image attachment operations.
type Observer interface {
	ObserveValidation(err error)
	ObserveSave(d time.Duration, size int64, err error)
	ObserveDelete(d time.Duration, status file.DeleteStatus)
	ObserveOrphan(err error)
}

type nopObserver struct{}

func (nopObserver) ObserveValidation(error) {}
func (nopObserver) ObserveSave(time.Duration, int64, error) {}
func (nopObserver) ObserveDelete(time.Duration, file.DeleteStatus) {}
func (nopObserver) ObserveOrphan(error) {}

// PrometheusObserver exports attachment metrics.
type PrometheusObserver struct {
	validations    *prometheus.CounterVec
	saveDuration   *prometheus.HistogramVec
	savedBytes     prometheus.Counter
	deleteDuration *prometheus.HistogramVec
	orphans        *prometheus.CounterVec
}

// NewPrometheusObserver registers the metrics on reg (prometheus.DefaultRegisterer
// if nil) under namespace, defaulting to "blogapi". Registering twice on the
// same registry reuses the existing collectors.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "blogapi"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	const subsystem = "post_image"

	o := &PrometheusObserver{
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "validations_total",
			Help:      "Uploads checked by the validator, by result.",
		}, []string{"result"}),
		saveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "save_duration_seconds",
			Help:      "Time spent writing image blobs.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
		savedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "saved_bytes_total",
			Help:      "Bytes of image blobs written.",
		}),
		deleteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "delete_duration_seconds",
			Help:      "Time spent deleting image blobs, by outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		orphans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "orphans_total",
			Help:      "Blobs left behind by failed deletes, by whether the ledger accepted them.",
		}, []string{"result"}),
	}

	var err error
	if o.validations, err = register(reg, o.validations); err != nil {
		return nil, err
	}
	if o.saveDuration, err = register(reg, o.saveDuration); err != nil {
		return nil, err
	}
	if o.savedBytes, err = register(reg, o.savedBytes); err != nil {
		return nil, err
	}
	if o.deleteDuration, err = register(reg, o.deleteDuration); err != nil {
		return nil, err
	}
	if o.orphans, err = register(reg, o.orphans); err != nil {
		return nil, err
	}
	return o, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register post image metric: %w", err)
	}
	return c, nil
}

// ObserveValidation counts an accepted upload or the rejection reason.
func (o *PrometheusObserver) ObserveValidation(err error) {
	o.validations.WithLabelValues(validationResult(err)).Inc()
}

func (o *PrometheusObserver) ObserveSave(d time.Duration, size int64, err error) {
	if err != nil {
		o.saveDuration.WithLabelValues("error").Observe(d.Seconds())
		return
	}
	o.saveDuration.WithLabelValues("ok").Observe(d.Seconds())
	o.savedBytes.Add(float64(size))
}

func (o *PrometheusObserver) ObserveDelete(d time.Duration, status file.DeleteStatus) {
	o.deleteDuration.WithLabelValues(status.String()).Observe(d.Seconds())
}

func (o *PrometheusObserver) ObserveOrphan(err error) {
	if err != nil {
		o.orphans.WithLabelValues("unrecorded").Inc()
		return
	}
	o.orphans.WithLabelValues("recorded").Inc()
}

func validationResult(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, file.ErrEmptyFile):
		return "empty"
	case errors.Is(err, file.ErrFileTooLarge):
		return "too_large"
	case errors.Is(err, file.ErrExtensionNotAllowed):
		return "extension"
	case errors.Is(err, file.ErrMIMETypeNotAllowed):
		return "mime_type"
	case errors.Is(err, file.ErrContentMismatch):
		return "content_mismatch"
	case errors.Is(err, file.ErrUnrecognizedContent):
		return "unrecognized"
	default:
		return "rejected"
	}
}
