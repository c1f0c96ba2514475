package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	LoginAttemptsTotal      metric.Int64Counter
	RegisterRequestsTotal   metric.Int64Counter
	OTPIssuedTotal          metric.Int64Counter
	OTPVerifyFailuresTotal  metric.Int64Counter
	AuthRequestDurationSecs metric.Float64Histogram
}

var (
	appMetrics *AppMetrics
	once       sync.Once
	initErr    error
)

// Init installs a MeterProvider backed by the Prometheus exporter and
// creates the application's instruments. Safe to call more than once.
func Init() (*AppMetrics, error) {
	once.Do(func() {
		exporter, err := prometheus.New()
		if err != nil {
			initErr = fmt.Errorf("failed to create prometheus exporter: %w", err)
			return
		}
		otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter)))

		meter := otel.GetMeterProvider().Meter("rentmyvenue")
		m := &AppMetrics{}

		if m.LoginAttemptsTotal, err = meter.Int64Counter(
			"login_attempts_total",
			metric.WithDescription("Total number of login attempts"),
			metric.WithUnit("{request}"),
		); err != nil {
			initErr = err
			return
		}

		if m.RegisterRequestsTotal, err = meter.Int64Counter(
			"register_requests_total",
			metric.WithDescription("Total number of register requests"),
			metric.WithUnit("{request}"),
		); err != nil {
			initErr = err
			return
		}

		if m.OTPIssuedTotal, err = meter.Int64Counter(
			"otp_issued_total",
			metric.WithDescription("Total number of one-time passcodes issued"),
			metric.WithUnit("{code}"),
		); err != nil {
			initErr = err
			return
		}

		if m.OTPVerifyFailuresTotal, err = meter.Int64Counter(
			"otp_verify_failures_total",
			metric.WithDescription("Total number of failed passcode verifications"),
			metric.WithUnit("{request}"),
		); err != nil {
			initErr = err
			return
		}

		if m.AuthRequestDurationSecs, err = meter.Float64Histogram(
			"auth_request_duration_seconds",
			metric.WithDescription("Duration of auth endpoint requests"),
			metric.WithUnit("s"),
		); err != nil {
			initErr = err
			return
		}

		appMetrics = m
	})
	return appMetrics, initErr
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
