package app

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	storeauth "github.com/Arunava9732/Arunava45-sub000"
	otelexport "github.com/Arunava9732/Arunava45-sub000/metrics/export/otel"
)

// telemetry pushes engine metrics over OTLP gRPC when an endpoint is set.
// A nil *telemetry is valid and does nothing.
type telemetry struct {
	provider *sdkmetric.MeterProvider
	exporter *otelexport.OTelExporter
}

func newTelemetry(ctx context.Context, endpoint string, engine *storeauth.Engine) (*telemetry, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, nil
	}

	// OTLP gRPC dials host:port; any path is dropped.
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid OTLP endpoint %q", endpoint)
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(u.Host)}
	if u.Scheme != "https" {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(15*time.Second))),
	)
	exporter, err := otelexport.NewOTelExporter(provider.Meter("storeauth"), engine)
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, err
	}
	return &telemetry{provider: provider, exporter: exporter}, nil
}

func (t *telemetry) shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	_ = t.exporter.Close()
	return t.provider.Shutdown(ctx)
}
