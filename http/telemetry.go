package http

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/freekieb7/espweb/http"

// serverTelemetry records one span and a few instruments per dispatch. It
// uses the global providers, which are no-ops until telemetry is set up.
type serverTelemetry struct {
	server    string
	tracer    trace.Tracer
	requests  metric.Int64Counter
	overflows metric.Int64Counter
	duration  metric.Float64Histogram
}

func newServerTelemetry(server string) *serverTelemetry {
	meter := otel.Meter(instrumentationName)
	t := &serverTelemetry{
		server: server,
		tracer: otel.Tracer(instrumentationName),
	}

	var err error
	t.requests, err = meter.Int64Counter("espweb.requests",
		metric.WithDescription("Requests dispatched, by method and status"),
		metric.WithUnit("{request}"))
	if err != nil {
		otel.Handle(err)
		t.requests = noop.Int64Counter{}
	}

	t.overflows, err = meter.Int64Counter("espweb.body.overflow",
		metric.WithDescription("Request bodies refused for exceeding the size limit"),
		metric.WithUnit("{request}"))
	if err != nil {
		otel.Handle(err)
		t.overflows = noop.Int64Counter{}
	}

	t.duration, err = meter.Float64Histogram("espweb.request.duration",
		metric.WithDescription("Time spent dispatching a request"),
		metric.WithUnit("s"))
	if err != nil {
		otel.Handle(err)
		t.duration = noop.Float64Histogram{}
	}

	return t
}

func (t *serverTelemetry) start(ctx context.Context, method string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, method,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("espweb.server", t.server),
			attribute.String("http.request.method", method),
		),
	)
}

func (t *serverTelemetry) finish(ctx context.Context, span trace.Span, req *Request, res *Response, elapsed time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("http.request.method", req.method),
		attribute.Int("http.response.status_code", res.status),
	}
	if req.route != nil {
		attrs = append(attrs, attribute.String("http.route", req.route.Pattern))
	}

	span.SetAttributes(attrs...)
	span.SetAttributes(
		attribute.String("url.path", req.path),
		attribute.String("espweb.request_id", req.id),
	)
	if res.status >= StatusInternalServerError || res.failed {
		span.SetStatus(codes.Error, StatusText(res.status))
	}

	t.requests.Add(ctx, 1, metric.WithAttributes(attrs...))
	t.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
}

func (t *serverTelemetry) overflow(ctx context.Context, path string) {
	t.overflows.Add(ctx, 1, metric.WithAttributes(attribute.String("url.path", path)))
}
