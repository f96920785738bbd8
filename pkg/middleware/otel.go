package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sill-dev/sill/pkg/custom"
)

// defaultTracerName is the tracer name used when none is configured.
const defaultTracerName = "sill"

// OTelConfig configures the OpenTelemetry dispatch middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "sill").
	TracerName string

	// Filter determines which notifications to trace.
	// Nil traces everything.
	Filter func(n custom.Notification) bool

	// AttributeExtractor extracts custom attributes from a notification.
	AttributeExtractor func(n custom.Notification) []attribute.KeyValue

	tracer trace.Tracer
}

// OTelOption configures the OpenTelemetry dispatch middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithFilter sets a filter function for notifications.
func WithFilter(filter func(n custom.Notification) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a function that adds custom span attributes.
func WithAttributeExtractor(fn func(n custom.Notification) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = fn
	}
}

// OTel creates dispatch middleware that traces every lifecycle notification
// with OpenTelemetry. The span records the stage, kind, and target node;
// attribute notifications add the attribute name. Contained callback
// failures mark the span as errored without interrupting dispatch.
//
// Example:
//
//	disp := custom.NewDispatcher(host, reg)
//	disp.Use(middleware.OTel(
//	    middleware.WithTracerName("my-app"),
//	    middleware.WithFilter(func(n custom.Notification) bool {
//	        return n.Stage != custom.StageAttribute
//	    }),
//	))
func OTel(opts ...OTelOption) custom.Middleware {
	config := OTelConfig{
		TracerName: defaultTracerName,
	}
	for _, opt := range opts {
		opt(&config)
	}

	config.tracer = otel.Tracer(config.TracerName)

	return func(next custom.Handler) custom.Handler {
		return func(n custom.Notification) error {
			if config.Filter != nil && !config.Filter(n) {
				return next(n)
			}

			attrs := []attribute.KeyValue{
				attribute.String("sill.stage", n.Stage.String()),
				attribute.String("sill.kind", n.Kind.String()),
				attribute.Int64("sill.node", int64(n.Ref.ID())),
				attribute.Int("sill.depth", n.Depth),
			}
			if n.Change != nil {
				attrs = append(attrs, attribute.String("sill.attribute", n.Change.Name.String()))
			}
			if n.Adoption != nil {
				attrs = append(attrs, attribute.Bool("sill.adopt_connected", n.Adoption.Connected))
			}
			if config.AttributeExtractor != nil {
				attrs = append(attrs, config.AttributeExtractor(n)...)
			}

			_, span := config.tracer.Start(
				context.Background(),
				"sill.dispatch",
				trace.WithSpanKind(trace.SpanKindInternal),
				trace.WithAttributes(attrs...),
				trace.WithTimestamp(time.Now()),
			)
			defer span.End()

			err := next(n)

			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			} else {
				span.SetStatus(codes.Ok, "")
			}

			return err
		}
	}
}
