package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TraceIDHeader echoes the trace a request was handled under.
const TraceIDHeader = "X-Trace-ID"

// TraceContext continues a W3C trace started by the caller. The remote span
// context from the traceparent header is put on the request context, where the
// logger picks up trace_id and span_id. Requests without a valid header pass
// through untouched.
func TraceContext() gin.HandlerFunc {
	propagator := propagation.TraceContext{}
	return func(c *gin.Context) {
		ctx := propagator.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			c.Request = c.Request.WithContext(ctx)
			c.Writer.Header().Set(TraceIDHeader, sc.TraceID().String())
		}
		c.Next()
	}
}

// Tracing starts a server span for every request through otelgin and tags it
// once the handlers have run. It takes the place of TraceContext when spans
// are exported: a caller's traceparent is still continued.
func Tracing(service string, tp trace.TracerProvider) gin.HandlersChain {
	return gin.HandlersChain{
		otelgin.Middleware(service,
			otelgin.WithTracerProvider(tp),
			otelgin.WithPropagators(propagation.NewCompositeTextMapPropagator(
				propagation.TraceContext{},
				propagation.Baggage{},
			)),
		),
		annotateSpan(),
	}
}

// annotateSpan runs inside the otelgin span, which ends when otelgin returns.
func annotateSpan() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if sc := span.SpanContext(); sc.IsValid() {
			c.Writer.Header().Set(TraceIDHeader, sc.TraceID().String())
		}
		if id := GetRequestID(c); id != "" {
			span.SetAttributes(attribute.String("http.request_id", id))
		}

		c.Next()

		if c.Writer.Status() >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(c.Writer.Status()))
		}
	}
}
