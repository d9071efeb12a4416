package observability

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// Correlation ties a published event back to the request and trace that caused it.
type Correlation struct {
	RequestID string
	UserID    string
	TraceID   string
	SpanID    string
}

// CorrelationFromContext fills trace and span ids from the active span.
func CorrelationFromContext(ctx context.Context, requestID, userID string) Correlation {
	corr := Correlation{RequestID: requestID, UserID: userID}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		corr.TraceID = sc.TraceID().String()
		corr.SpanID = sc.SpanID().String()
	}
	return corr
}

// Headers renders the non-empty fields as message headers.
func (c Correlation) Headers() map[string]string {
	headers := make(map[string]string, 4)
	set := func(key, value string) {
		if value != "" {
			headers[key] = value
		}
	}
	set("x-request-id", c.RequestID)
	set("x-user-id", c.UserID)
	set("trace_id", c.TraceID)
	set("span_id", c.SpanID)
	return headers
}
