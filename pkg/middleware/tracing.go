package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/pinboard/pkg/tracing"
)

// TracingMiddleware 每个请求一个 server span，board 操作的 span 挂在它下面.
// span 名称使用路由模板，未匹配的路由记为 "<method> unmatched".
func TracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartSpan(c.Request.Context(), "http.request",
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(c.Request.Method),
				semconv.URLPath(c.Request.URL.Path),
				semconv.ClientAddress(c.ClientIP()),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		} else {
			span.SetAttributes(semconv.HTTPRoute(route))
		}

		if pin := c.Query("name"); pin != "" {
			span.SetAttributes(tracing.AttrPin.String(pin))
		}

		status := c.Writer.Status()

		span.SetName(c.Request.Method + " " + route)
		span.SetAttributes(semconv.HTTPResponseStatusCode(status))

		switch {
		case status >= http.StatusInternalServerError:
			span.SetStatus(codes.Error, http.StatusText(status))
		case len(c.Errors) > 0:
			span.SetAttributes(attribute.String("gin.errors", c.Errors.String()))
		}
	}
}
