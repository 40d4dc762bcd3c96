package context

import (
	"context"
	"github.com/gofiber/fiber/v2"
)

type key string

const (
	RequestIDKey key = "request_id"
	ExamIDKey    key = "exam_id"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	requestID, ok := ctx.Value(RequestIDKey).(string)
	if !ok || requestID == "" {
		return "unknown"
	}
	return requestID
}

func WithExamID(ctx context.Context, examID string) context.Context {
	return context.WithValue(ctx, ExamIDKey, examID)
}

func GetExamID(ctx context.Context) string {
	examID, _ := ctx.Value(ExamIDKey).(string)
	return examID
}

// FromFiberCtx detaches a context from the fiber request so it can outlive the
// handler's pooled fasthttp context. The request id travels with it.
func FromFiberCtx(c *fiber.Ctx) context.Context {
	ctx := context.Background()

	requestID, ok := c.Locals("X-Request-ID").(string)
	if !ok || requestID == "" {
		requestID = c.Get("X-Request-ID")

		if requestID == "" {
			requestID = "unknown"
		}
	}

	return WithRequestID(ctx, requestID)
}
