package events

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"vendor-service/pkg/logger"
)

const pendingKey = "events.pending"

// Enqueue queues event for publication once the request succeeds
func Enqueue(c echo.Context, event ChangeEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	pending, _ := c.Get(pendingKey).([]ChangeEvent)
	c.Set(pendingKey, append(pending, event))
}

// Pending returns the events queued on c
func Pending(c echo.Context) []ChangeEvent {
	pending, _ := c.Get(pendingKey).([]ChangeEvent)
	return pending
}

// Middleware publishes the events queued by the handler after the handler
// returned without error. It must wrap the session middleware so events only
// go out for committed changes. Publish failures are logged.
func Middleware(publisher Publisher) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := next(c); err != nil {
				return err
			}

			for _, event := range Pending(c) {
				if err := publisher.Publish(c.Request().Context(), event); err != nil {
					logger.FromEcho(c).Error("Failed to publish change event",
						zap.String("type", event.Type),
						zap.Error(err))
				}
			}
			return nil
		}
	}
}
