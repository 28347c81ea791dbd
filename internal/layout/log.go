package layout

import (
	"context"

	"github.com/charmbracelet/log"
)

type ctxKey int

const loggerKey ctxKey = 0

// WithLogger attaches l to ctx for the stepping driver.
func WithLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// LoggerFrom returns the logger attached to ctx, or log.Default().
func LoggerFrom(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
