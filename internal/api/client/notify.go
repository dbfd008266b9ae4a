package client

import (
	"context"

	"go.uber.org/zap"
)

const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Notice is a user-visible toast.
type Notice struct {
	Level    string `json:"level"`
	Status   int    `json:"status,omitempty"`
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
}

// Notifier surfaces notices to the user.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Notice) {}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notice)

func (f NotifierFunc) Notify(ctx context.Context, n Notice) { f(ctx, n) }

// LogNotifier writes notices to a logger.
type LogNotifier struct {
	Logger *zap.Logger
}

func (l LogNotifier) Notify(_ context.Context, n Notice) {
	fields := []zap.Field{zap.Int("status", n.Status), zap.String("message", n.Message)}
	switch n.Level {
	case LevelError:
		l.Logger.Error("notice", fields...)
	case LevelWarning:
		l.Logger.Warn("notice", fields...)
	default:
		l.Logger.Info("notice", fields...)
	}
}
