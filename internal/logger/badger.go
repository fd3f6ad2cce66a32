package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// BadgerLogger adapts a zap logger to badger.Logger.
// Badger messages carry their own trailing newline, which is trimmed.
type BadgerLogger struct {
	l *zap.SugaredLogger
}

// NewBadgerLogger wraps l for use as badger.Options.Logger.
func NewBadgerLogger(l *zap.Logger) *BadgerLogger {
	return &BadgerLogger{l: l.Named("badger").Sugar()}
}

func (b *BadgerLogger) Errorf(format string, args ...any) {
	b.l.Error(trim(format, args))
}

func (b *BadgerLogger) Warningf(format string, args ...any) {
	b.l.Warn(trim(format, args))
}

func (b *BadgerLogger) Infof(format string, args ...any) {
	b.l.Info(trim(format, args))
}

func (b *BadgerLogger) Debugf(format string, args ...any) {
	b.l.Debug(trim(format, args))
}

func trim(format string, args []any) string {
	return strings.TrimRight(fmt.Sprintf(format, args...), "\n")
}
