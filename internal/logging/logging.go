// Package logging configures logrus for the service and carries request
// scoped loggers through context.
package logging

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Init configures the standard logrus logger and returns an entry tagged with
// the service name.  Unknown levels fall back to info.
func Init(level, format string) *logrus.Entry {
	return Configure(logrus.StandardLogger(), os.Stdout, level, format)
}

// Configure applies level and format to logger, writing to out.
func Configure(logger *logrus.Logger, out io.Writer, level, format string) *logrus.Entry {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	logger.SetOutput(out)
	if strings.EqualFold(format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger.WithField("service", "ticket-reservation")
}

type ctxKey struct{}

// ToContext stores entry in ctx.
func ToContext(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, ctxKey{}, entry)
}

// FromContext returns the entry stored by ToContext, or one built on the
// standard logger.
func FromContext(ctx context.Context) *logrus.Entry {
	if entry, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok {
		return entry
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
