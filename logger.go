package garden

import (
	"io"
	"strings"
	"sync"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
)

// NewLogger returns the root logger writing to w. format is "json",
// "pretty" or "text", level one of trace, debug, info, warn, error.
func NewLogger(w io.Writer, format, level string) *glog.BaseLogger {
	opts := []glog.Option{
		glog.WithName("garden"),
		glog.WithLevel(parseLevel(level)),
		glog.WithWriter(w),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		opts = append(opts, glog.WithLoggerTypeJSON())
	case "pretty":
		opts = append(opts, glog.WithLoggerTypePretty())
	default:
		opts = append(opts, glog.WithLoggerTypeConsole())
	}

	return glog.NewLogger(opts...)
}

func parseLevel(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return glog.Trace
	case "debug":
		return glog.Debug
	case "warn", "warning":
		return glog.Warn
	case "error":
		return glog.Error
	default:
		return glog.Info
	}
}

var rootLogger = sync.OnceValue(func() *glog.BaseLogger {
	return NewLogger(nil, "text", "info")
})

func defaultLogger() Logger {
	return rootLogger().GetLogger("garden")
}

// NopLogger discards everything, handy in tests
func NopLogger() Logger {
	return glog.Nop()
}
