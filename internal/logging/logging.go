// Package logging builds the go-kit logger shared by every component.
package logging

import (
	"fmt"
	"io"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Levels accepted by New.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// ParseLevel maps a level name to a go-kit filter option.
func ParseLevel(name string) (level.Option, error) {
	switch name {
	case LevelDebug:
		return level.AllowDebug(), nil
	case "", LevelInfo:
		return level.AllowInfo(), nil
	case LevelWarn:
		return level.AllowWarn(), nil
	case LevelError:
		return level.AllowError(), nil
	default:
		return nil, fmt.Errorf("unknown log level %q", name)
	}
}

// New returns a logfmt logger writing to w, filtered at lvl and stamped
// with a UTC timestamp and caller.
func New(w io.Writer, lvl string) (log.Logger, error) {
	opt, err := ParseLevel(lvl)
	if err != nil {
		return nil, err
	}
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	logger = level.NewFilter(logger, opt)
	return log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller), nil
}

// NewCounted is New with messages that pass the level filter counted on
// reg. The caller field still points at the logging call site.
func NewCounted(w io.Writer, lvl string, reg prometheus.Registerer) (log.Logger, error) {
	opt, err := ParseLevel(lvl)
	if err != nil {
		return nil, err
	}
	var logger log.Logger = log.NewLogfmtLogger(log.NewSyncWriter(w))
	logger = level.NewFilter(NewCountingLogger(logger, reg), opt)
	return log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller), nil
}

// CountingLogger counts log messages per level in a Prometheus counter.
type CountingLogger struct {
	logger   log.Logger
	messages *prometheus.CounterVec
}

// NewCountingLogger wraps logger and registers log_messages_total on reg.
func NewCountingLogger(logger log.Logger, reg prometheus.Registerer) *CountingLogger {
	messages := promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Namespace: "tpchq5",
		Name:      "log_messages_total",
		Help:      "Total number of log messages.",
	}, []string{"level"})
	for _, v := range []level.Value{level.DebugValue(), level.InfoValue(), level.WarnValue(), level.ErrorValue()} {
		messages.WithLabelValues(v.String())
	}
	return &CountingLogger{logger: logger, messages: messages}
}

// Log forwards kv and increments the counter for its level.
func (c *CountingLogger) Log(kv ...interface{}) error {
	err := c.logger.Log(kv...)
	l := "unknown"
	for i := 1; i < len(kv); i += 2 {
		if v, ok := kv[i].(level.Value); ok {
			l = v.String()
			break
		}
	}
	c.messages.WithLabelValues(l).Inc()
	return err
}
