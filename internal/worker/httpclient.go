package worker

import (
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// leveledLogger routes retryablehttp's logging into zap.
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, keysAndValues...)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.s.Warnw(msg, keysAndValues...)
}

// newHTTPClient returns a retrying client whose per-request deadline comes from ctx.
func newHTTPClient(retries int, logger *zap.Logger) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = retries
	client.Logger = leveledLogger{s: logger.Sugar()}
	client.HTTPClient.Timeout = 0
	return client
}
