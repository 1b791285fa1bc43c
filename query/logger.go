package query

import "github.com/golang/glog"

// Logger receives the diagnostics of a Cache.
type Logger interface {
	Infof(format string, args ...any)
	Warningf(format string, args ...any)
}

type glogLogger struct{}

func (glogLogger) Infof(format string, args ...any) {
	glog.V(1).Infof(format, args...)
}

func (glogLogger) Warningf(format string, args ...any) {
	glog.Warningf(format, args...)
}
