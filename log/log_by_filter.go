package log

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/exp/slog"
)

// LoggerFilter decides whether a record should be emitted.
type LoggerFilter interface {
	check() bool
}

// EveryN lets every N-th record through.
type EveryN struct {
	N       uint32
	counter uint32
}

func (e *EveryN) check() bool {
	if e == nil || e.N == 0 {
		return true
	}
	c := atomic.AddUint32(&e.counter, 1)
	return c%e.N == 0
}

var _ LoggerFilter = &EveryN{}

// Every lets at most one record through per Interval.
type Every struct {
	Interval time.Duration

	mu   sync.Mutex
	last time.Time
}

func (e *Every) check() bool {
	if e == nil || e.Interval <= 0 {
		return true
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	now := timeNow()
	if !e.last.IsZero() && now.Sub(e.last) < e.Interval {
		return false
	}
	e.last = now
	return true
}

var _ LoggerFilter = &Every{}

type ifCondition struct {
	Condition bool
}

func (i *ifCondition) check() bool {
	return i == nil || i.Condition
}

var _ LoggerFilter = &ifCondition{}

func writeBy(filter LoggerFilter, level slog.Level, msg string, ctx []interface{}) {
	if filter == nil || filter.check() {
		Root().Write(level, msg, ctx...)
	}
}

func TraceBy(filter LoggerFilter, msg string, ctx ...interface{}) {
	writeBy(filter, LevelTrace, msg, ctx)
}

func DebugBy(filter LoggerFilter, msg string, ctx ...interface{}) {
	writeBy(filter, slog.LevelDebug, msg, ctx)
}

func InfoBy(filter LoggerFilter, msg string, ctx ...interface{}) {
	writeBy(filter, slog.LevelInfo, msg, ctx)
}

func WarnBy(filter LoggerFilter, msg string, ctx ...interface{}) {
	writeBy(filter, slog.LevelWarn, msg, ctx)
}

func DebugIf(condition bool, msg string, ctx ...interface{}) {
	writeBy(&ifCondition{condition}, slog.LevelDebug, msg, ctx)
}

func InfoIf(condition bool, msg string, ctx ...interface{}) {
	writeBy(&ifCondition{condition}, slog.LevelInfo, msg, ctx)
}
