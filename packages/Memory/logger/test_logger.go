package logger

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

// TestLogger keeps entries in memory and only prints them if the test fails.
type TestLogger struct {
	t      testing.TB
	prefix []interface{}
	sink   *entries
}

type entries struct {
	mu     sync.Mutex
	buffer []Entry
}

type Entry struct {
	Level   string
	Message string
	Args    []interface{}
	Time    time.Time
}

var _ Logger = (*TestLogger)(nil)

func NewTestLogger(t testing.TB) *TestLogger {
	l := &TestLogger{t: t, sink: &entries{}}
	t.Cleanup(l.flushIfFailed)
	return l
}

func (l *TestLogger) With(args ...interface{}) Logger {
	prefix := append(append([]interface{}{}, l.prefix...), args...)
	return &TestLogger{t: l.t, prefix: prefix, sink: l.sink}
}

func (l *TestLogger) Info(msg string, args ...interface{})  { l.add("INFO", msg, args) }
func (l *TestLogger) Debug(msg string, args ...interface{}) { l.add("DEBU", msg, args) }
func (l *TestLogger) Warn(msg string, args ...interface{})  { l.add("WARN", msg, args) }
func (l *TestLogger) Error(msg string, args ...interface{}) { l.add("ERRO", msg, args) }

// Entries returns a copy of everything logged so far.
func (l *TestLogger) Entries() []Entry {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	return append([]Entry(nil), l.sink.buffer...)
}

func (l *TestLogger) add(level, msg string, args []interface{}) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	l.sink.buffer = append(l.sink.buffer, Entry{
		Level:   level,
		Message: msg,
		Args:    append(append([]interface{}{}, l.prefix...), args...),
		Time:    time.Now(),
	})
}

func (e Entry) String() string {
	msg := fmt.Sprintf("[%s] [%s] %s", e.Time.Format("15:04:05.000"), e.Level, e.Message)
	var parts []string
	for i := 0; i < len(e.Args); i += 2 {
		if i+1 < len(e.Args) {
			parts = append(parts, fmt.Sprintf("%v=%v", e.Args[i], e.Args[i+1]))
		} else {
			parts = append(parts, fmt.Sprintf("%v", e.Args[i]))
		}
	}
	if len(parts) > 0 {
		msg += " " + strings.Join(parts, " ")
	}
	return msg
}

func (l *TestLogger) flushIfFailed() {
	if !l.t.Failed() {
		return
	}
	for _, e := range l.Entries() {
		l.t.Log(e.String())
	}
}
