package logger

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTestLoggerKeepsPrefixAcrossWith(t *testing.T) {
	l := NewTestLogger(t)
	l.With("pid", 1234).Info("attached", "module", "client.dll")
	l.Warn("plain")

	got := l.Entries()
	require.Len(t, got, 2)
	require.Equal(t, []interface{}{"pid", 1234, "module", "client.dll"}, got[0].Args)
	require.Equal(t, "WARN", got[1].Level)
	require.Empty(t, got[1].Args)
}

func TestEntryStringFormatsPairs(t *testing.T) {
	e := Entry{Level: "INFO", Message: "dumped", Args: []interface{}{"lines", 3, "dangling"}}
	require.Contains(t, e.String(), "[INFO] dumped lines=3 dangling")
}

func TestTestLoggerIsSafeForConcurrentUse(t *testing.T) {
	l := NewTestLogger(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			l.Debug("tick", "goroutine", id)
		}(i)
	}
	wg.Wait()

	require.Len(t, l.Entries(), 10)
}

func TestWriterLoggerHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf, false)

	l.Debug("hidden")
	l.With("pid", 42).Info("shown", "classes", 7)

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "shown")
	require.Contains(t, out, "pid=42")
	require.Contains(t, out, "classes=7")
}
