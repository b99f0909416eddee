package events

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type closingSink struct {
	Recorder
	closed int
	err    error
}

func (s *closingSink) Close() error {
	s.closed++
	return s.err
}

func TestHubFansOutInOrder(t *testing.T) {
	var order []string
	first := SinkFunc(func(Event) { order = append(order, "first") })
	second := SinkFunc(func(Event) { order = append(order, "second") })

	hub := NewHub(first, nil, second)
	hub.Emit(Event{RunID: "run", Status: StatusInfo})

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestHubStampsTime(t *testing.T) {
	rec := &Recorder{}
	hub := NewHub(rec)
	hub.Emit(Event{Status: StatusInfo})

	events := rec.Events()
	require.Len(t, events, 1)
	assert.False(t, events[0].Time.IsZero())
}

func TestHubSubscribe(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe()

	hub.Emit(Event{RunID: "a", Status: StatusStarted})

	select {
	case e := <-ch:
		assert.Equal(t, "a", e.RunID)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	hub.Unsubscribe(ch)
	_, open := <-ch
	assert.False(t, open)
}

func TestHubCloseClosesSinks(t *testing.T) {
	ok := &closingSink{}
	failing := &closingSink{err: errors.New("flush failed")}
	hub := NewHub(ok, failing)
	ch := hub.Subscribe()

	err := hub.Close()
	assert.EqualError(t, err, "flush failed")
	assert.Equal(t, 1, ok.closed)
	assert.Equal(t, 1, failing.closed)

	_, open := <-ch
	assert.False(t, open)

	require.NoError(t, hub.Close())
	hub.Emit(Event{Status: StatusInfo})
	assert.Empty(t, ok.Events())
}

func TestReporter(t *testing.T) {
	rec := &Recorder{}
	r := NewReporter(NewHub(rec))
	require.NotEmpty(t, r.RunID())

	r.Started(1, "navigate")
	r.Passed(1, "navigate", time.Second)
	r.Started(2, "wait")
	r.Failed(2, "wait", time.Second, errors.New("timed out"))
	r.Info("done")

	events := rec.Events()
	require.Len(t, events, 5)
	for _, e := range events {
		assert.Equal(t, r.RunID(), e.RunID)
	}
	assert.Equal(t, "timed out", events[3].Error)
	assert.Equal(t, []string{"navigate", "wait"}, rec.Steps(StatusStarted))
	assert.Equal(t, []string{"navigate"}, rec.Steps(StatusPassed))
	assert.Equal(t, []string{"wait"}, rec.Steps(StatusFailed))
}

func TestReporterWithoutEmitter(t *testing.T) {
	var nilReporter *Reporter
	assert.NotPanics(t, func() {
		nilReporter.Started(1, "navigate")
		NewReporter(nil).Info("ignored")
	})
}

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := NewLogSink(zap.New(core))
	r := NewReporterWithID("run-1", NewHub(sink))

	r.Started(3, "screenshot")
	r.Failed(3, "screenshot", 0, errors.New("disk full"))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "step started", entries[0].Message)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "disk full", entries[1].ContextMap()["error"])
	assert.Equal(t, "run-1", entries[1].ContextMap()["run_id"])
}
