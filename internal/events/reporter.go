package events

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Reporter emits the events of one run.
type Reporter struct {
	runID string
	out   Emitter
	now   func() time.Time
}

// NewReporter binds a reporter to a fresh run ID. A nil emitter discards events.
func NewReporter(out Emitter) *Reporter {
	return NewReporterWithID(uuid.New().String(), out)
}

// NewReporterWithID binds a reporter to runID.
func NewReporterWithID(runID string, out Emitter) *Reporter {
	return &Reporter{runID: runID, out: out, now: time.Now}
}

// RunID returns the ID stamped on every event.
func (r *Reporter) RunID() string {
	return r.runID
}

// Started reports that a step began.
func (r *Reporter) Started(step int, name string) {
	r.emit(Event{Step: step, Name: name, Status: StatusStarted})
}

// Passed reports that a step completed.
func (r *Reporter) Passed(step int, name string, took time.Duration) {
	r.emit(Event{Step: step, Name: name, Status: StatusPassed, Duration: took})
}

// Failed reports that a step failed with err.
func (r *Reporter) Failed(step int, name string, took time.Duration, err error) {
	e := Event{Step: step, Name: name, Status: StatusFailed, Duration: took}
	if err != nil {
		e.Error = err.Error()
	}
	r.emit(e)
}

// Info reports a free-form message.
func (r *Reporter) Info(msg string) {
	r.emit(Event{Status: StatusInfo, Message: msg})
}

func (r *Reporter) emit(e Event) {
	if r == nil || r.out == nil {
		return
	}
	e.RunID = r.runID
	e.Time = r.now()
	r.out.Emit(e)
}

// LogSink writes events as structured log lines.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a sink logging through logger.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.Named("events")}
}

// Handle implements Sink.
func (s *LogSink) Handle(e Event) {
	fields := []zap.Field{zap.String("run_id", e.RunID)}
	if e.Step > 0 {
		fields = append(fields, zap.Int("step", e.Step), zap.String("name", e.Name))
	}
	if e.Duration > 0 {
		fields = append(fields, zap.Duration("took", e.Duration))
	}

	switch e.Status {
	case StatusStarted:
		s.logger.Info("step started", fields...)
	case StatusPassed:
		s.logger.Info("step passed", fields...)
	case StatusFailed:
		s.logger.Error("step failed", append(fields, zap.String("error", e.Error))...)
	default:
		s.logger.Info(e.Message, fields...)
	}
}
