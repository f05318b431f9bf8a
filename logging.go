package amqp

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Logger is the narrow diagnostic-logging seam the engine writes
// connection/channel lifecycle events through: handshake progress,
// channel recycles, heartbeat misses, consumer callback panics.
// It is not a feature the engine designs (spec.md scopes logging
// policy out), just the ambient mechanism every repo in the corpus
// that speaks RabbitMQ reaches for instead of fmt.Println.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

type zerologLogger struct {
	log zerolog.Logger
}

var (
	defaultLoggerOnce sync.Once
	defaultLoggerInst Logger
)

func defaultLogger() Logger {
	defaultLoggerOnce.Do(func() {
		defaultLoggerInst = &zerologLogger{
			log: zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
				With().Timestamp().Str("component", "amqp").Logger(),
		}
	})
	return defaultLoggerInst
}

func (z *zerologLogger) event(e *zerolog.Event, msg string, kv ...any) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, kv[i+1])
	}
	e.Msg(msg)
}

func (z *zerologLogger) Debug(msg string, kv ...any) { z.event(z.log.Debug(), msg, kv...) }
func (z *zerologLogger) Info(msg string, kv ...any)  { z.event(z.log.Info(), msg, kv...) }
func (z *zerologLogger) Warn(msg string, kv ...any)  { z.event(z.log.Warn(), msg, kv...) }
func (z *zerologLogger) Error(msg string, kv ...any) { z.event(z.log.Error(), msg, kv...) }

// NoopLogger discards everything; useful in tests that want silence.
type NoopLogger struct{}

func (NoopLogger) Debug(string, ...any) {}
func (NoopLogger) Info(string, ...any)  {}
func (NoopLogger) Warn(string, ...any)  {}
func (NoopLogger) Error(string, ...any) {}
