package logger

import (
	"fmt"
	"io"
	"sync/atomic"

	echo_log "github.com/labstack/gommon/log"
)

// EchoLoggerAdapter adapts Logger to echo.Logger so framework messages land in
// the "api" module with the rest of the application's logs.
//
//	e := echo.New()
//	e.Logger = logger.NewEchoLoggerAdapter(central.Module("api"))
type EchoLoggerAdapter struct {
	logger Logger
	level  atomic.Uint32
}

// NewEchoLoggerAdapter creates an Echo logger adapter.
func NewEchoLoggerAdapter(logger Logger) *EchoLoggerAdapter {
	if logger == nil {
		logger = NewSlogLogger(nil, LogLevelInfo, nil)
	}
	a := &EchoLoggerAdapter{logger: logger}
	a.level.Store(uint32(echo_log.INFO))
	return a
}

// Output returns io.Discard; output is owned by the central logger.
func (a *EchoLoggerAdapter) Output() io.Writer { return io.Discard }

// SetOutput is a no-op.
func (a *EchoLoggerAdapter) SetOutput(io.Writer) {}

// Prefix returns an empty prefix; module scoping identifies the source.
func (a *EchoLoggerAdapter) Prefix() string { return "" }

// SetPrefix is a no-op.
func (a *EchoLoggerAdapter) SetPrefix(string) {}

// Level returns the minimum level forwarded.
func (a *EchoLoggerAdapter) Level() echo_log.Lvl { return echo_log.Lvl(a.level.Load()) }

// SetLevel sets the minimum level forwarded. The central logger's module
// level still applies afterwards.
func (a *EchoLoggerAdapter) SetLevel(v echo_log.Lvl) { a.level.Store(uint32(v)) }

// SetHeader is a no-op.
func (a *EchoLoggerAdapter) SetHeader(string) {}

func (a *EchoLoggerAdapter) emit(lvl echo_log.Lvl, msg string, fields ...Field) {
	if lvl < a.Level() {
		return
	}
	switch lvl {
	case echo_log.DEBUG:
		a.logger.Debug(msg, fields...)
	case echo_log.WARN:
		a.logger.Warn(msg, fields...)
	case echo_log.ERROR:
		a.logger.Error(msg, fields...)
	default:
		a.logger.Info(msg, fields...)
	}
}

func (a *EchoLoggerAdapter) Print(i ...any)                 { a.emit(echo_log.INFO, fmt.Sprint(i...)) }
func (a *EchoLoggerAdapter) Printf(format string, i ...any) { a.emit(echo_log.INFO, fmt.Sprintf(format, i...)) }
func (a *EchoLoggerAdapter) Printj(j echo_log.JSON)         { a.emit(echo_log.INFO, "echo", Any("data", j)) }
func (a *EchoLoggerAdapter) Debug(i ...any)                 { a.emit(echo_log.DEBUG, fmt.Sprint(i...)) }
func (a *EchoLoggerAdapter) Debugf(format string, i ...any) { a.emit(echo_log.DEBUG, fmt.Sprintf(format, i...)) }
func (a *EchoLoggerAdapter) Debugj(j echo_log.JSON)         { a.emit(echo_log.DEBUG, "echo", Any("data", j)) }
func (a *EchoLoggerAdapter) Info(i ...any)                  { a.emit(echo_log.INFO, fmt.Sprint(i...)) }
func (a *EchoLoggerAdapter) Infof(format string, i ...any)  { a.emit(echo_log.INFO, fmt.Sprintf(format, i...)) }
func (a *EchoLoggerAdapter) Infoj(j echo_log.JSON)          { a.emit(echo_log.INFO, "echo", Any("data", j)) }
func (a *EchoLoggerAdapter) Warn(i ...any)                  { a.emit(echo_log.WARN, fmt.Sprint(i...)) }
func (a *EchoLoggerAdapter) Warnf(format string, i ...any)  { a.emit(echo_log.WARN, fmt.Sprintf(format, i...)) }
func (a *EchoLoggerAdapter) Warnj(j echo_log.JSON)          { a.emit(echo_log.WARN, "echo", Any("data", j)) }
func (a *EchoLoggerAdapter) Error(i ...any)                 { a.emit(echo_log.ERROR, fmt.Sprint(i...)) }
func (a *EchoLoggerAdapter) Errorf(format string, i ...any) { a.emit(echo_log.ERROR, fmt.Sprintf(format, i...)) }
func (a *EchoLoggerAdapter) Errorj(j echo_log.JSON)         { a.emit(echo_log.ERROR, "echo", Any("data", j)) }

// Fatal logs at ERROR and panics; echo only calls it on unrecoverable setup errors.
func (a *EchoLoggerAdapter) Fatal(i ...any) { a.fatal(fmt.Sprint(i...)) }

// Fatalf logs at ERROR and panics.
func (a *EchoLoggerAdapter) Fatalf(format string, i ...any) { a.fatal(fmt.Sprintf(format, i...)) }

// Fatalj logs at ERROR and panics.
func (a *EchoLoggerAdapter) Fatalj(j echo_log.JSON) { a.fatal(fmt.Sprint(j)) }

// Panic logs at ERROR and panics.
func (a *EchoLoggerAdapter) Panic(i ...any) { a.fatal(fmt.Sprint(i...)) }

// Panicf logs at ERROR and panics.
func (a *EchoLoggerAdapter) Panicf(format string, i ...any) { a.fatal(fmt.Sprintf(format, i...)) }

// Panicj logs at ERROR and panics.
func (a *EchoLoggerAdapter) Panicj(j echo_log.JSON) { a.fatal(fmt.Sprint(j)) }

func (a *EchoLoggerAdapter) fatal(msg string) {
	a.logger.Error(msg)
	panic("echo: " + msg)
}
