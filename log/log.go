// Package log wraps zap as the structured logger threaded through the
// Scheduler (plan/run_id/block lifecycle lines) and handed to block authors
// via BlockContext.Logger().
package log

/*
   Copyright 2018 Bruno Moura <brunotm@gmail.com>

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is handed to the Scheduler and to block authors through
// BlockContext.Logger(). It carries whatever structured context New was
// given (plan, run_id, block, ...) on every line.
type Logger interface {
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
}

var (
	cfg  zap.Config
	base *zap.SugaredLogger
)

func init() {
	cfg = zap.NewProductionConfig()
	cfg.EncoderConfig = zap.NewProductionEncoderConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Sampling = nil

	root, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	base = root.Sugar()
}

// New returns a Logger carrying the given structured context, e.g.
// log.New("plan", planName, "run_id", runID).
func New(keysAndValues ...interface{}) Logger {
	return base.With(keysAndValues...)
}

// Level names the four levels SetLevel accepts.
type Level int

const (
	// Debug enables every line, including the per-block lifecycle logs.
	Debug Level = iota
	// Info is the default level.
	Info
	// Warn suppresses Debugw and Infow lines.
	Warn
	// Error suppresses everything but Errorw lines.
	Error
)

// SetLevel sets the minimum level emitted by every Logger returned by New,
// including ones already constructed (they share the package's zap.Config).
func SetLevel(l Level) {
	switch l {
	case Debug:
		cfg.Level.SetLevel(zap.DebugLevel)
	case Warn:
		cfg.Level.SetLevel(zap.WarnLevel)
	case Error:
		cfg.Level.SetLevel(zap.ErrorLevel)
	default:
		cfg.Level.SetLevel(zap.InfoLevel)
	}
}
