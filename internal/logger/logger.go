// Copyright 2024 The mus-fuse Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logger provides the process-wide structured logger. It wraps
// log/slog with two renderings (human-readable text, machine-parseable
// json) and five severities, mirroring the severities used throughout the
// read and mount paths.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

var levelNames = map[slog.Level]string{
	LevelTrace: "TRACE",
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARNING",
	LevelError: "ERROR",
}

var programLevel = new(slog.LevelVar)

var defaultLogger = slog.New(newHandler(os.Stderr, "text", programLevel))

// Init reconfigures the default logger's format ("text" or "json") and
// minimum severity. Unknown formats fall back to text; unknown severities
// fall back to info.
func Init(format, severity string) {
	setLevel(severity)
	defaultLogger = slog.New(newHandler(os.Stderr, format, programLevel))
}

func setLevel(severity string) {
	switch strings.ToLower(severity) {
	case "trace":
		programLevel.Set(LevelTrace)
	case "debug":
		programLevel.Set(LevelDebug)
	case "warning", "warn":
		programLevel.Set(LevelWarn)
	case "error":
		programLevel.Set(LevelError)
	default:
		programLevel.Set(LevelInfo)
	}
}

func Tracef(format string, v ...interface{}) { logf(LevelTrace, format, v...) }
func Debugf(format string, v ...interface{}) { logf(LevelDebug, format, v...) }
func Infof(format string, v ...interface{})  { logf(LevelInfo, format, v...) }
func Warnf(format string, v ...interface{})  { logf(LevelWarn, format, v...) }
func Errorf(format string, v ...interface{}) { logf(LevelError, format, v...) }

func logf(level slog.Level, format string, v ...interface{}) {
	defaultLogger.Log(context.Background(), level, fmt.Sprintf(format, v...))
}

// handler renders records as either:
//
//	text: time="2006/01/02 15:04:05.000000" severity=INFO message="..."
//	json: {"timestamp":{"seconds":...,"nanos":...},"severity":"INFO","message":"..."}
type handler struct {
	w      io.Writer
	format string
	level  *slog.LevelVar
}

func newHandler(w io.Writer, format string, level *slog.LevelVar) *handler {
	return &handler{w: w, format: strings.ToLower(format), level: level}
}

func (h *handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *handler) Handle(_ context.Context, r slog.Record) error {
	sev := levelNames[r.Level]
	if sev == "" {
		sev = r.Level.String()
	}

	var line string
	if h.format == "json" {
		line = fmt.Sprintf(
			"{\"timestamp\":{\"seconds\":%d,\"nanos\":%d},\"severity\":%q,\"message\":%q}\n",
			r.Time.Unix(), r.Time.Nanosecond(), sev, r.Message)
	} else {
		line = fmt.Sprintf("time=%q severity=%s message=%q\n",
			r.Time.Format("2006/01/02 15:04:05.000000"), sev, r.Message)
	}

	_, err := io.WriteString(h.w, line)
	return err
}

func (h *handler) WithAttrs(_ []slog.Attr) slog.Handler { return h }
func (h *handler) WithGroup(_ string) slog.Handler      { return h }
