// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package log defines the structured logging interface used throughout the
// kernel, so that the oracle, the dispatch loop, and each service can be
// tested against a no-op implementation without pulling in a real logging
// backend.
package log

import "github.com/sirupsen/logrus"

// Logger is a structured logger. ctx is an alternating key/value list,
// following the same convention the kernel uses everywhere a message needs
// attached fields (e.g. "process", pid, "op", opName).
type Logger interface {
	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	With(ctx ...interface{}) Logger
}

// NewLogrusLogger returns a Logger backed by logrus.
func NewLogrusLogger(base *logrus.Logger) Logger {
	if base == nil {
		base = logrus.StandardLogger()
	}
	return &logrusLogger{entry: logrus.NewEntry(base)}
}

type logrusLogger struct {
	entry *logrus.Entry
}

func fields(ctx []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(ctx)/2)
	for i := 0; i+1 < len(ctx); i += 2 {
		key, ok := ctx[i].(string)
		if !ok {
			continue
		}
		f[key] = ctx[i+1]
	}
	return f
}

func (l *logrusLogger) Trace(msg string, ctx ...interface{}) {
	l.entry.WithFields(fields(ctx)).Trace(msg)
}

func (l *logrusLogger) Debug(msg string, ctx ...interface{}) {
	l.entry.WithFields(fields(ctx)).Debug(msg)
}

func (l *logrusLogger) Info(msg string, ctx ...interface{}) {
	l.entry.WithFields(fields(ctx)).Info(msg)
}

func (l *logrusLogger) Warn(msg string, ctx ...interface{}) {
	l.entry.WithFields(fields(ctx)).Warn(msg)
}

func (l *logrusLogger) Error(msg string, ctx ...interface{}) {
	l.entry.WithFields(fields(ctx)).Error(msg)
}

func (l *logrusLogger) With(ctx ...interface{}) Logger {
	return &logrusLogger{entry: l.entry.WithFields(fields(ctx))}
}

// noOpLogger discards everything; used in tests and before logging is wired.
type noOpLogger struct{}

// NewNoOpLogger returns a Logger that does nothing.
func NewNoOpLogger() Logger { return noOpLogger{} }

func (noOpLogger) Trace(string, ...interface{}) {}
func (noOpLogger) Debug(string, ...interface{}) {}
func (noOpLogger) Info(string, ...interface{})  {}
func (noOpLogger) Warn(string, ...interface{})  {}
func (noOpLogger) Error(string, ...interface{}) {}
func (l noOpLogger) With(...interface{}) Logger { return l }
