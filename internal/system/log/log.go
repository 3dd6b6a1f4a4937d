/*
 * Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

// Package log provides the component-scoped structured logger used across the service.
package log

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// LoggerKeyComponentName is the field name carrying the logging component.
const LoggerKeyComponentName = "component"

// LoggerKeyCorrelationID is the field name carrying the request correlation ID.
const LoggerKeyCorrelationID = "correlation_id"

// Field is a single structured logging attribute.
type Field struct {
	Key   string
	Value interface{}
}

// String creates a string field.
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an int field.
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Int64 creates an int64 field.
func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a bool field.
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Any creates a field holding an arbitrary value.
func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Error creates the standard error field.
func Error(err error) Field {
	return Field{Key: logrus.ErrorKey, Value: err}
}

// Logger wraps a logrus entry so callers never touch logrus directly.
type Logger struct {
	entry *logrus.Entry
}

var (
	base     *logrus.Logger
	baseOnce sync.Once
)

func root() *logrus.Logger {
	baseOnce.Do(func() {
		base = logrus.New()
		base.SetFormatter(&logrus.JSONFormatter{})
		base.SetOutput(os.Stdout)
		base.SetLevel(logrus.InfoLevel)
	})
	return base
}

// Init configures the root logger. Unknown levels keep the current level.
func Init(level, format string) {
	l := root()
	if parsed, err := logrus.ParseLevel(level); err == nil {
		l.SetLevel(parsed)
	}
	if strings.EqualFold(format, "text") {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
}

// SetOutput redirects the root logger output.
func SetOutput(w io.Writer) {
	root().SetOutput(w)
}

// AddHook registers a logrus hook on the root logger.
func AddHook(hook logrus.Hook) {
	root().AddHook(hook)
}

// GetLogger returns a logger bound to the root logger.
func GetLogger() *Logger {
	return &Logger{entry: logrus.NewEntry(root())}
}

// GetLevel returns the current root level as a string.
func GetLevel() string {
	return root().GetLevel().String()
}

// With returns a child logger carrying the given fields.
func (l *Logger) With(fields ...Field) *Logger {
	return &Logger{entry: l.entry.WithFields(toLogrus(fields))}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, fields ...Field) {
	l.entry.WithFields(toLogrus(fields)).Debug(msg)
}

// Info logs at info level.
func (l *Logger) Info(msg string, fields ...Field) {
	l.entry.WithFields(toLogrus(fields)).Info(msg)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, fields ...Field) {
	l.entry.WithFields(toLogrus(fields)).Warn(msg)
}

// Error logs at error level.
func (l *Logger) Error(msg string, fields ...Field) {
	l.entry.WithFields(toLogrus(fields)).Error(msg)
}

// Fatal logs at fatal level and exits.
func (l *Logger) Fatal(msg string, fields ...Field) {
	l.entry.WithFields(toLogrus(fields)).Fatal(msg)
}

func toLogrus(fields []Field) logrus.Fields {
	out := make(logrus.Fields, len(fields))
	for _, f := range fields {
		out[f.Key] = f.Value
	}
	return out
}
