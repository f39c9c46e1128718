/*
 * Copyright 2025 SREDiag Authors
 * Copyright 2023 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package logging provides the leveled logger shared by the region
// packages. Output is colored per level and carries the caller location.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/valyala/bytebufferpool"
)

// Logger writes leveled, timestamped lines to out.
type Logger struct {
	name      string
	out       io.Writer
	callDepth int
}

var (
	std     = &Logger{"", os.Stdout, 3}
	wrapped = &Logger{"", os.Stdout, 4}

	level     int
	debugMode = false

	magenta = string([]byte{27, 91, 57, 53, 109}) // Trace
	green   = string([]byte{27, 91, 57, 50, 109}) // Debug
	blue    = string([]byte{27, 91, 57, 52, 109}) // Info
	yellow  = string([]byte{27, 91, 57, 51, 109}) // Warn
	red     = string([]byte{27, 91, 57, 49, 109}) // Error
	reset   = string([]byte{27, 91, 48, 109})

	colors = []string{
		magenta,
		green,
		blue,
		yellow,
		red,
	}

	levelName = []string{
		"Trace",
		"Debug",
		"Info",
		"Warn",
		"Error",
	}
)

// Log levels, ascending. LevelNoPrint suppresses all output.
const (
	LevelTrace = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelNoPrint
)

func init() {
	level = LevelWarn
	if os.Getenv("SHMREGION_LOG_LEVEL") != "" {
		if n, err := strconv.Atoi(os.Getenv("SHMREGION_LOG_LEVEL")); err == nil {
			if n <= LevelNoPrint {
				level = n
			}
		}
	}

	if os.Getenv("SHMREGION_DEBUG_MODE") != "" {
		debugMode = true
	}
}

// SetLogLevel used to change the logger's level and the default level is Warning.
// The process env `SHMREGION_LOG_LEVEL` also could set log level
func SetLogLevel(l int) {
	if l <= LevelNoPrint {
		level = l
	}
}

// DebugMode reports whether `SHMREGION_DEBUG_MODE` was set in the process env.
// Packages use it to gate expensive diagnostics like mapping dumps.
func DebugMode() bool {
	return debugMode
}

// Default returns the process-wide logger.
func Default() *Logger {
	return std
}

// New returns a named Logger writing to out, or os.Stdout when out is nil.
func New(name string, out io.Writer) *Logger {
	if out == nil {
		out = os.Stdout
	}
	return &Logger{
		name:      name,
		out:       out,
		callDepth: 3,
	}
}

func (l *Logger) Errorf(format string, a ...interface{}) {
	if level > LevelError {
		return
	}
	if _, err := fmt.Fprintf(l.out, l.prefix(LevelError)+format+reset+"\n", a...); err != nil {
		fmt.Fprintf(os.Stderr, "logger errorf failed: %v\n", err)
	}
}

func (l *Logger) Error(v interface{}) {
	if level > LevelError {
		return
	}
	if _, err := fmt.Fprintln(l.out, l.prefix(LevelError), v, reset); err != nil {
		fmt.Fprintf(os.Stderr, "logger error failed: %v\n", err)
	}
}

func (l *Logger) Warnf(format string, a ...interface{}) {
	if level > LevelWarn {
		return
	}
	if _, err := fmt.Fprintf(l.out, l.prefix(LevelWarn)+format+reset+"\n", a...); err != nil {
		fmt.Fprintf(os.Stderr, "logger warnf failed: %v\n", err)
	}
}

func (l *Logger) Infof(format string, a ...interface{}) {
	if level > LevelInfo {
		return
	}
	if _, err := fmt.Fprintf(l.out, l.prefix(LevelInfo)+format+reset+"\n", a...); err != nil {
		fmt.Fprintf(os.Stderr, "logger infof failed: %v\n", err)
	}
}

func (l *Logger) Info(v interface{}) {
	if level > LevelInfo {
		return
	}
	if _, err := fmt.Fprintln(l.out, l.prefix(LevelInfo), v, reset); err != nil {
		fmt.Fprintf(os.Stderr, "logger info failed: %v\n", err)
	}
}

func (l *Logger) Debugf(format string, a ...interface{}) {
	if level > LevelDebug {
		return
	}
	if _, err := fmt.Fprintf(l.out, l.prefix(LevelDebug)+format+reset+"\n", a...); err != nil {
		fmt.Fprintf(os.Stderr, "logger debugf failed: %v\n", err)
	}
}

func (l *Logger) Tracef(format string, a ...interface{}) {
	if level > LevelTrace {
		return
	}
	if _, err := fmt.Fprintf(l.out, l.prefix(LevelTrace)+format+reset+"\n", a...); err != nil {
		fmt.Fprintf(os.Stderr, "logger tracef failed: %v\n", err)
	}
}

func (l *Logger) prefix(lvl int) string {
	buf := bytebufferpool.Get()
	_, _ = buf.WriteString(colors[lvl])
	_, _ = buf.WriteString(levelName[lvl])
	_ = buf.WriteByte(' ')
	_, _ = buf.WriteString(time.Now().Format("2006-01-02 15:04:05.999999"))
	_ = buf.WriteByte(' ')
	_, _ = buf.WriteString(l.location())
	_ = buf.WriteByte(' ')
	_, _ = buf.WriteString(l.name)
	_ = buf.WriteByte(' ')
	s := buf.String()
	bytebufferpool.Put(buf)
	return s
}

func (l *Logger) location() string {
	_, file, line, ok := runtime.Caller(l.callDepth)
	if !ok {
		file = "???"
		line = 0
	}
	file = filepath.Base(file)
	return file + ":" + strconv.Itoa(line)
}

// Errorf logs to the default logger at Error level.
func Errorf(format string, a ...interface{}) {
	wrapped.Errorf(format, a...)
}

// Warnf logs to the default logger at Warn level.
func Warnf(format string, a ...interface{}) {
	wrapped.Warnf(format, a...)
}

// Infof logs to the default logger at Info level.
func Infof(format string, a ...interface{}) {
	wrapped.Infof(format, a...)
}

// Debugf logs to the default logger at Debug level.
func Debugf(format string, a ...interface{}) {
	wrapped.Debugf(format, a...)
}

// Tracef logs to the default logger at Trace level.
func Tracef(format string, a ...interface{}) {
	wrapped.Tracef(format, a...)
}

// SetOutput redirects the default loggers, mainly for tests.
func SetOutput(out io.Writer) {
	if out == nil {
		out = os.Stdout
	}
	std.out = out
	wrapped.out = out
}
