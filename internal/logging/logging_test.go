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

package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New("test", &buf)

	SetLogLevel(LevelWarn)
	defer SetLogLevel(LevelWarn)

	l.Infof("should be dropped")
	assert.Zero(t, buf.Len())

	l.Warnf("kept %d", 1)
	assert.Contains(t, buf.String(), "Warn")
	assert.Contains(t, buf.String(), "kept 1")

	buf.Reset()
	SetLogLevel(LevelTrace)
	l.Tracef("very chatty")
	assert.Contains(t, buf.String(), "Trace")
	assert.Contains(t, buf.String(), "very chatty")
}

func TestSetLogLevelBounds(t *testing.T) {
	SetLogLevel(LevelWarn)
	defer SetLogLevel(LevelWarn)

	// Values above LevelNoPrint are rejected and the level keeps its
	// previous value.
	SetLogLevel(LevelNoPrint + 10)
	assert.Equal(t, LevelWarn, level)

	SetLogLevel(LevelNoPrint)
	assert.Equal(t, LevelNoPrint, level)

	var buf bytes.Buffer
	l := New("quiet", &buf)
	l.Errorf("silenced")
	assert.Zero(t, buf.Len())
}

func TestPrefixCarriesNameAndLocation(t *testing.T) {
	var buf bytes.Buffer
	l := New("mapper", &buf)

	SetLogLevel(LevelInfo)
	defer SetLogLevel(LevelWarn)

	l.Infof("hello")
	line := buf.String()
	assert.Contains(t, line, "mapper")
	assert.Contains(t, line, "logging_test.go:")
	assert.True(t, strings.HasSuffix(strings.TrimRight(line, "\n"), reset))
}

func TestPackageLevelWrappers(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	SetLogLevel(LevelDebug)
	defer SetLogLevel(LevelWarn)

	Debugf("wrapped call")
	line := buf.String()
	assert.Contains(t, line, "Debug")
	assert.Contains(t, line, "wrapped call")
	// Caller attribution must skip the wrapper frame.
	assert.Contains(t, line, "logging_test.go:")
}
