// Package testutil holds shared helpers for package tests.
package testutil

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mailsweep/mailsweep/internal/logging"
)

// LogCapture is a real logger writing into an in-memory buffer, so tests can
// assert on emitted messages and on secret redaction.
//
// Example:
//
//	capture := testutil.NewLogCapture(t)
//	capture.Logger.Info("key: %s", logging.Secret("password123"))
//	capture.AssertRedacted(t, "password123")
type LogCapture struct {
	Logger *logging.Logger

	buf *syncBuffer
}

// NewLogCapture creates a capture logger with debug output disabled.
func NewLogCapture(t *testing.T) *LogCapture {
	t.Helper()
	return NewLogCaptureWithDebug(t, false)
}

// NewLogCaptureWithDebug creates a capture logger, optionally recording
// debug-level messages.
func NewLogCaptureWithDebug(t *testing.T, debug bool) *LogCapture {
	t.Helper()

	buf := &syncBuffer{}
	return &LogCapture{
		Logger: logging.NewWithWriter(buf, debug, true),
		buf:    buf,
	}
}

// Output returns everything logged so far.
func (c *LogCapture) Output() string {
	return c.buf.String()
}

// Clear resets the captured output.
func (c *LogCapture) Clear() {
	c.buf.Reset()
}

// Lines returns the non-empty output lines.
func (c *LogCapture) Lines() []string {
	var out []string
	for _, line := range strings.Split(c.Output(), "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

// AssertContains asserts that the output contains substr.
func (c *LogCapture) AssertContains(t *testing.T, substr string) {
	t.Helper()
	assert.Contains(t, c.Output(), substr)
}

// AssertNotContains asserts that the output does not contain substr.
func (c *LogCapture) AssertNotContains(t *testing.T, substr string) {
	t.Helper()
	assert.NotContains(t, c.Output(), substr)
}

// AssertRedacted asserts that a secret never reached the output and that the
// redaction marker did.
func (c *LogCapture) AssertRedacted(t *testing.T, secret string) {
	t.Helper()

	output := c.Output()
	assert.NotContains(t, output, secret,
		"secret value must not appear in log output")
	assert.Contains(t, output, "[REDACTED]")
}

// syncBuffer is a goroutine-safe bytes.Buffer.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	b.buf.Reset()
	b.mu.Unlock()
}
