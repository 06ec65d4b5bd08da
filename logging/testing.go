package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

// testAppender writes console-encoded entries through testing.TB.Log so they show up next to
// the test that produced them.
type testAppender struct {
	tb      testing.TB
	encoder zapcore.Encoder
}

// NewTestAppender returns an appender logging to tb in local time.
func NewTestAppender(tb testing.TB) Appender {
	cfg := NewEncoderConfig()
	cfg.LineEnding = "\n"
	return &testAppender{tb: tb, encoder: zapcore.NewConsoleEncoder(cfg)}
}

func (tapp *testAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	tapp.tb.Helper()
	buf, err := tapp.encoder.EncodeEntry(entry, fields)
	if err != nil {
		tapp.tb.Logf("%s\t%s\t(cannot encode fields: %v)", entry.Level.CapitalString(), entry.Message, err)
		return err
	}
	defer buf.Free()
	tapp.tb.Log(strings.TrimSuffix(buf.String(), "\n"))
	return nil
}

func (tapp *testAppender) Sync() error {
	return nil
}
