package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"lsexport/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{
			name: "valid config with info level",
			cfg: &config.LoggingConfig{
				Level: "info",
			},
			wantErr: false,
		},
		{
			name: "valid config with debug level",
			cfg: &config.LoggingConfig{
				Level: "debug",
			},
			wantErr: false,
		},
		{
			name: "invalid log level",
			cfg: &config.LoggingConfig{
				Level: "invalid",
			},
			wantErr: true,
		},
		{
			name: "config with file output",
			cfg: &config.LoggingConfig{
				Level: "info",
				File:  filepath.Join(os.TempDir(), "lsexport-test.log"),
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && logger == nil {
				t.Error("New() returned nil logger")
			}

			if tt.cfg.File != "" {
				os.Remove(tt.cfg.File)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"DEBUG", zerolog.DebugLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
		{"warn", zerolog.WarnLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"fatal", zerolog.FatalLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"invalid", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseLogLevel() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if level != tt.expected {
				t.Errorf("parseLogLevel() = %v, want %v", level, tt.expected)
			}
		})
	}
}

func newBufferLogger(buf *bytes.Buffer) *zerologLogger {
	zlog := zerolog.New(buf).With().Timestamp().Logger()
	return &zerologLogger{
		logger: &zlog,
		fields: make(map[string]interface{}),
	}
}

func TestLoggerMethods(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	logger := newBufferLogger(&buf)

	t.Run("Debug", func(t *testing.T) {
		buf.Reset()
		logger.Debug("debug message")
		if !strings.Contains(buf.String(), "debug message") {
			t.Error("Debug message not found in output")
		}
	})

	t.Run("Info", func(t *testing.T) {
		buf.Reset()
		logger.Info("info message")
		if !strings.Contains(buf.String(), "info message") {
			t.Error("Info message not found in output")
		}
	})

	t.Run("Warn", func(t *testing.T) {
		buf.Reset()
		logger.Warn("warn message")
		if !strings.Contains(buf.String(), "warn message") {
			t.Error("Warn message not found in output")
		}
	})

	t.Run("Error", func(t *testing.T) {
		buf.Reset()
		logger.Error("error message")
		if !strings.Contains(buf.String(), "error message") {
			t.Error("Error message not found in output")
		}
	})
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	zlog := zerolog.New(&buf).With().Timestamp().Logger().Level(zerolog.WarnLevel)
	logger := &zerologLogger{
		logger: &zlog,
		fields: make(map[string]interface{}),
	}

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	output := buf.String()
	if strings.Contains(output, "debug message") {
		t.Error("Debug message should be filtered at warn level")
	}
	if strings.Contains(output, "info message") {
		t.Error("Info message should be filtered at warn level")
	}
	if !strings.Contains(output, "warn message") {
		t.Error("Warn message not found in output")
	}
	if !strings.Contains(output, "error message") {
		t.Error("Error message not found in output")
	}
}

func TestWithField(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	newLogger := logger.WithField("endpoint", "outlets")
	newLogger.Info("test message")

	output := buf.String()
	if !strings.Contains(output, "test message") {
		t.Error("Message not found in output")
	}
	if !strings.Contains(output, `"endpoint":"outlets"`) {
		t.Error("Field not found in output")
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	fields := map[string]interface{}{
		"endpoint": "sales",
		"pages":    42,
		"resumed":  true,
	}

	newLogger := logger.WithFields(fields)
	newLogger.Info("test message")

	output := buf.String()
	if !strings.Contains(output, "test message") {
		t.Error("Message not found in output")
	}
	if !strings.Contains(output, `"endpoint":"sales"`) {
		t.Error("String field not found in output")
	}
	if !strings.Contains(output, `"pages":42`) {
		t.Error("Int field not found in output")
	}
	if !strings.Contains(output, `"resumed":true`) {
		t.Error("Bool field not found in output")
	}
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	logger.WithField("endpoint", "outlets").Info("child message")

	buf.Reset()
	logger.Info("parent message")
	if strings.Contains(buf.String(), "outlets") {
		t.Error("Parent logger must not inherit child fields")
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	logger1 := logger.WithError(nil)
	if logger1 != Logger(logger) {
		t.Error("WithError(nil) should return the same logger")
	}

	testErr := &testError{msg: "connection reset"}
	logger2 := logger.WithError(testErr)
	logger2.Error("fetch failed")

	output := buf.String()
	if !strings.Contains(output, "fetch failed") {
		t.Error("Message not found in output")
	}
	if !strings.Contains(output, "connection reset") {
		t.Error("Error message not found in output")
	}
}

func TestStructuredLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	fields := map[string]interface{}{
		"endpoint": "products",
		"cursor":   "3",
		"records":  10,
	}

	logger.InfoWithFields("page exported", fields)

	output := buf.String()
	if !strings.Contains(output, "page exported") {
		t.Error("Message not found in output")
	}
	if !strings.Contains(output, `"endpoint":"products"`) {
		t.Error("Endpoint field not found in output")
	}
	if !strings.Contains(output, `"cursor":"3"`) {
		t.Error("Cursor field not found in output")
	}
	if !strings.Contains(output, `"records":10`) {
		t.Error("Records field not found in output")
	}
}

func TestFieldChaining(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	logger.
		WithField("field1", "value1").
		WithField("field2", "value2").
		WithFields(map[string]interface{}{
			"field3": "value3",
			"field4": 4,
		}).
		Info("chained fields")

	output := buf.String()
	if !strings.Contains(output, "chained fields") {
		t.Error("Message not found in output")
	}
	for _, want := range []string{`"field1":"value1"`, `"field2":"value2"`, `"field3":"value3"`, `"field4":4`} {
		if !strings.Contains(output, want) {
			t.Errorf("Field %s not found in output", want)
		}
	}
}

func TestGlobalLogger(t *testing.T) {
	original := GetLogger()
	defer SetLogger(original)

	captured := NewTestLogger()
	SetLogger(captured)

	if GetLogger() != Logger(captured) {
		t.Error("GetLogger() did not return the logger installed with SetLogger()")
	}

	GetLogger().Info("session started")
	if !captured.HasMessage("session started") {
		t.Error("Message logged through the global logger was not captured")
	}
}

func TestTestLoggerCapture(t *testing.T) {
	captured := NewTestLogger()

	captured.Info("plain message")
	captured.WarnWithFields("slow page", map[string]interface{}{"endpoint": "sales"})
	captured.WithField("endpoint", "outlets").Error("fetch failed")

	messages := captured.Messages()
	if len(messages) != 3 {
		t.Fatalf("Messages() = %d entries, want 3", len(messages))
	}

	warns := captured.MessagesByLevel("WARN")
	if len(warns) != 1 {
		t.Fatalf("MessagesByLevel(WARN) = %d entries, want 1", len(warns))
	}
	if warns[0].Fields["endpoint"] != "sales" {
		t.Errorf("WARN fields = %v, want endpoint=sales", warns[0].Fields)
	}

	errors := captured.MessagesByLevel("ERROR")
	if len(errors) != 1 {
		t.Fatalf("MessagesByLevel(ERROR) = %d entries, want 1", len(errors))
	}
	if errors[0].Fields["endpoint"] != "outlets" {
		t.Errorf("ERROR fields = %v, want endpoint=outlets from WithField", errors[0].Fields)
	}

	if !captured.HasMessage("plain message") {
		t.Error("HasMessage missed a logged message")
	}
	if captured.HasMessage("never logged") {
		t.Error("HasMessage matched a message that was never logged")
	}
}

// Helper error type for testing
type testError struct {
	msg string
}

func (e *testError) Error() string {
	return e.msg
}
