package logger

import (
	"encoding/json"
	"errors"
	"runtime"
	"testing"

	"github.com/sirupsen/logrus"
)

func init() {
	InitLogger()
}

func TestInitLoggerIsIdempotent(t *testing.T) {
	first := Log
	InitLogger()

	if Log == nil {
		t.Fatal("expected the global logger to be initialized")
	}
	if Log != first {
		t.Fatal("expected repeated initialization to keep the same logger instance")
	}
}

type testMarshaler struct{}

func (tm testMarshaler) MarshalLog() interface{} {
	return "redacted"
}

func TestCloudwatchFormatterOutput(t *testing.T) {
	formatter := NewCloudwatchFormatter()

	entry := Log.WithFields(logrus.Fields{
		"error":  errors.New("boom"),
		"secret": testMarshaler{},
		"count":  3,
	})
	entry.Message = "something happened"
	entry.Level = logrus.ErrorLevel

	pc, _, _, _ := runtime.Caller(0)
	entry.Caller = &runtime.Frame{Func: runtime.FuncForPC(pc)}

	out, err := formatter.Format(entry)
	if err != nil {
		t.Fatal("unexpected error ", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(out, &fields); err != nil {
		t.Fatal("expected JSON output ", err)
	}

	if fields["message"] != "something happened" {
		t.Fatalf("expected the message to be carried, got %v", fields["message"])
	}
	if fields["levelname"] != "error" {
		t.Fatalf("expected the level name, got %v", fields["levelname"])
	}
	if fields["app"] != "chat-connector" {
		t.Fatalf("expected the app field, got %v", fields["app"])
	}
	if fields["error"] != "boom" {
		t.Fatalf("expected the error to be flattened to its message, got %v", fields["error"])
	}
	if fields["secret"] != "redacted" {
		t.Fatalf("expected the marshaler output, got %v", fields["secret"])
	}
}
