package logger_test

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/mamadbah2/pondwatch/pkg/logger"
)

func TestNew(t *testing.T) {
	log, err := logger.New("warn")
	if err != nil {
		t.Fatal(err)
	}
	if log.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info should be filtered at warn level")
	}
	if !log.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("error should pass at warn level")
	}

	if _, err := logger.New("loud"); err == nil {
		t.Error("unknown level should be rejected")
	}
}

func TestNamedNil(t *testing.T) {
	if logger.Named(nil, "x") == nil {
		t.Error("Named must never return nil")
	}
}
