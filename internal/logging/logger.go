package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	crzap "sigs.k8s.io/controller-runtime/pkg/log/zap"
)

// ParseLevel maps a level string onto a zap level. Empty means info.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q (expected debug, info, warn, or error)", level)
	}
}

// New returns a logr logger writing to w (stderr when nil). Debug level
// switches to the human-readable development encoder and enables V(1) output.
func New(level string, w io.Writer) (logr.Logger, error) {
	zapLevel, err := ParseLevel(level)
	if err != nil {
		return logr.Logger{}, err
	}
	if w == nil {
		w = os.Stderr
	}
	atomic := zap.NewAtomicLevelAt(zapLevel)
	opts := crzap.Options{
		Development: zapLevel == zapcore.DebugLevel,
		Level:       &atomic,
		DestWriter:  w,
	}
	return crzap.New(crzap.UseFlagOptions(&opts)).WithName("stackguard"), nil
}
