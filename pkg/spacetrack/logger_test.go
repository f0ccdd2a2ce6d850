package spacetrack_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fivetwenty-io/spacetrack/pkg/spacetrack"
)

func TestNewTextLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := spacetrack.NewTextLogger(&buf, slog.LevelWarn)

	logger.Debug("hidden", nil)
	logger.Info("hidden", nil)
	assert.Empty(t, buf.String())

	logger.Warn("Unknown predicate type", map[string]interface{}{"type": "geometry", "class": "gp"})
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), `msg="Unknown predicate type" class=gp type=geometry`)

	buf.Reset()
	logger.Error("failed", nil)
	assert.Contains(t, buf.String(), "level=ERROR")
}

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	var _ spacetrack.Logger = spacetrack.DefaultLogger()

	var _ spacetrack.Logger = spacetrack.NopLogger{}
}
