package garden_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/goliatone/go-garden"
	"github.com/stretchr/testify/assert"
)

func TestLogActivitySink(t *testing.T) {
	var buf bytes.Buffer
	sink := garden.LogActivitySink(garden.NewLogger(&buf, "json", "info"))

	err := sink.Record(context.Background(), garden.ActivityEvent{
		EventType: garden.ActivityEventGardenAdded,
		UserID:    "user-1",
		IP:        "10.0.0.1",
		Metadata:  map[string]any{"plant_id": 42},
	})
	assert.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"event":"garden.plant.added"`)
	assert.Contains(t, out, `"user_id":"user-1"`)
	assert.Contains(t, out, `"plant_id":42`)
}

func TestActivitySinkFunc_Nil(t *testing.T) {
	var f garden.ActivitySinkFunc
	assert.NoError(t, f.Record(context.Background(), garden.ActivityEvent{}))
}

func TestNewLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := garden.NewLogger(&buf, "text", "warn")

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "k=v")
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := garden.NewLogger(&buf, "json", "warning")

	logger.Info("hidden")
	logger.Error("request failed", "error", garden.ErrUserExists, "path", "/register")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"logger":"garden"`)
	assert.Contains(t, out, `"level":"error"`)
	assert.Contains(t, out, `"path":"/register"`)
	assert.Contains(t, out, `"ts":`)
}
