package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceHandler(t *testing.T) {
	tests := []struct {
		name       string
		minLevel   slog.Level
		logAt      slog.Level
		wantSource bool
	}{
		{"info below warn threshold", slog.LevelWarn, slog.LevelInfo, false},
		{"warn at threshold", slog.LevelWarn, slog.LevelWarn, true},
		{"error above threshold", slog.LevelWarn, slog.LevelError, true},
		{"debug threshold shows info", slog.LevelDebug, slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			base := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
			l := slog.New(newSourceHandler(base, tt.minLevel))

			l.Log(context.Background(), tt.logAt, "plan imported", "diary_number", "HEL 2024-1")

			out := buf.String()
			assert.Contains(t, out, "diary_number=")
			assert.Equal(t, tt.wantSource, bytes.Contains(buf.Bytes(), []byte("source=")), out)
		})
	}
}

func TestSourceHandler_KeepsAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewTextHandler(&buf, nil)
	l := slog.New(newSourceHandler(base, slog.LevelError)).With("family", "traffic_sign").WithGroup("row")

	l.Info("matched", "real_id", "r1")

	out := buf.String()
	assert.Contains(t, out, "family=traffic_sign")
	assert.Contains(t, out, "row.real_id=r1")
	assert.NotContains(t, out, "source=")
}

func TestSourceHandler_RespectsBaseLevel(t *testing.T) {
	base := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelInfo})
	h := newSourceHandler(base, slog.LevelError)

	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
}
