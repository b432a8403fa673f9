package instrument

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCorrelationID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.Empty(t, GetCorrelationID(ctx))

	ctx = SetCorrelationID(ctx, "cid-123")
	assert.Equal(t, "cid-123", GetCorrelationID(ctx))
}

func TestMaskAttr(t *testing.T) {
	t.Parallel()

	keys := buildMaskKeys([]string{" Token ", "", "email"})

	tests := []struct {
		name string
		attr slog.Attr
		want string
	}{
		{name: "direct key", attr: slog.String("token", "abc"), want: "***"},
		{name: "case insensitive", attr: slog.String("EMAIL", "a@b.c"), want: "***"},
		{name: "json string", attr: slog.String("body", `{"token":"abc","title":"hi"}`), want: `{"title":"hi","token":"***"}`},
		{name: "untouched", attr: slog.String("title", "hello"), want: "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := maskAttr(tt.attr, keys)
			assert.Equal(t, tt.want, got.Value.String())
		})
	}
}

func TestNewNoop(t *testing.T) {
	t.Parallel()

	ins := NewNoop()
	_, span := ins.Tracer("test").Start(context.Background(), "op")
	span.End()
	assert.NoError(t, ins.Shutdown(context.Background()))
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: " WARN ", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "", want: slog.LevelInfo},
		{in: "verbose", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}
