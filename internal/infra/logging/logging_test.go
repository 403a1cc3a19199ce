//go:build !integration

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestWith_AttachesContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := WithTraceID(context.Background(), "t-1")
	ctx = WithUserID(ctx, "u-1")
	ctx = WithOrderID(ctx, "o-1")

	l := With(ctx, &base)
	l.Info().Msg("hello")

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	for k, want := range map[string]string{"trace_id": "t-1", "user_id": "u-1", "order_id": "o-1"} {
		if got[k] != want {
			t.Errorf("expected %s=%s, got %v", k, want, got[k])
		}
	}
	if TraceID(ctx) != "t-1" {
		t.Errorf("expected TraceID t-1, got %q", TraceID(ctx))
	}
}

func TestRedact(t *testing.T) {
	if got := Redact("someone@example.com", true); got != "someone@example.com" {
		t.Errorf("dev mode must not redact, got %q", got)
	}
	if got := Redact("someone@example.com", false); got != "some...om" {
		t.Errorf("unexpected redaction %q", got)
	}
	if got := Redact("short", false); got != "***" {
		t.Errorf("unexpected redaction %q", got)
	}
}
