package utils

import (
	"bytes"
	"context"
	"log"
	"strings"
	"testing"
)

func TestRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	if got := RequestID(ctx, ""); got != "req-1" {
		t.Fatalf("expected id from context, got %q", got)
	}
	if got := RequestID(ctx, "cli-run"); got != "cli-run" {
		t.Fatalf("explicit id must win, got %q", got)
	}
	if got := RequestID(context.Background(), ""); got != "" {
		t.Fatalf("expected empty id, got %q", got)
	}
	if NewRequestID() == NewRequestID() {
		t.Fatalf("request ids must be unique")
	}
}

func TestLogEvent(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(prev)

	LogEvent(" req-9 ", "aggregate", "batch_committed", "inserts=2 updates=1")
	line := buf.String()
	if !strings.Contains(line, "[AGGREGATE] action=batch_committed request_id=req-9 msg=inserts=2 updates=1") {
		t.Fatalf("unexpected log line %q", line)
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" https://a.example ,;\nhttps://b.example,, ")
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Fatalf("unexpected split %q", got)
	}
	if got := SplitList(""); len(got) != 0 {
		t.Fatalf("expected empty list, got %q", got)
	}
}
