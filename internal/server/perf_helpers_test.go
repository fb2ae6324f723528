package server

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"docstore/internal/models"
)

// newPerfEnv returns a server environment holding seedCount documents, each
// with a small text original.
func newPerfEnv(tb testing.TB, seedCount int) testEnv {
	tb.Helper()
	env := newTestEnv(tb, nil, Options{})
	if err := seedPerfDocuments(context.Background(), env, seedCount); err != nil {
		tb.Fatalf("seed documents: %v", err)
	}
	return env
}

func seedPerfDocuments(ctx context.Context, env testEnv, count int) error {
	for i := 0; i < count; i++ {
		doc := models.NewDocument(fmt.Sprintf("perf document %05d", i))
		if err := env.store.CreateDocument(ctx, &doc); err != nil {
			return fmt.Errorf("create document %d: %w", i, err)
		}
		if _, _, err := env.content.LoadInitialContent(ctx, doc.ID, perfPayload(i), "notes.txt"); err != nil {
			return fmt.Errorf("load content %d: %w", i, err)
		}
	}
	return nil
}

func perfPayload(n int) *bytes.Reader {
	return bytes.NewReader([]byte(strings.Repeat(fmt.Sprintf("line %d of a perf document\n", n), 64)))
}

func newPerfDocument(tb testing.TB, env testEnv, n int) models.Document {
	tb.Helper()
	doc := models.NewDocument(fmt.Sprintf("perf upload %d", n))
	if err := env.store.CreateDocument(context.Background(), &doc); err != nil {
		tb.Fatalf("create document: %v", err)
	}
	return doc
}

func assertBudget(t *testing.T, name string, elapsed time.Duration, ops int, maxPerOp time.Duration) {
	t.Helper()
	if ops <= 0 {
		t.Fatalf("%s: invalid op count %d", name, ops)
	}
	perOp := elapsed / time.Duration(ops)
	t.Logf("%s baseline: total=%s ops=%d per_op=%s budget=%s", name, elapsed, ops, perOp, maxPerOp)
	if perOp > maxPerOp {
		t.Fatalf("%s regression: per_op=%s exceeds budget=%s", name, perOp, maxPerOp)
	}
}

func envInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func envDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err == nil && parsed > 0 {
		return parsed
	}
	if millis, err := strconv.Atoi(value); err == nil && millis > 0 {
		return time.Duration(millis) * time.Millisecond
	}
	fmt.Fprintf(os.Stderr, "warning: invalid duration for %s=%q, using default %s\n", key, value, def)
	return def
}
