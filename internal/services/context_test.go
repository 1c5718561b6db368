package services_test

import (
	"context"
	"testing"

	"briefcast/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithEntryID(ctx, 42)
	ctx = services.WithStage(ctx, "transcribe")
	ctx = services.WithTask(ctx, "process")
	ctx = services.WithRunID(ctx, "run-123")

	if id, ok := services.EntryIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected entry id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "transcribe" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if task, ok := services.TaskFromContext(ctx); !ok || task != "process" {
		t.Fatalf("unexpected task: %v %v", task, ok)
	}
	if rid, ok := services.RunIDFromContext(ctx); !ok || rid != "run-123" {
		t.Fatalf("unexpected run id: %v %v", rid, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
}
