package services_test

import (
	"context"
	"testing"

	"ticketdesk/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithTicketID(ctx, "13624970")
	ctx = services.WithStage(ctx, "extract")
	ctx = services.WithFile(ctx, "/tmp/incoming/ticket.pdf")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.TicketIDFromContext(ctx); !ok || id != "13624970" {
		t.Fatalf("unexpected ticket id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "extract" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if file, ok := services.FileFromContext(ctx); !ok || file != "/tmp/incoming/ticket.pdf" {
		t.Fatalf("unexpected file: %v %v", file, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithTicketID(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.TicketIDFromContext(ctx); ok {
		t.Fatal("expected no ticket value")
	}
}
