package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"neurostate/internal/domain"
)

func TestMemoryProfileRepository(t *testing.T) {
	repo := NewMemoryProfileRepository()
	ctx := context.Background()

	if _, err := repo.GetByUserID(ctx, "u1"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	rec := ProfileRecord{UserID: "u1", Segment: domain.SegmentADHD, UpdatedAt: time.Now().UTC()}
	if err := repo.Upsert(ctx, rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	rec.Segment = domain.SegmentAutism
	if err := repo.Upsert(ctx, rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err := repo.GetByUserID(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Segment != domain.SegmentAutism {
		t.Fatalf("expected last write to win, got %s", got.Segment)
	}
}
