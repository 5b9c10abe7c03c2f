package models

import (
	"testing"
	"time"
)

func TestApplyStatusStampsFirstPublishOnly(t *testing.T) {
	t.Parallel()

	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	later := first.Add(48 * time.Hour)

	n := Note{Status: StatusDraft}
	ApplyStatus(&n.Status, &n.PublishedAt, StatusPublished, first)
	if n.Status != StatusPublished {
		t.Fatalf("status = %q, want published", n.Status)
	}
	if n.PublishedAt == nil || !n.PublishedAt.Equal(first) {
		t.Fatalf("publishedAt = %v, want %v", n.PublishedAt, first)
	}

	ApplyStatus(&n.Status, &n.PublishedAt, StatusDraft, later)
	ApplyStatus(&n.Status, &n.PublishedAt, StatusPublished, later)
	if !n.PublishedAt.Equal(first) {
		t.Fatalf("publishedAt = %v after republish, want original %v", n.PublishedAt, first)
	}
}

func TestApplyStatusEmptyIsNoop(t *testing.T) {
	t.Parallel()

	l := Lesson{Status: StatusDraft}
	ApplyStatus(&l.Status, &l.PublishedAt, "", time.Now())
	if l.Status != StatusDraft || l.PublishedAt != nil {
		t.Fatalf("got status=%q publishedAt=%v, want unchanged draft", l.Status, l.PublishedAt)
	}
}
