package chat

import (
	"testing"
	"time"
)

func ts(day, hour int) time.Time {
	return time.Date(2026, time.March, day, hour, 0, 0, 0, time.UTC)
}

func TestEffectiveTime(t *testing.T) {
	t.Run("prefers last message", func(t *testing.T) {
		conv := Conversation{
			UpdatedAt:   ts(1, 10),
			LastMessage: &Message{CreatedAt: ts(2, 9)},
		}
		if got := conv.EffectiveTime(); !got.Equal(ts(2, 9)) {
			t.Fatalf("EffectiveTime = %v, want %v", got, ts(2, 9))
		}
	})

	t.Run("falls back to updated at", func(t *testing.T) {
		conv := Conversation{UpdatedAt: ts(1, 10)}
		if got := conv.EffectiveTime(); !got.Equal(ts(1, 10)) {
			t.Fatalf("EffectiveTime = %v, want %v", got, ts(1, 10))
		}
	})
}

func TestSortByRecency(t *testing.T) {
	list := []Conversation{
		{ID: "old", UpdatedAt: ts(1, 8)},
		{ID: "newest", LastMessage: &Message{CreatedAt: ts(3, 12)}, UpdatedAt: ts(1, 1)},
		{ID: "middle", LastMessage: &Message{CreatedAt: ts(2, 12)}},
	}
	SortByRecency(list)

	wantOrder := []string{"newest", "middle", "old"}
	for i, want := range wantOrder {
		if list[i].ID != want {
			t.Fatalf("position %d = %q, want %q", i, list[i].ID, want)
		}
	}
	for i := 1; i < len(list); i++ {
		if list[i].EffectiveTime().After(list[i-1].EffectiveTime()) {
			t.Fatalf("list not non-increasing at %d", i)
		}
	}
}

func TestSortMessages(t *testing.T) {
	msgs := []Message{
		{ID: "b", CreatedAt: ts(1, 10)},
		{ID: "a", CreatedAt: ts(1, 10)},
		{ID: "c", CreatedAt: ts(1, 9)},
	}
	SortMessages(msgs)

	wantOrder := []string{"c", "a", "b"}
	for i, want := range wantOrder {
		if msgs[i].ID != want {
			t.Fatalf("position %d = %q, want %q", i, msgs[i].ID, want)
		}
	}
}

func TestGroupMessagesByDay(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if groups := GroupMessagesByDay(nil); len(groups) != 0 {
			t.Fatalf("expected no groups, got %d", len(groups))
		}
	})

	t.Run("contiguous ordered partitions", func(t *testing.T) {
		msgs := []Message{
			{ID: "1", CreatedAt: ts(1, 9)},
			{ID: "2", CreatedAt: ts(1, 18)},
			{ID: "3", CreatedAt: ts(2, 7)},
			{ID: "4", CreatedAt: ts(4, 12)},
		}
		groups := GroupMessagesByDay(msgs)
		if len(groups) != 3 {
			t.Fatalf("expected 3 groups, got %d", len(groups))
		}
		if len(groups[0].Messages) != 2 {
			t.Fatalf("first group should hold 2 messages, got %d", len(groups[0].Messages))
		}
		seen := 0
		for gi, g := range groups {
			if gi > 0 && !groups[gi-1].Day.Before(g.Day) {
				t.Fatalf("day groups out of order at %d", gi)
			}
			for _, m := range g.Messages {
				if m.ID != msgs[seen].ID {
					t.Fatalf("message order broken: got %q want %q", m.ID, msgs[seen].ID)
				}
				day := time.Date(m.CreatedAt.Year(), m.CreatedAt.Month(), m.CreatedAt.Day(), 0, 0, 0, 0, time.UTC)
				if !day.Equal(g.Day) {
					t.Fatalf("message %q filed under wrong day", m.ID)
				}
				seen++
			}
		}
		if seen != len(msgs) {
			t.Fatalf("grouping lost messages: %d of %d", seen, len(msgs))
		}
	})
}
