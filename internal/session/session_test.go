package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/vthunder/nova/internal/pending"
)

func TestContextHistoryRing(t *testing.T) {
	var c Context
	for i := 0; i < 7; i++ {
		c.Append(Message{Role: "user", Content: fmt.Sprintf("u%d", i)}, Message{Role: "assistant", Content: fmt.Sprintf("a%d", i)})
	}
	h := c.History()
	if len(h) != HistoryLimit {
		t.Fatalf("len = %d, want %d", len(h), HistoryLimit)
	}
	if h[0].Content != "u2" || h[len(h)-1].Content != "a6" {
		t.Errorf("oldest evicted first: got %s .. %s", h[0].Content, h[len(h)-1].Content)
	}

	h[0].Content = "mutated"
	if c.History()[0].Content != "u2" {
		t.Error("History should return a copy")
	}
}

func TestRemember(t *testing.T) {
	var c Context
	if c.LastMentioned != nil {
		t.Fatal("expected no mention")
	}
	c.Remember("event", "Dentist", "2026-10-20")
	c.Remember("task", "Pay rent", "")
	if c.LastMentioned.Kind != "task" || c.LastMentioned.Name != "Pay rent" {
		t.Errorf("last writer should win: %+v", c.LastMentioned)
	}
}

func TestStoreGet(t *testing.T) {
	st := NewStore(30 * time.Minute)
	clock := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return clock }

	s := st.Get("")
	if s.ID == "" {
		t.Fatal("expected a generated ID")
	}
	s.Pending = pending.ConfirmBulkDelete{Count: 3}

	if again := st.Get(s.ID); again != s {
		t.Error("expected the same session back")
	}

	clock = clock.Add(20 * time.Minute)
	if st.Get(s.ID).Pending == nil {
		t.Error("session within TTL should keep its pending action")
	}

	clock = clock.Add(31 * time.Minute)
	fresh := st.Get(s.ID)
	if fresh == s || fresh.Pending != nil || fresh.ID != s.ID {
		t.Errorf("expired session should be replaced with a fresh one under the same ID")
	}
}

func TestStoreSweep(t *testing.T) {
	st := NewStore(time.Minute)
	clock := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return clock }

	st.Get("a")
	st.Get("b")
	clock = clock.Add(2 * time.Minute)
	st.Get("c")

	if n := st.Sweep(); n != 2 {
		t.Errorf("Sweep = %d, want 2", n)
	}
	if st.Len() != 1 {
		t.Errorf("Len = %d, want 1", st.Len())
	}
	st.Delete("c")
	if st.Len() != 0 {
		t.Error("Delete did not remove the session")
	}
}

func TestStoreNoTTL(t *testing.T) {
	st := NewStore(0)
	clock := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return clock }
	s := st.Get("x")
	clock = clock.AddDate(1, 0, 0)
	if st.Get("x") != s {
		t.Error("sessions should never expire without a TTL")
	}
}
