package points

import (
	"testing"
	"time"

	"github.com/mfeldt/regbank/internal/testutil/testlog"
)

func TestPublishAndGet(t *testing.T) {
	testlog.Start(t)
	s := NewStore()

	s.Publish(Value{Name: "pump.speed", Kind: "uint16", Num: 1450, Text: "1450"})
	v, ok := s.Get("pump.speed")
	if !ok || v.Num != 1450 {
		t.Fatalf("get: ok=%v v=%+v", ok, v)
	}
	if v.Updated.IsZero() {
		t.Fatalf("publish must stamp Updated")
	}

	if _, ok := s.Get("pump.missing"); ok {
		t.Fatalf("missing point returned ok=true")
	}
}

func TestPublishKeepsExplicitTimestamp(t *testing.T) {
	testlog.Start(t)
	s := NewStore()

	when := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s.Publish(Value{Name: "x", Updated: when})
	v, _ := s.Get("x")
	if !v.Updated.Equal(when) {
		t.Fatalf("updated: got=%v want=%v", v.Updated, when)
	}
}

func TestPublishReplacesLatest(t *testing.T) {
	testlog.Start(t)
	s := NewStore()

	s.Publish(Value{Name: "p", Num: 1})
	s.Publish(Value{Name: "p", Num: 2})
	v, _ := s.Get("p")
	if v.Num != 2 {
		t.Fatalf("latest value: %v", v.Num)
	}
	if len(s.List()) != 1 {
		t.Fatalf("republish must not duplicate entries")
	}
}

func TestListSortedByName(t *testing.T) {
	testlog.Start(t)
	s := NewStore()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		s.Publish(Value{Name: name})
	}

	list := s.List()
	want := []string{"alpha", "mid", "zeta"}
	for i, v := range list {
		if v.Name != want[i] {
			t.Fatalf("list not sorted: got=%q at %d want=%q", v.Name, i, want[i])
		}
	}
}
