package network

import (
	"math/rand"
	"testing"

	"github.com/automoto/kringsringen-sync/shared/netcomponents"
)

func TestJitterBufferOrdering(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	b := NewJitterBuffer[int](30)

	for i := 0; i < 200; i++ {
		b.Push(float64(rng.Intn(1000)), i)

		entries := b.Entries()
		if len(entries) > 30 {
			t.Fatalf("len = %d after %d pushes, want <= 30", len(entries), i+1)
		}
		for j := 1; j < len(entries); j++ {
			if entries[j-1].TS > entries[j].TS {
				t.Fatalf("entries not sorted after push %d: %v", i, entries)
			}
		}
	}
}

func TestJitterBufferEvictsOldest(t *testing.T) {
	b := NewJitterBuffer[string](3)
	b.Push(30, "c")
	b.Push(10, "a")
	b.Push(20, "b")
	b.Push(40, "d")

	entries := b.Entries()
	if len(entries) != 3 || entries[0].State != "b" || entries[2].State != "d" {
		t.Fatalf("entries = %+v, want b c d", entries)
	}
}

func TestJitterBufferSample(t *testing.T) {
	b := NewJitterBuffer[string](30)
	if _, ok := b.Sample(10); ok {
		t.Fatalf("empty buffer returned a sample")
	}

	b.Push(100, "a")
	b.Push(200, "b")
	b.Push(200, "b2")
	b.Push(300, "c")

	tests := []struct {
		name       string
		target     float64
		prev, next string
		factor     float64
	}{
		{"before oldest", 50, "a", "a", 0},
		{"at oldest", 100, "a", "a", 0},
		{"between", 150, "a", "b", 0.5},
		{"quarter", 225, "b2", "c", 0.25},
		{"at newest", 300, "c", "c", 0},
		{"after newest", 1000, "c", "c", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := b.Sample(tt.target)
			if !ok {
				t.Fatalf("no sample")
			}
			if s.Prev.State != tt.prev || s.Next.State != tt.next || s.Factor != tt.factor {
				t.Fatalf("Sample(%v) = %s/%s/%v, want %s/%s/%v",
					tt.target, s.Prev.State, s.Next.State, s.Factor, tt.prev, tt.next, tt.factor)
			}
		})
	}
}

func TestJitterBufferFactorBounds(t *testing.T) {
	b := NewJitterBuffer[netcomponents.EnemySnapshot](30)
	b.Push(0, netcomponents.EnemySnapshot{ID: "e", X: 0, Y: 0})
	b.Push(100, netcomponents.EnemySnapshot{ID: "e", X: 100, Y: 50})

	for target := 0.5; target < 100; target += 7.5 {
		s, _ := b.Sample(target)
		if s.Factor < 0 || s.Factor > 1 {
			t.Fatalf("factor %v out of range at %v", s.Factor, target)
		}
	}

	start := Interpolate(Sample[netcomponents.EnemySnapshot]{Prev: b.Entries()[0], Next: b.Entries()[1], Factor: 0}, 200)
	end := Interpolate(Sample[netcomponents.EnemySnapshot]{Prev: b.Entries()[0], Next: b.Entries()[1], Factor: 1}, 200)
	if start.X != 0 || start.Y != 0 || end.X != 100 || end.Y != 50 {
		t.Fatalf("endpoints = (%v,%v)/(%v,%v), want (0,0)/(100,50)", start.X, start.Y, end.X, end.Y)
	}
}

func TestJitterBufferNewestAndClear(t *testing.T) {
	b := NewJitterBuffer[int](5)
	if _, ok := b.Newest(); ok {
		t.Fatalf("empty buffer has a newest entry")
	}
	b.Push(5, 1)
	b.Push(1, 2)
	if e, _ := b.Newest(); e.TS != 5 || e.State != 1 {
		t.Fatalf("Newest = %+v, want ts 5", e)
	}
	b.Clear()
	if b.Len() != 0 {
		t.Fatalf("Len after Clear = %d", b.Len())
	}
}
