package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T, name string, defaultTTL time.Duration) *RistrettoCache {
	t.Helper()

	c, err := NewRistrettoCache(&RistrettoConfig{
		Name:       name,
		MaxItems:   100,
		DefaultTTL: defaultTTL,
		Logger:     zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestNewRistrettoCache_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     RistrettoConfig
		wantErr string
	}{
		{
			name:    "missing_name",
			cfg:     RistrettoConfig{MaxItems: 10},
			wantErr: "cache name is required",
		},
		{
			name:    "zero_items",
			cfg:     RistrettoConfig{Name: "descriptors"},
			wantErr: "cache descriptors: max items must be positive, got 0",
		},
		{
			name:    "negative_ttl",
			cfg:     RistrettoConfig{Name: "descriptors", MaxItems: 10, DefaultTTL: -time.Second},
			wantErr: "cache descriptors: default ttl must be non-negative, got -1s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			_, err := NewRistrettoCache(&cfg)
			if err == nil {
				t.Fatalf("expected error %q, got nil", tt.wantErr)
			}
			if err.Error() != tt.wantErr {
				t.Errorf("expected error %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestRistrettoCache_Descriptors(t *testing.T) {
	c := newTestCache(t, "descriptors-ops", time.Hour)

	if c.Name() != "descriptors-ops" {
		t.Errorf("expected name descriptors-ops, got %q", c.Name())
	}

	t.Run("set-and-get", func(t *testing.T) {
		key := "oddid:points-home-game-ml-home"

		if !c.Set(key, "moneyline/home", 0) {
			t.Fatal("expected Set to be admitted")
		}
		c.Wait()

		got, found := c.Get(key)
		if !found {
			t.Fatal("expected key to be found")
		}
		if got != "moneyline/home" {
			t.Errorf("expected moneyline/home, got %v", got)
		}
	})

	t.Run("cached-error", func(t *testing.T) {
		parseErr := errors.New("unknown odd id")
		c.Set("oddid:nonsense", parseErr, 0)
		c.Wait()

		got, found := c.Get("oddid:nonsense")
		if !found {
			t.Fatal("expected cached error to be found")
		}
		if err, ok := got.(error); !ok || !errors.Is(err, parseErr) {
			t.Errorf("expected cached parse error, got %v", got)
		}
	})

	t.Run("miss", func(t *testing.T) {
		if _, found := c.Get("oddid:never-seen"); found {
			t.Error("expected miss for unknown key")
		}
	})

	t.Run("delete", func(t *testing.T) {
		key := "oddid:points-all-game-ou-over"
		c.Set(key, "total/over", 0)
		c.Wait()

		if _, found := c.Get(key); !found {
			t.Fatal("expected key before delete")
		}

		c.Delete(key)

		if _, found := c.Get(key); found {
			t.Error("expected key to be deleted")
		}
	})

	t.Run("clear", func(t *testing.T) {
		c.Set("oddid:a", "a", 0)
		c.Set("oddid:b", "b", 0)
		c.Wait()

		_, foundA := c.Get("oddid:a")
		_, foundB := c.Get("oddid:b")
		if !foundA || !foundB {
			t.Skip("ristretto admission dropped a key")
		}

		c.Clear()

		_, foundA = c.Get("oddid:a")
		_, foundB = c.Get("oddid:b")
		if foundA || foundB {
			t.Error("expected all keys to be cleared")
		}
	})
}

func TestRistrettoCache_TTL(t *testing.T) {
	t.Run("explicit-ttl-overrides-default", func(t *testing.T) {
		c := newTestCache(t, "descriptors-explicit-ttl", time.Hour)

		c.Set("oddid:short", "short", 150*time.Millisecond)
		c.Wait()

		if _, found := c.Get("oddid:short"); !found {
			t.Fatal("expected key before expiry")
		}

		time.Sleep(300 * time.Millisecond)

		if _, found := c.Get("oddid:short"); found {
			t.Error("expected key to expire with its own ttl")
		}
	})

	t.Run("default-ttl", func(t *testing.T) {
		c := newTestCache(t, "descriptors-default-ttl", 150*time.Millisecond)

		c.Set("oddid:default", "default", 0)
		c.Wait()

		if _, found := c.Get("oddid:default"); !found {
			t.Fatal("expected key before expiry")
		}

		time.Sleep(300 * time.Millisecond)

		if _, found := c.Get("oddid:default"); found {
			t.Error("expected key to expire with the default ttl")
		}
	})

	t.Run("no-default-keeps-entries", func(t *testing.T) {
		c := newTestCache(t, "descriptors-no-ttl", 0)

		c.Set("oddid:forever", "forever", 0)
		c.Wait()
		time.Sleep(50 * time.Millisecond)

		if _, found := c.Get("oddid:forever"); !found {
			t.Error("expected key without ttl to stay")
		}
	})
}

func TestRistrettoCache_StatsAndMetrics(t *testing.T) {
	const name = "descriptors-stats"
	c := newTestCache(t, name, time.Hour)

	c.Set("oddid:points-away-game-sp-away", "spread/away", 0)
	c.Wait()

	c.Get("oddid:points-away-game-sp-away")
	c.Get("oddid:points-away-game-sp-away")
	c.Get("oddid:missing")

	stats := c.Stats()
	if stats.Hits != 2 {
		t.Errorf("expected 2 hits, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", stats.Misses)
	}
	if stats.HitRatio < 0.66 || stats.HitRatio > 0.67 {
		t.Errorf("expected hit ratio ~0.667, got %f", stats.HitRatio)
	}

	if got := testutil.ToFloat64(CacheHitsTotal.WithLabelValues(name)); got != 2 {
		t.Errorf("expected 2 labeled hits, got %v", got)
	}
	if got := testutil.ToFloat64(CacheMissesTotal.WithLabelValues(name)); got != 1 {
		t.Errorf("expected 1 labeled miss, got %v", got)
	}
	if got := testutil.ToFloat64(CacheSetsTotal.WithLabelValues(name)); got != 1 {
		t.Errorf("expected 1 labeled set, got %v", got)
	}
}
