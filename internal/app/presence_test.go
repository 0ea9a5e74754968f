package app

import (
	"testing"
	"time"

	"github.com/skobkin/presencego/internal/config"
)

func TestActivityFromConfigEmpty(t *testing.T) {
	if a := ActivityFromConfig(config.PresenceConfig{}, time.Now()); a != nil {
		t.Fatalf("expected nil activity, got %+v", a)
	}
}

func TestActivityFromConfig(t *testing.T) {
	start := time.Unix(1700000000, 0)
	a := ActivityFromConfig(config.PresenceConfig{
		State:       " In a match ",
		Details:     "Ranked",
		LargeImage:  "map_dust",
		ShowElapsed: true,
	}, start)

	if a == nil {
		t.Fatalf("expected activity")
	}
	if a.State != "In a match" || a.Details != "Ranked" {
		t.Fatalf("unexpected text fields %+v", a)
	}
	if a.Assets == nil || a.Assets.LargeImage != "map_dust" {
		t.Fatalf("unexpected assets %+v", a.Assets)
	}
	if a.Timestamps == nil || a.Timestamps.Start != 1700000000 || a.Timestamps.End != 0 {
		t.Fatalf("unexpected timestamps %+v", a.Timestamps)
	}
}

func TestActivityFromConfigWithoutAssets(t *testing.T) {
	a := ActivityFromConfig(config.PresenceConfig{State: "Idle"}, time.Now())
	if a == nil || a.Assets != nil || a.Timestamps != nil {
		t.Fatalf("expected bare activity, got %+v", a)
	}
}
