package store

import (
	"testing"
	"time"
)

func TestPoolDefaults(t *testing.T) {
	p := Pool{}.withDefaults()
	if p.MaxOpen != 10 {
		t.Errorf("max open = %d, want 10", p.MaxOpen)
	}
	if p.MaxIdle != 5 {
		t.Errorf("max idle = %d, want half of max open", p.MaxIdle)
	}
	if p.ConnLifetime != 30*time.Minute {
		t.Errorf("conn lifetime = %v, want 30m", p.ConnLifetime)
	}
}

func TestPoolExplicitValuesKept(t *testing.T) {
	p := Pool{MaxOpen: 40, MaxIdle: 8, ConnLifetime: time.Hour}.withDefaults()
	if p.MaxOpen != 40 || p.MaxIdle != 8 || p.ConnLifetime != time.Hour {
		t.Errorf("explicit pool changed: %+v", p)
	}
}

func TestPoolIdleClampedToOpen(t *testing.T) {
	p := Pool{MaxOpen: 4, MaxIdle: 20}.withDefaults()
	if p.MaxIdle != 4 {
		t.Errorf("max idle = %d, want clamped to max open 4", p.MaxIdle)
	}
}
