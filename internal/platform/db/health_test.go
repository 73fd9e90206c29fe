package db

import (
	"testing"
)

func TestPoolStats_HealthyFlag(t *testing.T) {
	stats := &PoolStats{TotalConns: 10, IdleConns: 5, MaxConns: 20, Healthy: true}
	if !stats.Healthy {
		t.Error("expected Healthy to be true")
	}

	empty := &PoolStats{TotalConns: 0, MaxConns: 20, Healthy: false}
	if empty.Healthy {
		t.Error("expected Healthy to be false when TotalConns is 0")
	}
}
