package models

import (
	"testing"
	"time"
)

func TestTriggerStateForSymbol(t *testing.T) {
	tests := []struct {
		symbol string
		want   TriggerState
	}{
		{StateWaiting, TriggerStateNormal},
		{StateAcquired, TriggerStateNormal},
		{StatePaused, TriggerStatePaused},
		{StatePausedBlocked, TriggerStatePaused},
		{StateComplete, TriggerStateComplete},
		{StateError, TriggerStateError},
		{StateBlocked, TriggerStateBlocked},
		{StateDeleted, TriggerStateNone},
		{"", TriggerStateNone},
		{"something-else", TriggerStateNormal},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			if got := TriggerStateForSymbol(tt.symbol); got != tt.want {
				t.Errorf("TriggerStateForSymbol(%q) = %v, want %v", tt.symbol, got, tt.want)
			}
		})
	}
}

func TestLockExpiry(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	timeout := 10 * time.Minute

	tests := []struct {
		name     string
		lockTime time.Time
		want     bool
	}{
		{"fresh lock", now.Add(-time.Minute), false},
		{"exactly at timeout", now.Add(-timeout), false},
		{"just past timeout", now.Add(-timeout - time.Millisecond), true},
		{"very old", now.Add(-24 * time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lock := Lock{Group: "g", Name: "n", InstanceID: "node-1", LockTime: tt.lockTime}
			if got := lock.IsExpired(now, timeout); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}
