package server

import (
	"testing"
	"time"
)

func TestRateLimiter_Allow(t *testing.T) {
	limiter := NewRateLimiter(10, time.Second)
	connID := "test-conn-1"

	for i := 0; i < 10; i++ {
		if !limiter.Allow(connID) {
			t.Errorf("request %d should be allowed", i+1)
		}
	}

	if limiter.Allow(connID) {
		t.Error("11th request should be denied")
	}
}

func TestRateLimiter_WindowReset(t *testing.T) {
	limiter := NewRateLimiter(2, 100*time.Millisecond)
	connID := "test-conn-2"

	if !limiter.Allow(connID) || !limiter.Allow(connID) {
		t.Fatal("first two requests should be allowed")
	}
	if limiter.Allow(connID) {
		t.Error("third request should be denied")
	}

	time.Sleep(150 * time.Millisecond)

	if !limiter.Allow(connID) {
		t.Error("request after window reset should be allowed")
	}
}

func TestRateLimiter_PerConnection(t *testing.T) {
	limiter := NewRateLimiter(5, time.Second)
	conn1, conn2 := "conn-1", "conn-2"

	for i := 0; i < 5; i++ {
		limiter.Allow(conn1)
	}
	if limiter.Allow(conn1) {
		t.Error("conn1 should be rate limited")
	}
	for i := 0; i < 5; i++ {
		if !limiter.Allow(conn2) {
			t.Errorf("conn2 request %d should be allowed", i+1)
		}
	}
}

func TestRateLimiter_RemoveConnectionClearsState(t *testing.T) {
	limiter := NewRateLimiter(1, time.Second)
	connID := "conn-3"

	limiter.Allow(connID)
	if limiter.Allow(connID) {
		t.Error("second request should be denied before removal")
	}

	limiter.RemoveConnection(connID)
	if !limiter.Allow(connID) {
		t.Error("request after RemoveConnection should be allowed again")
	}
}

func TestConnectionHealth_InactiveConnections(t *testing.T) {
	h := NewConnectionHealth()
	h.UpdateActivity("stale")
	time.Sleep(20 * time.Millisecond)
	h.UpdateActivity("fresh")

	inactive := h.InactiveConnections(10 * time.Millisecond)
	found := false
	for _, id := range inactive {
		if id == "stale" {
			found = true
		}
		if id == "fresh" {
			t.Error("freshly active connection should not be reported inactive")
		}
	}
	if !found {
		t.Error("connection with no recent activity should be reported inactive")
	}
}

func TestConnectionHealth_RemoveConnection(t *testing.T) {
	h := NewConnectionHealth()
	h.UpdateActivity("conn-1")
	h.RemoveConnection("conn-1")

	for _, id := range h.InactiveConnections(0) {
		if id == "conn-1" {
			t.Error("removed connection should not appear in InactiveConnections")
		}
	}
}
