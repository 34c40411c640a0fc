package server

import (
	"testing"

	"igoserver/internal/session"
)

func TestConnectionRegistry_AddSnapshotRemove(t *testing.T) {
	r := newConnectionRegistry()
	conn := session.NewConnection("conn-1", nil)
	r.add("conn-1", conn, nil)

	snap := r.snapshot()
	if len(snap) != 1 || snap["conn-1"] != conn {
		t.Fatalf("expected snapshot to contain conn-1, got %v", snap)
	}

	r.remove("conn-1")
	if len(r.snapshot()) != 0 {
		t.Fatal("expected registry to be empty after remove")
	}
}

func TestConnectionRegistry_SockLooksUpByID(t *testing.T) {
	r := newConnectionRegistry()
	if r.sock("missing") != nil {
		t.Fatal("expected nil sock for an unknown connection ID")
	}

	conn := session.NewConnection("conn-2", nil)
	r.add("conn-2", conn, nil)
	if r.sock("conn-2") != nil {
		t.Fatal("expected the nil sock stored at add time to come back as nil")
	}
}

func TestConnectionRegistry_SnapshotIsACopy(t *testing.T) {
	r := newConnectionRegistry()
	r.add("conn-3", session.NewConnection("conn-3", nil), nil)

	snap := r.snapshot()
	delete(snap, "conn-3")

	if len(r.snapshot()) != 1 {
		t.Fatal("mutating a snapshot must not affect the registry's own state")
	}
}
