package creds

import (
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s := NewSQLiteStore(filepath.Join(t.TempDir(), "creds.db"))
	if err := s.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Disconnect(); err != nil {
			t.Errorf("disconnect: %v", err)
		}
	})
	return s
}

func TestSQLiteStoreLookup(t *testing.T) {
	s := openTestStore(t)
	if err := s.AddUser("alice", "pw1", "Alice"); err != nil {
		t.Fatalf("add user: %v", err)
	}

	nick, err := s.LookupNickname("alice", "pw1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if nick != "Alice" {
		t.Fatalf("got nickname %q, want Alice", nick)
	}
}

func TestSQLiteStoreRejectsBadCredentials(t *testing.T) {
	s := openTestStore(t)
	if err := s.AddUser("alice", "pw1", "Alice"); err != nil {
		t.Fatalf("add user: %v", err)
	}

	if _, err := s.LookupNickname("alice", "wrong"); !errors.Is(err, ErrUnknownIdentity) {
		t.Fatalf("wrong password: got %v, want ErrUnknownIdentity", err)
	}
	if _, err := s.LookupNickname("nobody", "pw1"); !errors.Is(err, ErrUnknownIdentity) {
		t.Fatalf("unknown login: got %v, want ErrUnknownIdentity", err)
	}
}

func TestSQLiteStoreReplaceKeepsOneRow(t *testing.T) {
	s := openTestStore(t)
	if err := s.AddUser("alice", "pw1", "Alice"); err != nil {
		t.Fatalf("add user: %v", err)
	}
	if err := s.AddUser("alice", "pw2", "Alice"); err != nil {
		t.Fatalf("replace user: %v", err)
	}

	if _, err := s.LookupNickname("alice", "pw1"); !errors.Is(err, ErrUnknownIdentity) {
		t.Fatalf("old password still accepted: %v", err)
	}
	nick, err := s.LookupNickname("alice", "pw2")
	if err != nil || nick != "Alice" {
		t.Fatalf("new password lookup: %q, %v", nick, err)
	}
}

func TestSQLiteStoreRequiresConnect(t *testing.T) {
	s := NewSQLiteStore(filepath.Join(t.TempDir(), "creds.db"))
	if _, err := s.LookupNickname("alice", "pw1"); err == nil {
		t.Fatal("expected error before Connect")
	}
}
