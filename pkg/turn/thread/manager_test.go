package thread

import (
	"context"
	"errors"
	"testing"

	"github.com/rhuss/bruecke/pkg/turn"
)

func TestManager_StartAndGetSession(t *testing.T) {
	mgr, err := NewManager(&scriptedProvider{}, nil, nil, Config{})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	sess, err := mgr.StartSession(context.Background(), turn.SessionOptions{Model: "gpt-test"})
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if sess.ID() == "" {
		t.Fatal("session id is empty")
	}
	if _, err := turn.ParseSessionID(sess.ID()); err != nil {
		t.Errorf("session id %q is not canonical: %v", sess.ID(), err)
	}

	got, err := mgr.GetSession(context.Background(), sess.ID())
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.ID() != sess.ID() {
		t.Errorf("GetSession id = %q, want %q", got.ID(), sess.ID())
	}
}

func TestManager_UnknownSession(t *testing.T) {
	mgr, err := NewManager(&scriptedProvider{}, nil, nil, Config{})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	_, err = mgr.GetSession(context.Background(), turn.NewSessionID())
	if !errors.Is(err, turn.ErrSessionNotFound) {
		t.Errorf("GetSession error = %v, want ErrSessionNotFound", err)
	}
}

func TestManager_NilProvider(t *testing.T) {
	if _, err := NewManager(nil, nil, nil, Config{}); err == nil {
		t.Error("expected error for nil provider")
	}
}

func TestManager_SessionEviction(t *testing.T) {
	mgr, err := NewManager(&scriptedProvider{}, nil, nil, Config{MaxSessions: 2})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	s1, _ := mgr.StartSession(context.Background(), turn.SessionOptions{})
	s2, _ := mgr.StartSession(context.Background(), turn.SessionOptions{})
	s3, _ := mgr.StartSession(context.Background(), turn.SessionOptions{})

	if _, err := mgr.GetSession(context.Background(), s1.ID()); !errors.Is(err, turn.ErrSessionNotFound) {
		t.Errorf("oldest session error = %v, want ErrSessionNotFound", err)
	}
	if _, err := mgr.GetSession(context.Background(), s2.ID()); err != nil {
		t.Errorf("GetSession(s2) failed: %v", err)
	}
	if _, err := mgr.GetSession(context.Background(), s3.ID()); err != nil {
		t.Errorf("GetSession(s3) failed: %v", err)
	}
}

func TestManager_GetRefreshesRecency(t *testing.T) {
	mgr, err := NewManager(&scriptedProvider{}, nil, nil, Config{MaxSessions: 2})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	s1, _ := mgr.StartSession(context.Background(), turn.SessionOptions{})
	s2, _ := mgr.StartSession(context.Background(), turn.SessionOptions{})

	// Touch s1 so s2 becomes the eviction candidate.
	if _, err := mgr.GetSession(context.Background(), s1.ID()); err != nil {
		t.Fatalf("GetSession(s1) failed: %v", err)
	}

	if _, err := mgr.StartSession(context.Background(), turn.SessionOptions{}); err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	if _, err := mgr.GetSession(context.Background(), s1.ID()); err != nil {
		t.Errorf("GetSession(s1) failed after refresh: %v", err)
	}
	if _, err := mgr.GetSession(context.Background(), s2.ID()); !errors.Is(err, turn.ErrSessionNotFound) {
		t.Errorf("GetSession(s2) error = %v, want ErrSessionNotFound", err)
	}
}
