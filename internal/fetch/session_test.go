package fetch

import (
	"context"
	"testing"
	"time"
)

func TestSessionCancelPropagates(t *testing.T) {
	s := NewSession(context.Background(), "area-1")
	if s.AreaID != "area-1" {
		t.Errorf("Expected area-1, got %s", s.AreaID)
	}
	if s.Context().Err() != nil {
		t.Fatal("Fresh session context should be live")
	}

	s.Cancel()
	select {
	case <-s.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("Context not cancelled")
	}
	if s.Context().Err() != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", s.Context().Err())
	}

	// Cancel is idempotent
	s.Cancel()
}

func TestSessionFinishClosesDone(t *testing.T) {
	s := NewSession(context.Background(), "area-1")

	select {
	case <-s.Done():
		t.Fatal("Done closed before Finish")
	default:
	}

	s.Finish()
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed after Finish")
	}

	// A second Finish must not panic
	s.Finish()
}

func TestSessionParentCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	s := NewSession(parent, "area-1")

	cancel()
	select {
	case <-s.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("Parent cancellation did not reach the session")
	}
}
