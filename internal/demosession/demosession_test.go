package demosession

import "testing"

func TestSendAsyncResponse_RecordsWhenConnected(t *testing.T) {
	s := New("sess-1")

	sent, err := s.SendAsyncResponse([]byte("hello"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sent {
		t.Fatal("expected sent=true on a connected session")
	}
	if got := s.Sent(); len(got) != 1 || string(got[0]) != "hello" {
		t.Errorf("expected one recorded packet \"hello\", got %v", got)
	}
}

func TestSendAsyncResponse_FailsAfterDisconnect(t *testing.T) {
	s := New("sess-1")
	s.Disconnect()

	sent, err := s.SendAsyncResponse([]byte("hello"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent {
		t.Fatal("expected sent=false on a disconnected session")
	}
	if got := s.Sent(); len(got) != 0 {
		t.Errorf("expected no recorded packets, got %v", got)
	}
}

func TestID(t *testing.T) {
	s := New("sess-42")
	if s.ID() != "sess-42" {
		t.Errorf("expected ID sess-42, got %s", s.ID())
	}
}
