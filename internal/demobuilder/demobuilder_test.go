package demobuilder

import (
	"strings"
	"testing"

	"github.com/gocifsd/smbnotifyd/internal/coretypes"
)

func TestBuildNotificationResponse_RegularEvent(t *testing.T) {
	b := New()
	req := &coretypes.NotifyRequest{RequestID: "req-1", WatchPath: `\SHARE`}
	event := &coretypes.ChangeEvent{Change: coretypes.Created, Path: `\SHARE\FILE.TXT`}

	packet, err := b.BuildNotificationResponse(event, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := string(packet)
	if !strings.Contains(got, "req-1") || !strings.Contains(got, `\SHARE\FILE.TXT`) || !strings.Contains(got, "Created") {
		t.Errorf("expected packet to describe the event, got %q", got)
	}
}

func TestBuildNotificationResponse_Enumerate(t *testing.T) {
	b := New()
	req := &coretypes.NotifyRequest{RequestID: "req-2", WatchPath: `\SHARE`}

	packet, err := b.BuildNotificationResponse(nil, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(packet), "ENUMERATE") {
		t.Errorf("expected an ENUMERATE packet for a nil event, got %q", packet)
	}
}

func TestBuildNotificationResponse_Renamed(t *testing.T) {
	b := New()
	req := &coretypes.NotifyRequest{RequestID: "req-3", WatchPath: `\SHARE`}
	event := &coretypes.ChangeEvent{Change: coretypes.Renamed, OldPath: `\SHARE\OLD.TXT`, Path: `\SHARE\NEW.TXT`}

	packet, err := b.BuildNotificationResponse(event, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := string(packet)
	if !strings.Contains(got, "OLD.TXT") || !strings.Contains(got, "NEW.TXT") {
		t.Errorf("expected both the old and new paths in a rename packet, got %q", got)
	}
}
