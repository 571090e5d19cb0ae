package utils

import "testing"

func TestCallSlotScriptsCompile(t *testing.T) {
	// Compile-time smoke test: scripts should be initialized.
	if callSlotAcquireScript == nil || callSlotReleaseScript == nil {
		t.Fatalf("expected scripts to be initialized")
	}
}

func TestCallSlotKey(t *testing.T) {
	if got := callSlotKey("hotel-1"); got != "calls:active:hotel-1" {
		t.Fatalf("unexpected key: %q", got)
	}
}
