package telephony

import (
	"strings"
	"testing"
)

func TestConnectStreamTwiML(t *testing.T) {
	out := ConnectStreamTwiML("wss://voice.example.com/ws/call?from=%2B15550100&to=%2B15550200", "+15550100", "+15550200")

	if !strings.HasPrefix(out, xmlHeader) {
		t.Fatalf("missing xml header: %q", out)
	}
	for _, want := range []string{
		"<Connect>",
		`<Stream url="wss://voice.example.com/ws/call?from=%2B15550100&amp;to=%2B15550200">`,
		`<Parameter name="from" value="+15550100">`,
		`<Parameter name="to" value="+15550200">`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestRejectTwiML(t *testing.T) {
	out := RejectTwiML("rejected")
	if !strings.Contains(out, `<Reject reason="rejected">`) {
		t.Fatalf("got %q", out)
	}
}

func TestSayHangupTwiML(t *testing.T) {
	out := SayHangupTwiML("We cannot take your call.")
	if !strings.Contains(out, "<Say>We cannot take your call.</Say>") {
		t.Fatalf("got %q", out)
	}
	if !strings.Contains(out, "<Hangup>") {
		t.Fatalf("missing hangup: %q", out)
	}
	sayIdx := strings.Index(out, "<Say>")
	hangupIdx := strings.Index(out, "<Hangup>")
	if sayIdx > hangupIdx {
		t.Fatal("Say must precede Hangup")
	}
}

func TestDialTwiML(t *testing.T) {
	out := DialTwiML("+15550123")
	if !strings.Contains(out, "<Dial>+15550123</Dial>") {
		t.Fatalf("got %q", out)
	}
}
