package telephony

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTwilioControlRedirect(t *testing.T) {
	var gotPath, gotTwiml string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "AC123" || pass != "token" {
			t.Errorf("basic auth = %q/%q", user, pass)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotPath = r.URL.Path
		gotTwiml = r.PostForm.Get("Twiml")
		w.Write([]byte(`{"sid":"CA1"}`))
	}))
	defer srv.Close()

	ctl := NewTwilioControl("AC123", "token")
	ctl.baseURL = srv.URL

	if err := ctl.Redirect(context.Background(), "CA1", "+15550123"); err != nil {
		t.Fatalf("Redirect: %v", err)
	}
	if gotPath != "/Accounts/AC123/Calls/CA1.json" {
		t.Fatalf("path = %q", gotPath)
	}
	if !strings.Contains(gotTwiml, "<Dial>+15550123</Dial>") {
		t.Fatalf("twiml = %q", gotTwiml)
	}
}

func TestTwilioControlHangup(t *testing.T) {
	var gotStatus string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotStatus = r.PostForm.Get("Status")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ctl := NewTwilioControl("AC123", "token")
	ctl.baseURL = srv.URL

	if err := ctl.Hangup(context.Background(), "CA1"); err != nil {
		t.Fatalf("Hangup: %v", err)
	}
	if gotStatus != "completed" {
		t.Fatalf("Status = %q", gotStatus)
	}
}

func TestTwilioControlErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	ctl := NewTwilioControl("AC123", "token")
	ctl.baseURL = srv.URL

	err := ctl.Hangup(context.Background(), "CA404")
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("err = %v", err)
	}
}
