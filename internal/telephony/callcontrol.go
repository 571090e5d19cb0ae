package telephony

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// TwilioControl issues out-of-band call updates through Twilio's REST
// API, addressed by call SID. It implements pipeline.ControlClient.
type TwilioControl struct {
	accountSID string
	authToken  string
	baseURL    string
	http       *http.Client
}

func NewTwilioControl(accountSID, authToken string) *TwilioControl {
	return &TwilioControl{
		accountSID: accountSID,
		authToken:  authToken,
		baseURL:    twilioAPIBase,
		http:       &http.Client{Timeout: 10 * time.Second},
	}
}

// Redirect replaces the live call's TwiML with a dial to phoneNumber,
// handing the caller off to a human.
func (c *TwilioControl) Redirect(ctx context.Context, callSID, phoneNumber string) error {
	form := url.Values{}
	form.Set("Twiml", DialTwiML(phoneNumber))
	return c.updateCall(ctx, callSID, form)
}

// Hangup terminates the live call.
func (c *TwilioControl) Hangup(ctx context.Context, callSID string) error {
	form := url.Values{}
	form.Set("Status", "completed")
	return c.updateCall(ctx, callSID, form)
}

func (c *TwilioControl) updateCall(ctx context.Context, callSID string, form url.Values) error {
	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls/%s.json", c.baseURL, c.accountSID, callSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("telephony: call update request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("telephony: call update: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("telephony: call update %s: status %d: %s", callSID, resp.StatusCode, string(body))
	}
	return nil
}
