// Package telephony bridges Twilio to the call engine: the inbound-call
// webhook that answers with media-stream TwiML, the websocket endpoint
// that carries call audio, and the REST client for out-of-band call
// control.
package telephony

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"hotelvoice/internal/numbers"
	"hotelvoice/pkg/logger"
)

const twimlContentType = "application/xml"

const unavailableMessage = "We're sorry, but we're unable to connect your call at this time. Please try again later."

const busyMessage = "All of our lines are currently busy. Please call back in a few minutes."

// WebhookHandler answers Twilio's inbound-call webhook. Route resolution
// happens here, before any media flows: unknown or misconfigured numbers
// are rejected in TwiML and never reach the stream endpoint.
//
// streamURL gets the Host header of the inbound webhook request so the
// TwiML points Twilio back at a reachable host when no public host is
// configured.
type WebhookHandler struct {
	resolver  *numbers.Resolver
	slots     SlotLimiter
	streamURL func(fallbackHost string) string
	log       *slog.Logger
}

func NewWebhookHandler(resolver *numbers.Resolver, slots SlotLimiter, streamURL func(fallbackHost string) string, log *slog.Logger) *WebhookHandler {
	return &WebhookHandler{resolver: resolver, slots: slots, streamURL: streamURL, log: log}
}

// IncomingCall handles POST /webhooks/twilio/voice. Twilio sends form
// fields CallSid, From, To; the response TwiML opens a bidirectional
// media stream carrying the numbers as both query and custom parameters.
func (h *WebhookHandler) IncomingCall(c *gin.Context) {
	log := logger.FromGin(c)

	callSID := c.PostForm("CallSid")
	from := c.PostForm("From")
	to := c.PostForm("To")
	if to == "" {
		// Twilio may use GET for webhook verification.
		callSID = c.Query("CallSid")
		from = c.Query("From")
		to = c.Query("To")
	}

	log.Info("incoming call", "call_sid", callSID, "from", from, "to", to)

	if to == "" {
		c.Data(http.StatusOK, twimlContentType, []byte(RejectTwiML("rejected")))
		return
	}

	res, err := h.resolver.ResolveDialed(c.Request.Context(), to)
	if err != nil {
		var mismatch *numbers.TenantMismatchError
		switch {
		case errors.Is(err, numbers.ErrUnknownNumber):
			log.Warn("call to unroutable number", "to", to, "call_sid", callSID)
			c.Data(http.StatusOK, twimlContentType, []byte(RejectTwiML("rejected")))
		case errors.As(err, &mismatch):
			log.Error("tenant mismatch on dialed number",
				"to", to,
				"number_hotel_id", mismatch.NumberHotelID,
				"assistant_hotel_id", mismatch.AssistantHotelID)
			c.Data(http.StatusOK, twimlContentType, []byte(RejectTwiML("rejected")))
		default:
			log.Error("number resolution failed", "to", to, "err", err)
			c.Data(http.StatusOK, twimlContentType, []byte(SayHangupTwiML(unavailableMessage)))
		}
		return
	}

	// Advisory only; the stream endpoint re-checks atomically. Catching
	// it here lets the caller hear why instead of a dropped connection.
	if h.slots.AtCapacity(c.Request.Context(), res.Number.HotelID) {
		log.Warn("hotel at concurrent call limit", "hotel_id", res.Number.HotelID, "call_sid", callSID)
		c.Data(http.StatusOK, twimlContentType, []byte(SayHangupTwiML(busyMessage)))
		return
	}

	q := url.Values{}
	q.Set("from", from)
	q.Set("to", to)
	wsURL := h.streamURL(c.Request.Host) + "?" + q.Encode()

	log.Info("directing call to media stream",
		"call_sid", callSID,
		"hotel_id", res.Number.HotelID,
		"assistant_id", res.Assistant.ID)

	c.Data(http.StatusOK, twimlContentType, []byte(ConnectStreamTwiML(wsURL, from, to)))
}
