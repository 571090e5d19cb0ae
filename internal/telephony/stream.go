package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"hotelvoice/internal/audit"
	"hotelvoice/internal/numbers"
	"hotelvoice/internal/pipeline"
	"hotelvoice/internal/providers"
	"hotelvoice/internal/session"
	"hotelvoice/pkg/logger"
)

// SlotLimiter caps concurrent calls per hotel. Acquire reports false
// when the hotel is at its limit.
type SlotLimiter interface {
	Acquire(ctx context.Context, hotelID string) (bool, error)
	Release(ctx context.Context, hotelID string)

	// AtCapacity is an advisory read for callers that want to refuse
	// early with a friendlier answer than a failed Acquire.
	AtCapacity(ctx context.Context, hotelID string) bool
}

// Bridge owns the Twilio media-stream endpoint: it resolves the tenant,
// performs the carrier handshake, opens the session, assembles the
// pipeline, and drives the call to completion.
type Bridge struct {
	resolver  *numbers.Resolver
	assembler *pipeline.Assembler
	sessions  *session.Registry
	slots     SlotLimiter
	audits    *audit.Service

	startTimeout time.Duration
	maxDuration  time.Duration

	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewBridge(
	resolver *numbers.Resolver,
	assembler *pipeline.Assembler,
	sessions *session.Registry,
	slots SlotLimiter,
	audits *audit.Service,
	startTimeout, maxDuration time.Duration,
	log *slog.Logger,
) *Bridge {
	return &Bridge{
		resolver:     resolver,
		assembler:    assembler,
		sessions:     sessions,
		slots:        slots,
		audits:       audits,
		startTimeout: startTimeout,
		maxDuration:  maxDuration,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Twilio does not send an Origin header.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: log,
	}
}

// HandleStream handles GET /ws/call. Tenant resolution and capacity
// checks run before the websocket upgrade so unroutable or over-limit
// calls are rejected without ever accepting the transport.
func (b *Bridge) HandleStream(c *gin.Context) {
	from := c.Query("from")
	to := c.Query("to")

	res, err := b.resolver.ResolveDialed(c.Request.Context(), to)
	if err != nil {
		var mismatch *numbers.TenantMismatchError
		switch {
		case errors.Is(err, numbers.ErrUnknownNumber):
			b.log.Warn("stream for unroutable number", "to", to)
			c.AbortWithStatus(http.StatusNotFound)
		case errors.As(err, &mismatch):
			b.log.Error("stream refused on tenant mismatch",
				"to", to,
				"number_hotel_id", mismatch.NumberHotelID,
				"assistant_hotel_id", mismatch.AssistantHotelID)
			c.AbortWithStatus(http.StatusForbidden)
		default:
			b.log.Error("stream resolution failed", "to", to, "err", err)
			c.AbortWithStatus(http.StatusInternalServerError)
		}
		return
	}
	hotelID := res.Number.HotelID

	ok, err := b.slots.Acquire(c.Request.Context(), hotelID)
	if err != nil {
		b.log.Error("call slot acquire failed", "hotel_id", hotelID, "err", err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	if !ok {
		b.log.Warn("hotel at concurrent call limit", "hotel_id", hotelID)
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}
	slotHeld := true
	defer func() {
		if slotHeld {
			b.slots.Release(context.Background(), hotelID)
		}
	}()

	conn, err := b.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		b.log.Error("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	start, err := b.awaitStart(conn)
	if err != nil {
		b.log.Warn("carrier handshake failed", "hotel_id", hotelID, "err", err)
		return
	}
	streamSID, callSID := start.StreamSID, start.Start.CallSID
	if v := start.Start.CustomParameters["from"]; v != "" {
		from = v
	}

	log := logger.Call(b.log, streamSID, callSID, hotelID)

	sess := &session.Session{
		StreamSID:   streamSID,
		CallSID:     callSID,
		HotelID:     hotelID,
		AssistantID: res.Assistant.ID,
		PhoneNumber: res.Number.Number,
		From:        from,
	}
	if err := b.sessions.Open(sess); err != nil {
		var dup *session.DuplicateSessionError
		if errors.As(err, &dup) {
			log.Error("duplicate stream start", "stream_sid", dup.StreamSID)
		} else {
			log.Error("session open failed", "err", err)
		}
		return
	}
	// Hand slot ownership to the session teardown path.
	slotHeld = false
	opened := time.Now()
	defer func() {
		b.sessions.Close(streamSID)
		b.slots.Release(context.Background(), hotelID)
		duration := time.Since(opened).Round(time.Second)
		reason := fmt.Sprintf("call ended after %s", duration)
		if err := b.audits.LogSessionClosed(context.Background(), hotelID, streamSID, callSID, reason); err != nil {
			log.Warn("audit write failed", "err", err)
		}
		log.Info("call session closed", "duration", duration)
	}()

	ctx, cancel := context.WithTimeout(c.Request.Context(), b.maxDuration)
	defer cancel()

	transport := newWSTransport(conn, streamSID)
	p, err := b.assembler.Assemble(ctx, res.Assistant, streamSID, callSID, transport)
	if err != nil {
		var mpe *providers.MissingProviderError
		if errors.As(err, &mpe) {
			log.Error("pipeline assembly failed: provider unavailable",
				"hotel_id", hotelID,
				"assistant_id", res.Assistant.ID,
				"stage", string(mpe.Stage),
				"provider", mpe.Provider,
				"reason", mpe.Reason)
		} else {
			log.Error("pipeline assembly failed", "err", err)
		}
		return
	}
	sess.SetShutdown(p.Shutdown)
	p.SetToolObserver(func(name string, fatal error) {
		outcome := "ok"
		if fatal != nil {
			outcome = fatal.Error()
		}
		if err := b.audits.LogToolInvoked(context.Background(), hotelID, streamSID, callSID, name, outcome); err != nil {
			log.Warn("audit write failed", "err", err)
		}
	})
	p.SetRedirectObserver(func(target string) {
		if err := b.audits.LogCallTransferred(context.Background(), hotelID, streamSID, callSID, target); err != nil {
			log.Warn("audit write failed", "err", err)
		}
	})

	if err := b.audits.LogSessionOpened(ctx, hotelID, streamSID, callSID, res.Assistant.ID); err != nil {
		log.Warn("audit write failed", "err", err)
	}
	log.Info("call session opened", "from", from, "to", to)

	if err := p.Run(ctx); err != nil {
		log.Error("pipeline terminated with error", "err", err)
	}
}

// awaitStart reads frames until Twilio's start event arrives, bounded by
// the configured handshake timeout. Twilio sends a "connected" preamble
// first; anything else before start is a protocol anomaly.
func (b *Bridge) awaitStart(conn *websocket.Conn) (*streamMessage, error) {
	if err := conn.SetReadDeadline(time.Now().Add(b.startTimeout)); err != nil {
		return nil, err
	}
	defer conn.SetReadDeadline(time.Time{})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("waiting for start event: %w", err)
		}
		var msg streamMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("malformed handshake frame: %w", err)
		}
		switch msg.Event {
		case "connected":
			continue
		case "start":
			if msg.Start == nil || msg.StreamSID == "" || msg.Start.CallSID == "" {
				return nil, fmt.Errorf("start event missing stream or call sid")
			}
			return &msg, nil
		default:
			return nil, fmt.Errorf("expected start event, got %q", msg.Event)
		}
	}
}
