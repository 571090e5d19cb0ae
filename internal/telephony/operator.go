package telephony

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hotelvoice/internal/audit"
	"hotelvoice/internal/auth"
	"hotelvoice/internal/pipeline"
	"hotelvoice/internal/rbac"
	"hotelvoice/internal/session"
	"hotelvoice/pkg/logger"
)

// OperatorHandler exposes live-call visibility and control to
// authenticated hotel staff. Tenancy comes from the caller's token,
// never from request parameters; super admins see every hotel.
type OperatorHandler struct {
	sessions *session.Registry
	control  pipeline.ControlClient
	audits   *audit.Service
}

func NewOperatorHandler(sessions *session.Registry, control pipeline.ControlClient, audits *audit.Service) *OperatorHandler {
	return &OperatorHandler{sessions: sessions, control: control, audits: audits}
}

// ActiveCalls handles GET /v1/calls/active.
func (h *OperatorHandler) ActiveCalls(c *gin.Context) {
	ctx := c.Request.Context()
	hotelID, err := auth.HotelID(ctx)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	role, _ := auth.Role(ctx)
	if rbac.IsSuperAdmin(role) {
		hotelID = ""
	}

	calls := h.sessions.Active(hotelID)
	c.JSON(http.StatusOK, gin.H{"calls": calls, "total": len(calls)})
}

// Hangup handles POST /v1/calls/:stream_sid/hangup: terminates a live
// call belonging to the operator's hotel.
func (h *OperatorHandler) Hangup(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromGin(c)

	hotelID, err := auth.HotelID(ctx)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	userID, _ := auth.UserID(ctx)
	role, _ := auth.Role(ctx)

	streamSID := c.Param("stream_sid")
	sess, ok := h.sessions.Lookup(streamSID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "call not found"})
		return
	}
	// A call in another hotel is indistinguishable from no call at all.
	if sess.HotelID != hotelID && !rbac.IsSuperAdmin(role) {
		c.JSON(http.StatusNotFound, gin.H{"error": "call not found"})
		return
	}

	if err := h.control.Hangup(ctx, sess.CallSID); err != nil {
		log.Error("operator hangup failed", "stream_sid", streamSID, "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "carrier hangup failed"})
		return
	}
	h.sessions.Close(streamSID)

	if err := h.audits.LogOperatorHangup(ctx, sess.HotelID, userID, role, streamSID, sess.CallSID); err != nil {
		log.Warn("audit write failed", "err", err)
	}

	c.JSON(http.StatusOK, gin.H{"status": "hangup requested"})
}
