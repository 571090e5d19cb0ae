package main

import (
	"hotelvoice/internal/auth"
	"hotelvoice/internal/rbac"
	"hotelvoice/internal/telephony"

	"github.com/gin-gonic/gin"
)

type routeDeps struct {
	authMW   gin.HandlerFunc
	webhook  *telephony.WebhookHandler
	bridge   *telephony.Bridge
	operator *telephony.OperatorHandler
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d routeDeps) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Carrier endpoints (public).
	// NOTE: These should be protected by Twilio signature validation in production.
	r.POST("/webhooks/twilio/voice", d.webhook.IncomingCall)
	r.GET("/webhooks/twilio/voice", d.webhook.IncomingCall)
	r.GET("/ws/call", d.bridge.HandleStream)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(d.authMW)
	{
		v1.GET("/me", func(c *gin.Context) {
			uid, _ := auth.UserID(c.Request.Context())
			hid, _ := auth.HotelID(c.Request.Context())
			role, _ := auth.Role(c.Request.Context())
			c.JSON(200, gin.H{"user_id": uid, "hotel_id": hid, "role": role})
		})

		// Live call visibility and control for hotel staff.
		calls := v1.Group("/calls")
		calls.Use(rbac.RequireHotel())
		calls.Use(rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleManager, rbac.RoleFrontDesk, rbac.RoleSuperAdmin))
		{
			calls.GET("/active", d.operator.ActiveCalls)
			calls.POST("/:stream_sid/hangup", d.operator.Hangup)
		}
	}
}
