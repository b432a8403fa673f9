package inbound

import (
	"net/http"
	"time"

	"github.com/shandysiswandi/gonotif/internal/pkg/config"
	"github.com/shandysiswandi/gonotif/internal/pkg/ratelimit"
	"github.com/shandysiswandi/gonotif/internal/pkg/router"
)

const (
	ruleSend            = "send"
	ruleSendBulk        = "send_bulk"
	ruleRead            = "read"
	rulePreferenceWrite = "preference_write"
	ruleInboxWrite      = "inbox_write"
	ruleDeviceRegister  = "device_register"
)

var defaultRules = map[string]ratelimit.Rule{
	ruleSend:            {Name: ruleSend, Limit: 10, Window: time.Minute},
	ruleSendBulk:        {Name: ruleSendBulk, Limit: 3, Window: 5 * time.Minute},
	ruleRead:            {Name: ruleRead, Limit: 200, Window: time.Minute, SkipSuccessful: true},
	rulePreferenceWrite: {Name: rulePreferenceWrite, Limit: 20, Window: time.Minute},
	ruleInboxWrite:      {Name: ruleInboxWrite, Limit: 60, Window: time.Minute},
	ruleDeviceRegister:  {Name: ruleDeviceRegister, Limit: 5, Window: time.Hour},
}

// rateRule returns the named rule with ratelimit.rules.<name>.* overrides applied.
func rateRule(cfg config.Config, name string) ratelimit.Rule {
	rule := defaultRules[name]
	if cfg == nil {
		return rule
	}

	if v := cfg.GetInt("ratelimit.rules." + name + ".limit"); v > 0 {
		rule.Limit = v
	}
	if v := cfg.GetSecond("ratelimit.rules." + name + ".window_seconds"); v > 0 {
		rule.Window = v
	}
	return rule
}

// HTTPDependency groups what the HTTP surface needs besides the usecase.
// Limiter and Authorizer may be nil; a nil Authorizer denies every role check.
type HTTPDependency struct {
	Router     *router.Router
	Config     config.Config
	Limiter    router.RateLimiter
	Authorizer router.Authorizer
}

func RegisterHTTPEndpoint(dep HTTPDependency, uc uc) {
	end := &HTTPEndpoint{uc: uc}
	r, az := dep.Router, dep.Authorizer

	limit := func(name string) router.Middleware {
		return router.RateLimit(dep.Limiter, rateRule(dep.Config, name))
	}

	canSend := router.RequireRole(az, "notification", "send")
	canReadStats := router.RequireRole(az, "stats", "read")
	selfOrRead := router.RequireSelfOr("userId", az, "preference", "read")
	selfOrWrite := router.RequireSelfOr("userId", az, "preference", "write")
	authed := router.RequireAuth()

	r.POST("/api/v1/notifications/send", router.Guarded(end.Send, canSend), limit(ruleSend))
	r.POST("/api/v1/notifications/send-bulk", router.Guarded(end.SendBulk, canSend), limit(ruleSendBulk))

	r.GET("/api/v1/notifications/in-app", router.Guarded(end.ListInbox, authed), limit(ruleRead))
	r.PUT("/api/v1/notifications/in-app/:id/read", router.Guarded(end.MarkInboxRead, authed), limit(ruleInboxWrite))

	r.GET("/api/v1/notifications/preferences/:userId", router.Guarded(end.GetPreferences, selfOrRead), limit(ruleRead))
	r.PUT("/api/v1/notifications/preferences/:userId", router.Guarded(end.UpdatePreferences, selfOrWrite), limit(rulePreferenceWrite))
	r.POST("/api/v1/notifications/preferences/:userId/enable/:channel", router.Guarded(end.EnableChannel, selfOrWrite), limit(rulePreferenceWrite))
	r.POST("/api/v1/notifications/preferences/:userId/disable/:channel", router.Guarded(end.DisableChannel, selfOrWrite), limit(rulePreferenceWrite))

	r.GET("/api/v1/notifications/stats", router.Guarded(end.Stats, canReadStats), limit(ruleRead))
	r.GET("/api/v1/notifications/failed", router.Guarded(end.FailedDeliveries, canReadStats), limit(ruleRead))

	r.POST("/api/v1/notifications/devices", router.Guarded(end.RegisterDevice, authed), limit(ruleDeviceRegister))
	r.DELETE("/api/v1/notifications/devices", router.Guarded(end.RemoveDevice, authed), limit(rulePreferenceWrite))

	r.GETRaw("/api/v1/notifications/stream", http.HandlerFunc(end.StreamNotifications))
}
