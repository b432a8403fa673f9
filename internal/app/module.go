package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/gonotif/internal/notification"
)

func (a *App) initModules() {
	if !a.config.GetBool("modules.notification.enabled") {
		slog.Warn("module notification is disabled")
		return
	}

	dep := notification.Dependency{
		Ctx:         a.ctx,
		DBConn:      a.dbConn,
		CacheConn:   a.cacheConn,
		Idempotency: a.idemp,
		Storage:     a.storage,
		Mail:        a.mail,
		Messaging:   a.messaging,
		FCM:         a.fcm,
		Config:      a.config,
		Instrument:  a.ins,
		UID:         a.uid,
		UUID:        a.uuid,
		Clock:       a.clock,
		Goroutine:   a.goroutine,
		Validator:   a.validator,
		Router:      a.router,
		Limiter:     a.limiter,
		Scheduler:   a.scheduler,
	}

	// *casbin.Enforcer would otherwise become a non-nil Authorizer
	if a.casbin != nil {
		dep.Authorizer = a.casbin
	}

	if err := notification.New(dep); err != nil {
		slog.Error("failed to init module notification", "error", err)
		os.Exit(1)
	}
}
