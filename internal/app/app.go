package app

import (
	"context"
	"net/http"

	fcm "firebase.google.com/go/v4/messaging"
	"github.com/casbin/casbin/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/gonotif/internal/pkg/clock"
	"github.com/shandysiswandi/gonotif/internal/pkg/config"
	"github.com/shandysiswandi/gonotif/internal/pkg/goroutine"
	"github.com/shandysiswandi/gonotif/internal/pkg/idempotency"
	"github.com/shandysiswandi/gonotif/internal/pkg/instrument"
	"github.com/shandysiswandi/gonotif/internal/pkg/jwt"
	"github.com/shandysiswandi/gonotif/internal/pkg/mail"
	"github.com/shandysiswandi/gonotif/internal/pkg/messaging"
	"github.com/shandysiswandi/gonotif/internal/pkg/ratelimit"
	"github.com/shandysiswandi/gonotif/internal/pkg/router"
	"github.com/shandysiswandi/gonotif/internal/pkg/scheduler"
	"github.com/shandysiswandi/gonotif/internal/pkg/storage"
	"github.com/shandysiswandi/gonotif/internal/pkg/uid"
	"github.com/shandysiswandi/gonotif/internal/pkg/validator"
)

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clock
	uid       uid.NumberID
	uuid      uid.StringID
	jwt       jwt.JWT
	limiter   *ratelimit.Limiter
	scheduler *scheduler.Scheduler

	// resources
	dbConn    *pgxpool.Pool
	cacheConn *redis.Client
	idemp     idempotency.Idempotency
	mail      mail.Mail
	fcm       *fcm.Client
	messaging messaging.Messaging
	storage   storage.Storage
	casbin    *casbin.Enforcer

	// server
	router     *router.Router
	httpServer *http.Server
	sseServer  *http.Server

	//
	closers []struct {
		name string
		fn   func(context.Context) error
	}
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initJWT()
	app.initDatabase()
	app.initCache()
	app.initMail()
	app.initFirebase()
	app.initStorage()
	app.initMessaging()
	app.initCasbin()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}
