package notification

import (
	"context"
	"errors"

	fcm "firebase.google.com/go/v4/messaging"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/gonotif/internal/notification/entity"
	"github.com/shandysiswandi/gonotif/internal/notification/inbound"
	"github.com/shandysiswandi/gonotif/internal/notification/outbound/archive"
	"github.com/shandysiswandi/gonotif/internal/notification/outbound/cache"
	"github.com/shandysiswandi/gonotif/internal/notification/outbound/db"
	"github.com/shandysiswandi/gonotif/internal/notification/outbound/email"
	"github.com/shandysiswandi/gonotif/internal/notification/outbound/inbox"
	"github.com/shandysiswandi/gonotif/internal/notification/outbound/mq"
	"github.com/shandysiswandi/gonotif/internal/notification/outbound/push"
	"github.com/shandysiswandi/gonotif/internal/notification/usecase"
	"github.com/shandysiswandi/gonotif/internal/pkg/clock"
	"github.com/shandysiswandi/gonotif/internal/pkg/config"
	"github.com/shandysiswandi/gonotif/internal/pkg/goroutine"
	"github.com/shandysiswandi/gonotif/internal/pkg/idempotency"
	"github.com/shandysiswandi/gonotif/internal/pkg/instrument"
	"github.com/shandysiswandi/gonotif/internal/pkg/mail"
	"github.com/shandysiswandi/gonotif/internal/pkg/messaging"
	"github.com/shandysiswandi/gonotif/internal/pkg/ratelimit"
	"github.com/shandysiswandi/gonotif/internal/pkg/router"
	"github.com/shandysiswandi/gonotif/internal/pkg/scheduler"
	"github.com/shandysiswandi/gonotif/internal/pkg/storage"
	"github.com/shandysiswandi/gonotif/internal/pkg/uid"
	"github.com/shandysiswandi/gonotif/internal/pkg/validator"
	"golang.org/x/time/rate"
)

// Dependency holds what the module needs from the app. CacheConn,
// Idempotency, FCM, Mail and Storage are optional; a missing provider turns
// off the matching channel or feature.
type Dependency struct {
	Ctx         context.Context
	DBConn      *pgxpool.Pool
	CacheConn   redis.UniversalClient
	Idempotency idempotency.Idempotency
	Messaging   messaging.Messaging
	Storage     storage.Storage
	Mail        mail.Mail
	FCM         *fcm.Client
	Config      config.Config
	Instrument  instrument.Instrumentation
	UID         uid.NumberID
	UUID        uid.StringID
	Clock       clock.Clock
	Goroutine   *goroutine.Manager
	Validator   validator.Validator
	Router      *router.Router
	Limiter     *ratelimit.Limiter
	Authorizer  router.Authorizer
	Scheduler   *scheduler.Scheduler
}

func New(dep Dependency) error {
	if dep.DBConn == nil || dep.Messaging == nil || dep.Router == nil {
		return errors.New("notification: database, messaging and router are required")
	}

	cfg := dep.Config
	dbNotif := db.NewDB(dep.DBConn, dep.Instrument)
	if cfg.GetBool("modules.notification.migrate") {
		if err := dbNotif.Migrate(dep.Ctx); err != nil {
			return err
		}
	}

	hub := inbox.NewHub()
	senders := map[entity.Channel]usecase.Sender{
		entity.ChannelInApp: inbox.New(dbNotif, hub, dep.UID, dep.Clock, dep.Instrument),
	}
	if dep.FCM != nil {
		senders[entity.ChannelPush] = push.New(dep.FCM, dbNotif, providerLimiter(cfg, "push"), dep.Instrument)
	}
	if dep.Mail != nil {
		senders[entity.ChannelEmail] = email.New(dep.Mail, dbNotif, providerLimiter(cfg, "email"), email.Config{
			From:    cfg.GetString("mail.from"),
			Company: cfg.GetString("modules.notification.email.company"),
		}, dep.Clock, dep.Instrument)
	}

	ucDep := usecase.Dependency{
		RepoDB:      dbNotif,
		RepoMQ:      mq.NewMessaging(dep.Messaging, dep.Instrument),
		Stream:      hub,
		Senders:     senders,
		Idempotency: dep.Idempotency,
		Config:      cfg,
		UID:         dep.UID,
		Clock:       dep.Clock,
		Validator:   dep.Validator,
		Goroutine:   dep.Goroutine,
		Instrument:  dep.Instrument,
	}
	if dep.CacheConn != nil {
		ucDep.RepoCache = cache.New(dep.CacheConn, dep.Instrument)
	}
	if dep.Storage != nil {
		ucDep.RepoArchive = archive.New(dep.Storage, dep.Instrument)
	}
	uc := usecase.NewNotification(ucDep)

	httpDep := inbound.HTTPDependency{Router: dep.Router, Config: cfg, Authorizer: dep.Authorizer}
	if dep.Limiter != nil {
		httpDep.Limiter = dep.Limiter
	}
	inbound.RegisterHTTPEndpoint(httpDep, uc)

	if dep.Ctx != nil {
		inbound.RegisterMQConsumer(dep.Ctx, cfg, dep.Goroutine, dep.Messaging, dep.UUID, uc, dep.Instrument)
	}

	if dep.Scheduler != nil {
		var sweeper interface{ Sweep() int }
		if dep.Limiter != nil {
			sweeper = dep.Limiter
		}
		if err := inbound.RegisterJobs(dep.Scheduler, cfg, uc, sweeper); err != nil {
			return err
		}
	}

	return nil
}

// providerLimiter throttles calls to one provider using
// modules.notification.<name>.rate_per_second and .burst.
func providerLimiter(cfg config.Config, name string) *rate.Limiter {
	perSecond := cfg.GetFloat64("modules.notification." + name + ".rate_per_second")
	if perSecond <= 0 {
		perSecond = 50
	}
	burst := cfg.GetInt("modules.notification." + name + ".burst")
	if burst <= 0 {
		burst = int(perSecond)
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}
