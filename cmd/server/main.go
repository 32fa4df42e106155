// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/unclebandit/isp-broadcast/internal/cache"
	"github.com/unclebandit/isp-broadcast/internal/config"
	"github.com/unclebandit/isp-broadcast/internal/controller"
	"github.com/unclebandit/isp-broadcast/internal/db"
	"github.com/unclebandit/isp-broadcast/internal/handler"
	"github.com/unclebandit/isp-broadcast/internal/queue"
	"github.com/unclebandit/isp-broadcast/internal/repository"
	"github.com/unclebandit/isp-broadcast/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("cannot load config")
	}
	log := config.NewLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := repository.NewClient(cfg.Remote.BaseURL, cfg.Remote.Token, cfg.Remote.Timeout, log)
	templateRepo := &repository.TemplateRepository{Client: client}
	statsRepo := &repository.StatsRepository{Client: client}
	broadcastRepo := &repository.BroadcastRepository{Client: client}
	scheduledRepo := &repository.ScheduledRepository{Client: client}
	historyRepo := &repository.HistoryRepository{Client: client}

	// Stats cache: redis when configured so every admin instance shares one snapshot.
	var statsCache service.StatsCache = cache.NewMemoryStatsCache(cfg.Redis.StatsTTL)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("⚠️ redis unavailable, using in-process stats cache")
		} else {
			statsCache = cache.NewRedisStatsCache(rdb, cfg.Redis.StatsTTL)
			log.WithField("addr", cfg.Redis.Addr).Info("✅ Connected to redis")
		}
	}

	// Audit events: RabbitMQ for the worker, otherwise stored in-process when a database is configured.
	var (
		q         queue.Queue
		auditRepo *repository.AuditRepository
		auditList http.HandlerFunc
	)
	if dsn := cfg.Database.DSN(); dsn != "" {
		conn, err := db.Open(ctx, dsn, log)
		if err != nil {
			log.WithError(err).Fatal("database unavailable")
		}
		defer conn.Close()
		auditRepo = &repository.AuditRepository{DB: conn}
		auditList = handler.NewAuditHandler(auditRepo, log).ListAuditHandler
	}

	var memQueue *queue.InMemoryQueue
	if cfg.AMQP.URL != "" {
		amqpQueue, err := queue.DialAMQP(cfg.AMQP.URL, log)
		if err != nil {
			log.WithError(err).Fatal("rabbitmq unavailable")
		}
		defer amqpQueue.Close()
		q = amqpQueue
	} else if auditRepo != nil {
		memQueue = queue.NewInMemoryQueue(log)
		if err := queue.StartAuditSubscriber(memQueue, auditRepo, log); err != nil {
			log.WithError(err).Fatal("audit subscriber")
		}
		q = memQueue
	}

	var audit service.AuditPublisher
	if q != nil {
		audit = &queue.AuditPublisher{Queue: q}
	}

	templates := &service.TemplateService{Repo: templateRepo, Log: log}
	resolver := &service.RecipientResolver{Stats: statsRepo, Cache: statsCache, Log: log}
	if err := resolver.Start(ctx); err != nil {
		// Counts stay unavailable until POST /recipients/refresh succeeds.
		log.WithError(err).Warn("⚠️ recipient stats not loaded")
	}

	sessions := &controller.Sessions{
		NewDispatch: func() *service.DispatchController {
			dispatch := service.NewDispatchController(broadcastRepo, scheduledRepo, audit, log)
			dispatch.OnChange = func(s service.State) {
				log.WithFields(logrus.Fields{"phase": s.Phase, "progress": s.Progress}).Debug("dispatch state")
			}
			return dispatch
		},
		NewHistory: func() *service.HistoryFeed {
			history := service.NewHistoryFeed(historyRepo, audit, log)
			if cfg.History.Cooldown > 0 {
				history.Cooldown = cfg.History.Cooldown
			}
			return history
		},
	}

	router := &controller.Router{
		Broadcasts: &controller.BroadcastController{
			Templates:  templates,
			Recipients: resolver,
			Composer:   &service.Composer{Recipients: resolver},
			Sessions:   sessions,
			Log:        log,
		},
		History: &controller.HistoryController{Sessions: sessions},
		Audit:   auditList,
		Limiter: rate.NewLimiter(rate.Limit(cfg.API.RatePerSecond), cfg.API.Burst),
		Log:     log,
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("🚀 Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("shutdown")
	}
	if memQueue != nil {
		memQueue.Drain()
	}
	log.Info("server stopped")
}
