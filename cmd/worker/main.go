// cmd/worker/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/unclebandit/isp-broadcast/internal/config"
	"github.com/unclebandit/isp-broadcast/internal/db"
	"github.com/unclebandit/isp-broadcast/internal/queue"
	"github.com/unclebandit/isp-broadcast/internal/repository"
)

// The worker drains dispatch audit events from RabbitMQ into postgres.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("cannot load config")
	}
	log := config.NewLogger(cfg.Log)

	if cfg.AMQP.URL == "" {
		log.Fatal("AMQP_URL must be set")
	}
	dsn := cfg.Database.DSN()
	if dsn == "" {
		log.Fatal("DATABASE_URL or DB_HOST/DB_NAME must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, dsn, log)
	if err != nil {
		log.WithError(err).Fatal("database unavailable")
	}
	defer conn.Close()

	q, err := queue.DialAMQP(cfg.AMQP.URL, log)
	if err != nil {
		log.WithError(err).Fatal("rabbitmq unavailable")
	}
	defer q.Close()

	if err := run(q, &repository.AuditRepository{DB: conn}, log); err != nil {
		log.WithError(err).Fatal("failed to register consumer")
	}

	log.Info("Worker running, waiting for audit events...")
	<-ctx.Done()
	log.Info("worker stopped")
}

func run(q queue.Queue, repo repository.AuditRepositoryInterface, log logrus.FieldLogger) error {
	return queue.StartAuditSubscriber(q, repo, log)
}
