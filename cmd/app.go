package cmd

import (
	"context"
	"database/sql"
	"strings"

	"cloud.google.com/go/pubsub/v2"
	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-lms-payments/app/cache"
	"github.com/vibast-solutions/ms-go-lms-payments/app/events"
	"github.com/vibast-solutions/ms-go-lms-payments/app/metrics"
	"github.com/vibast-solutions/ms-go-lms-payments/app/provider"
	"github.com/vibast-solutions/ms-go-lms-payments/app/repository"
	"github.com/vibast-solutions/ms-go-lms-payments/app/service"
	"github.com/vibast-solutions/ms-go-lms-payments/config"
)

var paymentMetrics = metrics.NewPaymentMetrics(prometheus.DefaultRegisterer)

func configureLogging(cfg *config.Config) error {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Log.Level))
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	return nil
}

func mustLoadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}
	return cfg
}

func mustOpenDB(cfg *config.Config) *sql.DB {
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}
	return db
}

func mustCreatePaymentService() (*config.Config, *service.PaymentService, func()) {
	cfg := mustLoadConfig()
	db := mustOpenDB(cfg)
	cleanups := []func(){
		func() {
			if err := db.Close(); err != nil {
				logrus.WithError(err).Warn("Failed to close database")
			}
		},
	}

	xenditProvider := provider.NewXenditProvider(provider.XenditConfig{
		SecretKey:       cfg.Xendit.SecretKey,
		CallbackToken:   cfg.Xendit.CallbackToken,
		BaseURL:         cfg.Xendit.BaseURL,
		HTTPTimeout:     cfg.Xendit.HTTPTimeout,
		InvoiceDuration: cfg.Xendit.InvoiceDuration,
	})
	if !xenditProvider.CallbackConfigured() {
		logrus.WithField("provider", provider.XenditCode).Warn("XENDIT_CALLBACK_TOKEN is empty: every webhook will be rejected")
	}

	paymentService := service.NewPaymentService(
		repository.NewPaymentRepository(db),
		repository.NewEnrollmentRepository(db),
		repository.NewPaymentCallbackRepository(db),
		service.NewSQLTransactor(repository.NewTxRunner(db)),
		provider.NewRegistry(xenditProvider),
		cfg.Payments,
		cfg.Checkout,
	).WithMetrics(paymentMetrics)

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logrus.WithError(err).Warn("Redis unreachable, idempotency cache will fail open")
		}
		paymentService.WithIdempotencyCache(cache.NewIdempotencyCache(rdb, cfg.Redis.IdempotencyTTL))
		cleanups = append(cleanups, func() { _ = rdb.Close() })
	}

	if cfg.PubSub.ProjectID != "" && cfg.PubSub.EnrollmentTopic != "" {
		client, err := pubsub.NewClient(context.Background(), cfg.PubSub.ProjectID)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to create pubsub client")
		}
		topic := client.Publisher(cfg.PubSub.EnrollmentTopic)
		paymentService.WithPublisher(events.NewPublisher(topic))
		cleanups = append(cleanups, func() {
			topic.Stop()
			if err := client.Close(); err != nil {
				logrus.WithError(err).Warn("Failed to close pubsub client")
			}
		})
	}

	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	return cfg, paymentService, cleanup
}
