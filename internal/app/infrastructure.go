package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prperemyshlev/videotube-users/internal/config"
	"github.com/prperemyshlev/videotube-users/internal/events"
	"github.com/prperemyshlev/videotube-users/internal/media"
	"github.com/prperemyshlev/videotube-users/internal/repository"
	"github.com/prperemyshlev/videotube-users/internal/service"
	"github.com/prperemyshlev/videotube-users/pkg/database"
	"github.com/prperemyshlev/videotube-users/pkg/observability"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

const serviceName = "videotube-users"

type Infrastructure interface {
	Mongo() *database.Mongo
	Redis() *database.Redis
	Logger() *zap.Logger
	MetricsHandler() http.Handler
	MeterProvider() *metric.MeterProvider
	Media() service.MediaUploader
	Events() events.Publisher

	Shutdown(ctx context.Context) error
}

type infrastructure struct {
	mongo          *database.Mongo
	redis          *database.Redis
	logger         *zap.Logger
	metricsHandler http.Handler
	meterProvider  *metric.MeterProvider
	media          service.MediaUploader
	events         events.Publisher
}

var _ Infrastructure = &infrastructure{}

func NewInfrastructure(ctx context.Context, cfg config.Config) (*infrastructure, error) {
	i := &infrastructure{}

	logger, err := observability.InitLogger(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	i.logger = logger

	mongo, err := database.NewMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.ConnectTimeout.Duration)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	i.mongo = mongo

	if err := repository.Migrate(mongo); err != nil {
		_ = i.mongo.Close(ctx)
		return nil, fmt.Errorf("failed to migrate MongoDB: %w", err)
	}

	redis, err := database.NewRedis(ctx, cfg.Redis.Address(), cfg.Redis.Password, cfg.Redis.DB, serviceName)
	if err != nil {
		_ = i.mongo.Close(ctx)
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	i.redis = redis

	uploader, err := media.NewUploader(ctx, cfg.Media, cfg.Upload.MaxBytes)
	if err != nil {
		_ = i.mongo.Close(ctx)
		_ = i.redis.Close()
		return nil, fmt.Errorf("failed to initialize media storage: %w", err)
	}
	i.media = uploader

	i.events = events.NopPublisher{}
	if cfg.Events.Enabled() {
		publisher, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			_ = i.mongo.Close(ctx)
			_ = i.redis.Close()
			return nil, fmt.Errorf("failed to connect to AMQP broker: %w", err)
		}
		i.events = publisher
	} else {
		logger.Info("AMQP_URL not set, domain events are disabled")
	}

	meterProvider, metricsHandler, err := observability.InitTelemetry(serviceName)
	if err != nil {
		_ = i.mongo.Close(ctx)
		_ = i.redis.Close()
		_ = i.events.Close()
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	i.meterProvider = meterProvider
	i.metricsHandler = metricsHandler

	return i, nil
}

func (i *infrastructure) Mongo() *database.Mongo {
	return i.mongo
}

func (i *infrastructure) Redis() *database.Redis {
	return i.redis
}

func (i *infrastructure) Logger() *zap.Logger {
	return i.logger
}

func (i *infrastructure) MetricsHandler() http.Handler {
	return i.metricsHandler
}

func (i *infrastructure) MeterProvider() *metric.MeterProvider {
	return i.meterProvider
}

func (i *infrastructure) Media() service.MediaUploader {
	return i.media
}

func (i *infrastructure) Events() events.Publisher {
	return i.events
}

func (i *infrastructure) Shutdown(ctx context.Context) error {
	errs := make(chan error, 4)

	go func() { errs <- i.mongo.Close(ctx) }()
	go func() { errs <- i.redis.Close() }()
	go func() { errs <- i.events.Close() }()
	go func() { errs <- observability.Shutdown(ctx, i.meterProvider, i.logger) }()

	return errors.Join(<-errs, <-errs, <-errs, <-errs)
}
