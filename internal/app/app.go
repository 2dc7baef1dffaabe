package app

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ticketgate/internal/application/services"
	"ticketgate/internal/config"
	"ticketgate/internal/infrastructure/event_publisher"
	"ticketgate/internal/interfaces/events"
	"ticketgate/internal/interfaces/http"
	"ticketgate/internal/qr"
	"ticketgate/internal/repository"
)

type App struct {
	logger          zerolog.Logger
	shutdownTimeout time.Duration

	router *message.Router
	srv    *http.Server
	db     *sqlx.DB
}

func NewApp(
	logger zerolog.Logger,
	watermillLogger watermill.LoggerAdapter,
	emailService EmailService,
	redisClient *redis.Client,
	db *sqlx.DB,
	cfg *config.Config,
) (*App, error) {
	ticketsRepo := repository.NewTicketsRepo(db)

	renderer := qr.PNGRenderer{}
	qrOpts := qr.DefaultRenderOptions()
	if cfg.QRSizePx > 0 {
		qrOpts.SizePx = cfg.QRSizePx
	}

	router, err := message.NewRouter(message.RouterConfig{}, watermillLogger)
	if err != nil {
		return nil, err
	}

	var publisher message.Publisher
	publisher, err = redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: redisClient,
	}, watermillLogger)
	if err != nil {
		return nil, err
	}

	publisher = event_publisher.CorrelationPublisherDecorator{
		Publisher: publisher,
	}
	eventBus, err := NewEventBus(publisher, watermillLogger)
	if err != nil {
		return nil, err
	}

	generator := services.NewTicketGenerator(
		ticketsRepo, renderer, eventBus, logger, cfg.BaseURL, qrOpts)

	srv := http.NewServer(
		logger,
		ticketsRepo,
		eventBus,
		renderer,
		":"+cfg.Port,
		cfg.BaseURL,
		cfg.ShopifyWebhookSecret,
		qrOpts,
		router.IsRunning,
	)

	router.AddMiddleware(middleware.Recoverer)
	router.AddMiddleware(events.CorrelationIDMiddleware(logger))
	router.AddMiddleware(events.LoggingMiddleware)

	router.AddMiddleware(middleware.Retry{
		MaxRetries:      10,
		InitialInterval: time.Millisecond * 100,
		MaxInterval:     time.Second,
		Multiplier:      2,
		Logger:          watermillLogger,
	}.Middleware)

	marshaler := cqrs.JSONMarshaler{
		GenerateName: cqrs.StructName,
	}
	processor, err := NewEventProcessor(router, redisClient, marshaler, watermillLogger)
	if err != nil {
		return nil, err
	}
	err = processor.AddHandlers(
		events.GenerateTicketsHandler(generator),
		events.SendTicketsEmailHandler(emailService, cfg.BaseURL),
	)
	if err != nil {
		return nil, err
	}

	return &App{
		logger:          logger,
		shutdownTimeout: cfg.ShutdownTimeout,
		router:          router,
		srv:             srv,
		db:              db,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	if err := repository.InitializeDBSchema(a.db); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info().Msg("starting router")

		return a.router.Run(ctx)
	})

	g.Go(func() error {
		// The health endpoint reports not-ready until the router is
		// consuming, so the server waits for it.
		<-a.router.Running()
		a.logger.Info().Msg("router is running")

		a.logger.Info().Msg("starting server")
		return a.srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()

		stopCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		err := a.srv.Stop(stopCtx)
		if err != nil {
			a.logger.Err(err).Msg("error stopping server")
		}

		return err
	})

	return g.Wait()
}

func NewEventBus(
	pub message.Publisher,
	logger watermill.LoggerAdapter,
) (*cqrs.EventBus, error) {
	return cqrs.NewEventBusWithConfig(
		pub,
		cqrs.EventBusConfig{
			GeneratePublishTopic: func(params cqrs.GenerateEventPublishTopicParams) (string, error) {
				return params.EventName, nil
			},
			Marshaler: cqrs.JSONMarshaler{
				GenerateName: cqrs.StructName,
			},
			Logger: logger,
		},
	)
}

func NewEventProcessor(
	router *message.Router,
	rdb *redis.Client,
	marshaler cqrs.CommandEventMarshaler,
	logger watermill.LoggerAdapter,
) (*cqrs.EventProcessor, error) {
	return cqrs.NewEventProcessorWithConfig(
		router,
		cqrs.EventProcessorConfig{
			GenerateSubscribeTopic: func(params cqrs.EventProcessorGenerateSubscribeTopicParams) (string, error) {
				return params.EventName, nil
			},
			SubscriberConstructor: func(params cqrs.EventProcessorSubscriberConstructorParams) (message.Subscriber, error) {
				return redisstream.NewSubscriber(redisstream.SubscriberConfig{
					Client:        rdb,
					ConsumerGroup: "svc-ticketgate." + params.HandlerName,
				}, logger)
			},
			Marshaler: marshaler,
			Logger:    logger,
		},
	)
}
