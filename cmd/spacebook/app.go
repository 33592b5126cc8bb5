package main

import (
	"context"
	"log/slog"

	goredis "github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"spacebook/internal/app/commands"
	"spacebook/internal/app/dto"
	paymentapp "spacebook/internal/app/handlers/payments"
	reservationapp "spacebook/internal/app/handlers/reservations"
	spaceapp "spacebook/internal/app/handlers/spaces"
	webhookapp "spacebook/internal/app/handlers/webhooks"
	"spacebook/internal/app/middleware"
	appoutbox "spacebook/internal/app/outbox"
	"spacebook/internal/app/policies"
	"spacebook/internal/app/queries"
	authsvc "spacebook/internal/app/services/auth"
	"spacebook/internal/app/uow"
	domainspace "spacebook/internal/domain/space"
	domainuser "spacebook/internal/domain/user"
	"spacebook/internal/domain/webhook"
	"spacebook/internal/infra/broker/kafka"
	"spacebook/internal/infra/config"
	mongodb "spacebook/internal/infra/db/mongo"
	ginserver "spacebook/internal/infra/http/gin"
	redislock "spacebook/internal/infra/lock/redis"
	"spacebook/internal/infra/notify"
	"spacebook/internal/infra/obs"
	infraoutbox "spacebook/internal/infra/outbox"
	"spacebook/internal/infra/payments/razorpay"
	"spacebook/internal/infra/security"
	"spacebook/internal/infra/storage/memory"
	"spacebook/internal/pkg/errs"
)

type application struct {
	handlers ginserver.Handlers
	spaces   domainspace.Repository
	users    domainuser.Repository
	hasher   authsvc.PasswordHasher
	probes   map[string]obs.Probe
	runners  []func(context.Context) error
	closers  []func(context.Context) error
}

// storage bundles what the chosen driver provides.
type storage struct {
	factory     uow.UoWFactory
	idempotency middleware.IdempotencyStore
	logs        webhook.LogRepository
	outbox      appoutbox.Outbox
	spaces      domainspace.Repository
	users       domainuser.Repository
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{probes: map[string]obs.Probe{}}

	var publisher infraoutbox.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			return nil, errs.Wrap(err, "kafka producer")
		}
		app.closers = append(app.closers, func(context.Context) error { return producer.Close() })
		publisher = infraoutbox.CloudEventPublisher{Producer: producer, TopicPrefix: cfg.Kafka.TopicPrefix, Source: cfg.Outbox.Source}
		logger.Info("kafka publisher enabled", "brokers", cfg.Kafka.Brokers)
	}

	var (
		store storage
		err   error
	)
	switch cfg.Storage.Driver {
	case config.StorageMongo:
		store, err = app.mongoStorage(ctx, cfg, publisher, logger)
	default:
		store = memoryStorage(cfg, publisher, logger)
	}
	if err != nil {
		return nil, err
	}
	app.spaces = store.spaces
	app.users = store.users

	var locker policies.SpaceLocker = memory.NewSpaceLocker()
	if cfg.Redis.Enabled() {
		client := goredis.NewClient(&goredis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.LockDB})
		app.closers = append(app.closers, func(context.Context) error { return client.Close() })
		app.probes["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		locker = &redislock.SpaceLocker{
			Client:      client,
			Prefix:      "spacebook:lock:space:",
			TTL:         cfg.Booking.LockTTL,
			WaitTimeout: cfg.Booking.LockWait,
			Logger:      logger,
		}
	}

	gateway, err := newGateway(cfg.Razorpay, logger)
	if err != nil {
		return nil, err
	}
	notifier := app.notifier(cfg, logger)

	if cfg.Booking.DefaultOpen != "" && cfg.Booking.DefaultClose != "" {
		domainspace.DefaultOperatingHours = domainspace.OperatingHours{Open: cfg.Booking.DefaultOpen, Close: cfg.Booking.DefaultClose}
	}

	hasher := security.BcryptHasher{Cost: cfg.Auth.BcryptCost}
	app.hasher = hasher
	authService := &authsvc.Service{
		Users:     store.users,
		Passwords: hasher,
		Tokens:    security.NewJWTCodec(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, nil),
		TokenTTL:  cfg.Auth.TokenTTL,
		Logger:    logger,
	}

	encoder := appoutbox.JSONEventEncoder{NewID: uuid.NewString}
	reconciler := &paymentapp.Reconciler{Notifier: notifier, Outbox: store.outbox, Encoder: encoder, Logger: logger}

	commandBus := commands.NewRegistry()
	commands.Register[spaceapp.CreateSpaceCommand, dto.SpaceDetails](commandBus, &spaceapp.CreateSpaceHandler{
		UoWFactory: store.factory, Outbox: store.outbox, Encoder: encoder, Logger: logger,
	})
	commands.Register[spaceapp.ReplacePricingCommand, dto.SpaceDetails](commandBus, &spaceapp.ReplacePricingHandler{
		UoWFactory: store.factory, Outbox: store.outbox, Encoder: encoder, Logger: logger,
	})
	commands.Register[reservationapp.CreateReservationCommand, *dto.ReservationDetails](commandBus, &reservationapp.CreateReservationHandler{
		UoWFactory: store.factory, Outbox: store.outbox, Encoder: encoder, Logger: logger,
	})
	commands.Register[reservationapp.TransitionCommand, dto.ReservationDetails](commandBus, &reservationapp.TransitionHandler{
		UoWFactory: store.factory, Outbox: store.outbox, Encoder: encoder, Logger: logger,
	})
	commands.Register[paymentapp.InitializePaymentCommand, *dto.CheckoutOrder](commandBus, &paymentapp.InitializePaymentHandler{
		UoWFactory: store.factory, Gateway: gateway, Outbox: store.outbox, Encoder: encoder, Logger: logger,
	})
	commands.Register[paymentapp.VerifyPaymentCommand, dto.PaymentVerification](commandBus, &paymentapp.VerifyPaymentHandler{
		UoWFactory: store.factory, Gateway: gateway, Reconciler: reconciler, Logger: logger,
	})
	commands.Register[paymentapp.RefundReservationCommand, *dto.RefundResult](commandBus, &paymentapp.RefundReservationHandler{
		UoWFactory: store.factory, Gateway: gateway, Reconciler: reconciler, Logger: logger,
	})
	commands.Register[paymentapp.HandleWebhookCommand, dto.WebhookAck](commandBus, &paymentapp.WebhookHandler{
		UoWFactory: store.factory, Logs: store.logs, Gateway: gateway, Reconciler: reconciler, Logger: logger,
	})

	queryBus := queries.NewRegistry()
	queries.Register[spaceapp.GetSpaceQuery, dto.SpaceDetails](queryBus, &spaceapp.GetSpaceHandler{UoWFactory: store.factory})
	queries.Register[spaceapp.SearchSpacesQuery, dto.SpaceCatalog](queryBus, &spaceapp.SearchSpacesHandler{UoWFactory: store.factory})
	queries.Register[spaceapp.ListSlotsQuery, dto.SlotList](queryBus, &spaceapp.ListSlotsHandler{UoWFactory: store.factory})
	queries.Register[reservationapp.CalculatePriceQuery, dto.PriceQuote](queryBus, &reservationapp.CalculatePriceHandler{UoWFactory: store.factory})
	queries.Register[reservationapp.AvailabilityQuery, dto.Availability](queryBus, &reservationapp.AvailabilityHandler{UoWFactory: store.factory})
	queries.Register[reservationapp.GetReservationQuery, dto.ReservationDetails](queryBus, &reservationapp.GetReservationHandler{UoWFactory: store.factory})
	queries.Register[reservationapp.ListMyReservationsQuery, dto.ReservationCollection](queryBus, &reservationapp.ListMyReservationsHandler{UoWFactory: store.factory})
	queries.Register[webhookapp.ListLogsQuery, dto.WebhookLogPage](queryBus, &webhookapp.ListLogsHandler{Logs: store.logs})
	queries.Register[webhookapp.StatsQuery, dto.WebhookStatsDTO](queryBus, &webhookapp.StatsHandler{Logs: store.logs})

	logger.Debug("bus wired", slog.Any("commands", commandBus.Keys()), slog.Any("queries", queryBus.Keys()))

	validator := middleware.NewStructValidator()
	commandsWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Logging(logger),
		middleware.Validation(validator),
		middleware.Authorization(middleware.RequireActor{}),
		middleware.Idempotency(store.idempotency, nil),
		middleware.OutboxFlush(store.outbox, logger),
		middleware.SpaceSerialization(locker),
		middleware.Retry(middleware.DefaultRetryPolicy, logger),
		middleware.Transaction(store.factory, nil),
	)
	queriesWithMiddleware := middleware.ChainQueries(
		queryBus,
		middleware.QueryValidation(validator),
		middleware.QueryAuthorization(middleware.RequireActor{}),
	)

	app.handlers = ginserver.Handlers{
		Auth:           ginserver.AuthHandler{Service: authService, Logger: logger},
		Spaces:         ginserver.SpaceHandler{Commands: commandsWithMiddleware, Queries: queriesWithMiddleware, Logger: logger},
		Reservations:   ginserver.ReservationHandler{Commands: commandsWithMiddleware, Queries: queriesWithMiddleware, Logger: logger},
		Payments:       ginserver.PaymentHandler{Commands: commandsWithMiddleware, Logger: logger},
		Webhooks:       ginserver.WebhookHandler{Commands: commandsWithMiddleware, Queries: queriesWithMiddleware, Logger: logger},
		AuthMiddleware: ginserver.AuthMiddleware{Tokens: authService, Logger: logger}.Handle,
		RateLimit:      ginserver.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, logger).Middleware(),
	}
	return app, nil
}

func memoryStorage(cfg config.Config, publisher infraoutbox.Publisher, logger *slog.Logger) storage {
	st := memory.NewStore()
	logger.Info("using in-memory storage")
	return storage{
		factory:     memory.Factory{Store: st},
		idempotency: memory.NewIdempotencyStore(cfg.Storage.IdempotencyTTL),
		logs:        memory.NewWebhookLogRepository(),
		outbox:      memory.NewOutbox(publisher, logger),
		spaces:      st.Spaces(),
		users:       st.Users(),
	}
}

func (a *application) mongoStorage(ctx context.Context, cfg config.Config, publisher infraoutbox.Publisher, logger *slog.Logger) (storage, error) {
	client, err := mongodb.New(ctx, cfg.Storage.MongoURI, cfg.Storage.MongoDB)
	if err != nil {
		return storage{}, errs.Wrap(err, "mongo connect")
	}
	a.closers = append(a.closers, client.Close)
	a.probes["mongo"] = client.Ping
	if err := client.EnsureIndexes(ctx); err != nil {
		return storage{}, errs.Wrap(err, "mongo indexes")
	}
	idempotency, err := mongodb.NewIdempotencyStore(ctx, client.DB, cfg.Storage.IdempotencyTTL)
	if err != nil {
		return storage{}, err
	}
	box, err := infraoutbox.NewStore(ctx, client.DB)
	if err != nil {
		return storage{}, err
	}
	if publisher == nil {
		publisher = infraoutbox.LogPublisher{Logger: logger}
	}
	relay := &infraoutbox.Worker{
		Store:     box,
		Publisher: publisher,
		Interval:  cfg.Outbox.PollInterval,
		Backoff:   cfg.Outbox.RetryBackoff,
		Logger:    logger,
	}
	a.runners = append(a.runners, relay.Run)
	logger.Info("using mongo storage", "database", cfg.Storage.MongoDB)
	return storage{
		factory:     mongodb.Factory{DB: client.DB},
		idempotency: idempotency,
		logs:        mongodb.NewWebhookLogRepository(client.DB),
		outbox:      box,
		spaces:      mongodb.NewSpaceRepository(client.DB),
		users:       mongodb.NewUserRepository(client.DB),
	}, nil
}

func newGateway(cfg config.RazorpayConfig, logger *slog.Logger) (policies.PaymentGateway, error) {
	if cfg.Mode == config.RazorpayLive {
		client, err := razorpay.NewClient(razorpay.Config{
			KeyID:         cfg.KeyID,
			KeySecret:     cfg.KeySecret,
			WebhookSecret: cfg.WebhookSecret,
			Timeout:       cfg.Timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	logger.Warn("razorpay running in fake mode")
	return razorpay.NewFake(cfg.KeySecret, cfg.WebhookSecret), nil
}

// notifier sends mail through asynq when redis is configured and in process
// otherwise.
func (a *application) notifier(cfg config.Config, logger *slog.Logger) policies.Notifier {
	var sender notify.Sender = notify.LogSender{Logger: logger}
	if cfg.SMTP.Enabled() {
		sender = notify.NewSMTPSender(notify.SMTPConfig{
			Host:               cfg.SMTP.Host,
			Port:               cfg.SMTP.Port,
			Username:           cfg.SMTP.Username,
			Password:           cfg.SMTP.Password,
			From:               cfg.SMTP.From,
			InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
		})
	}
	handler := &notify.Handler{Sender: sender, Logger: logger}

	var scheduler notify.Scheduler = &notify.InlineScheduler{Handle: handler.Handle, Logger: logger}
	if cfg.Redis.Enabled() {
		opt := asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.QueueDB}
		client := asynq.NewClient(opt)
		worker := notify.NewWorker(opt, cfg.Notifications.Queue, cfg.Notifications.Concurrency, handler)
		a.runners = append(a.runners, func(ctx context.Context) error {
			if err := worker.Start(); err != nil {
				return err
			}
			<-ctx.Done()
			worker.Shutdown()
			return nil
		})
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		scheduler = &notify.AsynqScheduler{Client: client, Queue: cfg.Notifications.Queue, MaxRetry: cfg.Notifications.MaxRetry}
	}
	return &notify.Dispatcher{Scheduler: scheduler, Logger: logger}
}

func (a *application) close(ctx context.Context, logger *slog.Logger) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logger.Warn("shutdown step failed", "error", err)
		}
	}
}
