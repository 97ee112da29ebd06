package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stayfinder/internal/app/commands"
	bookingapp "stayfinder/internal/app/handlers/booking"
	"stayfinder/internal/app/middleware"
	appoutbox "stayfinder/internal/app/outbox"
	"stayfinder/internal/app/queries"
	"stayfinder/internal/app/uow"
	domainproperty "stayfinder/internal/domain/property"
	"stayfinder/internal/infra/broker/kafka"
	"stayfinder/internal/infra/config"
	mongodb "stayfinder/internal/infra/db/mongo"
	ginserver "stayfinder/internal/infra/http/gin"
	"stayfinder/internal/infra/notify/sse"
	"stayfinder/internal/infra/obs"
	infraoutbox "stayfinder/internal/infra/outbox"
	"stayfinder/internal/infra/storage/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration invalid", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)

	hub := sse.NewHub(logger)
	go hub.RunPinger(ctx, cfg.SSEPingInterval)

	app, err := buildApplication(cfg, logger, hub)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}

	if app.worker != nil {
		go func() {
			if err := app.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers ginserver.Handlers
	worker   *infraoutbox.Worker
	ready    func() error
}

func buildApplication(cfg config.Config, logger *slog.Logger, hub *sse.Hub) (application, error) {
	var (
		factory uow.UoWFactory
		box     appoutbox.Outbox
		queue   infraoutbox.Queue
		ready   = func() error { return nil }
	)

	switch cfg.StorageMode {
	case config.StorageMongo:
		client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return application{}, err
		}
		store := infraoutbox.NewStore(client.DB)
		factory = mongodb.Factory{
			DB:           client.DB,
			PropertyRepo: mongodb.NewPropertyRepository(client.DB),
			BookingRepo:  mongodb.NewBookingRepository(client.DB),
			LedgerRepo:   mongodb.NewLedgerRepository(client.DB),
		}
		box = store
		queue = store
		ready = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}
	default:
		propertyStore := memory.NewPropertyStore()
		if cfg.PropertyFixtures != "" {
			if err := loadPropertyFixtures(propertyStore, cfg.PropertyFixtures); err != nil {
				logger.Warn("property fixtures load failed", "error", err, "path", cfg.PropertyFixtures)
			}
		}
		memBox := memory.NewOutbox()
		factory = memory.Factory{
			PropertyStore: propertyStore,
			BookingRepo:   memory.NewBookingRepository(),
			LedgerRepo:    memory.NewLedgerRepository(),
		}
		box = memBox
		queue = infraoutbox.NewMemoryQueue(memBox)
	}

	locks := bookingapp.NewPropertyLocks()
	encoder := appoutbox.JSONEventEncoder{}

	commandBus := commands.NewInMemoryBus()
	commands.Register(commandBus, bookingapp.CreateBookingCommand{}.Key(), &bookingapp.CreateBookingHandler{
		UoWFactory: factory,
		Outbox:     box,
		Encoder:    encoder,
		Notifier:   hub,
		Logger:     logger,
	})
	commands.Register(commandBus, bookingapp.AcceptBookingCommand{}.Key(), &bookingapp.AcceptBookingHandler{
		UoWFactory: factory,
		Outbox:     box,
		Encoder:    encoder,
		Locks:      locks,
		Logger:     logger,
	})
	commands.Register(commandBus, bookingapp.CancelBookingCommand{}.Key(), &bookingapp.CancelBookingHandler{
		UoWFactory: factory,
		Outbox:     box,
		Encoder:    encoder,
		Locks:      locks,
		Logger:     logger,
	})
	wrappedCommands := middleware.ChainCommands(commandBus,
		middleware.OutboxFlush(box),
		middleware.Transaction(factory, nil),
	)

	queryBus := queries.NewInMemoryBus()
	queries.Register(queryBus, bookingapp.GetBookingQuery{}.Key(), &bookingapp.GetBookingHandler{UoWFactory: factory})
	queries.Register(queryBus, bookingapp.ListBookingsQuery{}.Key(), &bookingapp.ListBookingsHandler{UoWFactory: factory})

	var worker *infraoutbox.Worker
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			return application{}, err
		}
		worker = &infraoutbox.Worker{
			Queue:       queue,
			Producer:    producer,
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
			Backoff:     cfg.RetryBackoff,
		}
	} else {
		logger.Warn("kafka brokers not configured, booking events stay in the outbox")
	}

	return application{
		handlers: ginserver.Handlers{
			Booking:       ginserver.BookingHandler{Commands: wrappedCommands, Queries: queryBus},
			Notifications: ginserver.NotificationHandler{Hub: hub},
		},
		worker: worker,
		ready:  ready,
	}, nil
}

type propertyFixture struct {
	ID                 string `json:"id"`
	OwnerID            string `json:"owner_id"`
	Name               string `json:"name"`
	MaxGuests          int    `json:"max_guests"`
	PricePerNightCents int64  `json:"price_per_night_cents"`
	Active             bool   `json:"is_active"`
}

func loadPropertyFixtures(store *memory.PropertyStore, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fixtures []propertyFixture
	if err := json.Unmarshal(raw, &fixtures); err != nil {
		return err
	}
	props := make([]domainproperty.Property, 0, len(fixtures))
	for _, f := range fixtures {
		props = append(props, domainproperty.Property{
			ID:                 domainproperty.PropertyID(f.ID),
			OwnerID:            f.OwnerID,
			Name:               f.Name,
			MaxGuests:          f.MaxGuests,
			PricePerNightCents: f.PricePerNightCents,
			Active:             f.Active,
		})
	}
	store.Seed(props...)
	return nil
}
