package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"deskhub/internal/app/commands"
	officeapp "deskhub/internal/app/handlers/offices"
	tagapp "deskhub/internal/app/handlers/tags"
	"deskhub/internal/app/middleware"
	appoutbox "deskhub/internal/app/outbox"
	"deskhub/internal/app/queries"
	"deskhub/internal/app/uow"
	domaintags "deskhub/internal/domain/tags"
	domainusers "deskhub/internal/domain/users"
	"deskhub/internal/infra/broker/kafka"
	"deskhub/internal/infra/config"
	dbmongo "deskhub/internal/infra/db/mongo"
	ginserver "deskhub/internal/infra/http/gin"
	"deskhub/internal/infra/obs"
	infraoutbox "deskhub/internal/infra/outbox"
	"deskhub/internal/infra/storage/memory"
	"deskhub/internal/infra/storage/s3"
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

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	seedPath := os.Getenv("SEED_FILE")
	if seedPath == "" {
		seedPath = defaultSeedPath()
	}
	if err := app.loadSeed(ctx, seedPath, logger); err != nil {
		logger.Warn("seed load failed", "error", err, "path", seedPath)
	}

	if app.worker != nil {
		go func() {
			if err := app.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "store", cfg.StoreMode)
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

	tags  domaintags.Repository
	users domainusers.Repository
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (application, error) {
	var (
		factory  uow.Factory
		box      appoutbox.Outbox
		worker   *infraoutbox.Worker
		ready    = func() error { return nil }
		tagRepo  domaintags.Repository
		userRepo domainusers.Repository
	)

	switch cfg.StoreMode {
	case "mongo":
		client, err := dbmongo.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return application{}, fmt.Errorf("connect mongo: %w", err)
		}
		offices := dbmongo.NewOfficeRepository(client.DB)
		reservations := dbmongo.NewReservationRepository(client.DB)
		tags := dbmongo.NewTagRepository(client.DB)
		users := dbmongo.NewUserRepository(client.DB)
		if err := offices.EnsureIndexes(ctx); err != nil {
			return application{}, fmt.Errorf("ensure office indexes: %w", err)
		}
		if err := reservations.EnsureIndexes(ctx); err != nil {
			return application{}, fmt.Errorf("ensure reservation indexes: %w", err)
		}
		store := infraoutbox.NewStore(client.DB)

		factory = dbmongo.Factory{
			DB:               client.DB,
			OfficesRepo:      offices,
			ReservationsRepo: reservations,
			TagsRepo:         tags,
			UsersRepo:        users,
		}
		box = store
		ready = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}
		tagRepo, userRepo = tags, users

		if len(cfg.KafkaBrokers) > 0 {
			producer, err := kafka.NewProducer(cfg.KafkaBrokers, "deskhub-outbox", nil)
			if err != nil {
				return application{}, fmt.Errorf("connect kafka: %w", err)
			}
			worker = &infraoutbox.Worker{
				Store:       store,
				Producer:    producer,
				Logger:      logger,
				Interval:    cfg.OutboxPollInterval,
				TopicPrefix: cfg.KafkaTopicPrefix,
				Backoff:     cfg.RetryBackoff,
			}
		} else {
			logger.Warn("no kafka brokers configured, outbox records will accumulate unsent")
		}
	default:
		offices := memory.NewOfficeRepository()
		reservations := memory.NewReservationRepository()
		tags := memory.NewTagRepository()
		users := memory.NewUserRepository()
		factory = memory.Factory{
			OfficesRepo:      offices,
			ReservationsRepo: reservations,
			TagsRepo:         tags,
			UsersRepo:        users,
		}
		box = memory.NewOutbox()
		tagRepo, userRepo = tags, users
	}

	var blobs s3.Store
	if cfg.S3Endpoint != "" {
		client, err := s3.NewClient(cfg.S3Endpoint, cfg.S3UseSSL, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, logger)
		if err != nil {
			logger.Warn("object storage unavailable, image uploads disabled", "error", err)
			blobs = s3.NoopStore{}
		} else {
			blobs = client
		}
	} else {
		blobs = s3.NoopStore{}
	}

	encoder := appoutbox.JSONEventEncoder{}

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, officeapp.CreateOfficeCommand{}.Key(), &officeapp.CreateOfficeHandler{
		Logger: logger, Outbox: box, Encoder: encoder,
	})
	commands.RegisterHandler(commandBus, officeapp.UpdateOfficeCommand{}.Key(), &officeapp.UpdateOfficeHandler{
		Logger: logger, Outbox: box, Encoder: encoder,
	})
	commands.RegisterHandler(commandBus, officeapp.DeleteOfficeCommand{}.Key(), &officeapp.DeleteOfficeHandler{
		Logger: logger, Outbox: box, Encoder: encoder,
	})
	commands.RegisterHandler(commandBus, officeapp.UploadOfficeImageCommand{}.Key(), &officeapp.UploadOfficeImageHandler{
		Logger: logger, Blobs: blobs,
	})
	commands.RegisterHandler(commandBus, officeapp.DeleteOfficeImageCommand{}.Key(), &officeapp.DeleteOfficeImageHandler{
		Logger: logger, Blobs: blobs,
	})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, officeapp.SearchOfficesQuery{}.Key(), &officeapp.SearchOfficesHandler{Factory: factory})
	queries.RegisterHandler(queryBus, officeapp.GetOfficeQuery{}.Key(), &officeapp.GetOfficeHandler{Factory: factory})
	queries.RegisterHandler(queryBus, tagapp.ListTagsQuery{}.Key(), &tagapp.ListTagsHandler{Factory: factory})

	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Transaction(factory, nil),
		middleware.OutboxFlush(box),
	)
	queryBusWithMiddleware := middleware.ChainQueries(queryBus)

	auth := ginserver.AuthMiddleware{Secret: []byte(cfg.JWTSecret), Logger: logger}

	return application{
		handlers: ginserver.Handlers{
			Office: ginserver.OfficeHandler{
				Commands: commandBusWithMiddleware,
				Queries:  queryBusWithMiddleware,
				Logger:   logger,
			},
			OfficeImage: ginserver.OfficeImageHandler{
				Commands: commandBusWithMiddleware,
				Logger:   logger,
			},
			Tag: ginserver.TagHandler{
				Queries: queryBusWithMiddleware,
				Logger:  logger,
			},
			AuthMiddleware: auth.Handle,
		},
		worker: worker,
		ready:  ready,
		tags:   tagRepo,
		users:  userRepo,
	}, nil
}

// loadSeed imports the tag catalog and user directory from a JSON file. Both
// are owned by other services in production; the seed keeps local runs and
// demos self-contained.
func (a application) loadSeed(ctx context.Context, path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("seed file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read seed: %w", err)
	}

	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("decode seed: %w", err)
	}

	for _, t := range seed.Tags {
		tag := &domaintags.Tag{ID: domaintags.TagID(t.ID), Name: t.Name}
		if err := a.tags.Save(ctx, tag); err != nil {
			logger.Error("cannot store seed tag", "tag_id", t.ID, "error", err)
			continue
		}
	}
	for _, u := range seed.Users {
		user := &domainusers.User{
			ID:        domainusers.UserID(u.ID),
			Name:      u.Name,
			Email:     u.Email,
			IsAdmin:   u.IsAdmin,
			CreatedAt: time.Now().UTC(),
		}
		if err := a.users.Save(ctx, user); err != nil {
			logger.Error("cannot store seed user", "user_id", u.ID, "error", err)
			continue
		}
	}
	logger.Info("seed imported", "tags", len(seed.Tags), "users", len(seed.Users))
	return nil
}

type seedFile struct {
	Tags []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"tags"`
	Users []struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		IsAdmin bool   `json:"is_admin"`
	} `json:"users"`
}

func defaultSeedPath() string {
	return filepath.Join("data", "seed.json")
}
