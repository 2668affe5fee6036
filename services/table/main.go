package main

import (
	"context"
	"embed"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/middleware"
	"github.com/joho/godotenv"

	"github.com/appetiteclub/tableflow/pkg"
	"github.com/appetiteclub/tableflow/pkg/auth"
	"github.com/appetiteclub/tableflow/services/table/internal/mongo"
	"github.com/appetiteclub/tableflow/services/table/internal/tables"
)

//go:embed seed.json
var seedFS embed.FS

const (
	appNamespace = "TABLE"
	appName      = "table"
	appVersion   = "0.1.0"
)

func main() {
	_ = godotenv.Load()

	config, err := apt.LoadConfig(appNamespace, os.Args[1:])
	if err != nil {
		log.Fatalf("%s(%s) cannot setup with error: %v", appName, appVersion, err)
	}

	logLevel, _ := config.GetString("log.level")
	logger := apt.NewLogger(logLevel)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer stop()

	seedCtx, cancelSeeds := context.WithCancel(ctx)
	defer cancelSeeds()

	tableRepo := mongo.NewTableRepo(config, logger)
	if err := tableRepo.Start(ctx); err != nil {
		log.Fatalf("%s(%s) cannot start table repository: %v", appName, appVersion, err)
	}

	db := tableRepo.GetDatabase()
	if db == nil {
		log.Fatalf("%s(%s) cannot initialize database: %v", appName, appVersion, errors.New("table repo database is nil"))
	}

	natsURL := config.GetStringOrDef("nats.url", "nats://localhost:4222")

	publisher, err := pkg.NewNATSPublisher(natsURL, appName)
	if err != nil {
		log.Fatalf("%s(%s) cannot connect to NATS publisher: %v", appName, appVersion, err)
	}

	var gate *auth.Gate
	if secret, _ := config.GetString("auth.jwt.secret"); secret != "" {
		gate = auth.NewGate(auth.NewVerifier(secret), logger)
	} else {
		logger.Info("auth.jwt.secret not set, role gating disabled")
	}

	register := tables.NewRegister(tableRepo, publisher, logger)
	handler := tables.NewHandler(register, gate, config, logger)

	lifecycle := []interface{}{
		apt.LifecycleHooks{OnStop: tableRepo.Stop},
		apt.LifecycleHooks{
			OnStop: func(context.Context) error {
				return publisher.Close()
			},
		},
		apt.LifecycleHooks{
			OnStart: tables.SeedingFunc(seedCtx, tableRepo, db, seedFS, logger),
			OnStop: func(context.Context) error {
				cancelSeeds()
				return nil
			},
		},
	}

	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger:      logger,
		DisableCORS: true,
	})
	stack = append(stack, middleware.InternalOnly())

	options := []apt.Option{
		apt.WithConfig(config),
		apt.WithLogger(logger),
		apt.WithHTTPMiddleware(stack...),
		apt.WithHTTPServerModules("web.port", handler),
		apt.WithLifecycle(lifecycle...),
		apt.WithHealthChecks(appName),
	}

	ms := apt.NewMicro(options...)
	logger.Infof("Starting %s(%s)", appName, appVersion)

	if err := ms.Run(ctx); err != nil {
		_ = tableRepo.Stop(context.Background())
		log.Fatalf("%s(%s) stopped with error: %v", appName, appVersion, err)
	}

	logger.Infof("%s(%s) stopped", appName, appVersion)
}
