package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/middleware"
	"github.com/joho/godotenv"

	"github.com/appetiteclub/tableflow/pkg"
	"github.com/appetiteclub/tableflow/pkg/auth"
	"github.com/appetiteclub/tableflow/pkg/event"
	"github.com/appetiteclub/tableflow/services/order/internal/billing"
	"github.com/appetiteclub/tableflow/services/order/internal/clients"
	"github.com/appetiteclub/tableflow/services/order/internal/live"
	"github.com/appetiteclub/tableflow/services/order/internal/mongo"
	"github.com/appetiteclub/tableflow/services/order/internal/order"
	"github.com/appetiteclub/tableflow/services/order/internal/views"
)

const (
	appNamespace = "ORDER"
	appName      = "order"
	appVersion   = "0.1.0"
)

func main() {
	_ = godotenv.Load()

	config, err := apt.LoadConfig(appNamespace, os.Args[1:])
	if err != nil {
		log.Fatalf("%s(%s) cannot setup: %v", appName, appVersion, err)
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

	baseRepo := mongo.NewBaseRepo(config, logger)
	if err := baseRepo.Start(ctx); err != nil {
		log.Fatalf("%s(%s) cannot start base repository: %v", appName, appVersion, err)
	}

	db := baseRepo.GetDatabase()
	if db == nil {
		log.Fatalf("%s(%s) cannot initialize repository database: %v", appName, appVersion, errors.New("repository database is nil"))
	}

	orderRepo := mongo.NewOrderRepo(db)
	if err := orderRepo.EnsureIndexes(ctx); err != nil {
		log.Fatalf("%s(%s) cannot create order indexes: %v", appName, appVersion, err)
	}

	natsURL := config.GetStringOrDef("nats.url", "nats://localhost:4222")

	pub, err := pkg.NewNATSPublisher(natsURL, appName)
	if err != nil {
		log.Fatalf("%s(%s) cannot connect to NATS publisher: %v", appName, appVersion, err)
	}

	sub, err := pkg.NewNATSSubscriber(natsURL, appName, logger)
	if err != nil {
		log.Fatalf("%s(%s) cannot connect to NATS subscriber: %v", appName, appVersion, err)
	}

	// Each replica needs its own durable name so every live feed sees every
	// order event.
	orderStream, err := pkg.NewNATSStream(ctx, pkg.NATSStreamConfig{
		URL:          natsURL,
		StreamName:   event.OrderStreamName,
		Topic:        event.OrderLifecycleTopic,
		ConsumerName: config.GetStringOrDef("live.consumer", "order-live"),
		MaxAge:       24 * time.Hour,
	}, logger)
	if err != nil {
		log.Fatalf("%s(%s) cannot open order event stream: %v", appName, appVersion, err)
	}

	tableURL, _ := config.GetString("services.table.url")
	menuURL, _ := config.GetString("services.menu.url")
	tableClient := clients.NewTableClient(apt.NewServiceClient(tableURL))
	menuClient := clients.NewMenuClient(apt.NewServiceClient(menuURL))

	tableStateCache := order.NewTableStateCache(tableClient, logger)
	tableStatusSub := order.NewTableStatusSubscriber(sub, tableStateCache, logger)

	var gate *auth.Gate
	if secret, _ := config.GetString("auth.jwt.secret"); secret != "" {
		gate = auth.NewGate(auth.NewVerifier(secret), logger)
	} else {
		logger.Info("auth.jwt.secret not set, role gating disabled")
	}

	manager := order.NewManager(order.ManagerDeps{
		Repo:      orderRepo,
		Tables:    tableClient,
		Menu:      menuClient,
		Publisher: pub,
	}, logger)

	delay, err := time.ParseDuration(config.GetStringOrDef("billing.payment.delay", billing.DefaultPaymentDelay.String()))
	if err != nil {
		log.Fatalf("%s(%s) invalid billing.payment.delay: %v", appName, appVersion, err)
	}
	nodeID, err := strconv.ParseInt(config.GetStringOrDef("billing.node.id", "1"), 10, 64)
	if err != nil {
		log.Fatalf("%s(%s) invalid billing.node.id: %v", appName, appVersion, err)
	}
	profile, err := billing.LoadProfile(config.GetStringOrDef("restaurant.profile", ""))
	if err != nil {
		logger.Info("using default restaurant profile", "error", err)
	}

	resolver, err := billing.NewResolver(manager, billing.Options{
		Delay:   delay,
		Profile: profile,
		NodeID:  nodeID,
	}, logger)
	if err != nil {
		log.Fatalf("%s(%s) cannot create billing resolver: %v", appName, appVersion, err)
	}

	aggregator := views.NewAggregator(manager, tableStateCache)

	hub := live.NewHub(live.NewStore(manager, tableStateCache, menuClient), logger)
	feed := live.NewFeed(hub, orderStream, sub, logger)
	liveGRPC := live.NewGRPCServer(hub, logger)

	orderHandler := order.NewHandler(manager, gate, config, logger)
	billingHandler := billing.NewHandler(resolver, gate, logger)
	viewsHandler := views.NewHandler(aggregator, gate, logger)
	liveHandler := live.NewHandler(hub, gate, logger)

	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger:      logger,
		DisableCORS: true,
	})
	stack = append(stack, middleware.InternalOnly())

	lifecycles := []interface{}{
		apt.LifecycleHooks{OnStop: baseRepo.Stop},
		apt.LifecycleHooks{OnStart: tableStatusSub.Start},
		apt.LifecycleHooks{OnStart: feed.Start},
		apt.LifecycleHooks{
			OnStop: func(context.Context) error {
				return orderStream.Close()
			},
		},
		apt.LifecycleHooks{
			OnStop: func(context.Context) error {
				return pub.Close()
			},
		},
		apt.LifecycleHooks{
			OnStop: func(context.Context) error {
				return sub.Close()
			},
		},
	}

	options := []apt.Option{
		apt.WithConfig(config),
		apt.WithLogger(logger),
		apt.WithHTTPMiddleware(stack...),
		apt.WithHTTPServerModules("web.port", orderHandler, billingHandler, viewsHandler, liveHandler),
		apt.WithGRPCServerModules("grpc.port", liveGRPC),
		apt.WithLifecycle(lifecycles...),
		apt.WithHealthChecks(appName),
	}

	ms := apt.NewMicro(options...)
	logger.Infof("Starting %s(%s)", appName, appVersion)

	if err := ms.Run(ctx); err != nil {
		_ = baseRepo.Stop(context.Background())
		log.Fatalf("%s(%s) stopped: %v", appName, appVersion, err)
	}

	logger.Infof("%s(%s) stopped", appName, appVersion)
}
