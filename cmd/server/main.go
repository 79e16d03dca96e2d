package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/concert-ticketing/internal/billing"
	"github.com/iliyamo/concert-ticketing/internal/booking"
	"github.com/iliyamo/concert-ticketing/internal/config"
	"github.com/iliyamo/concert-ticketing/internal/database"
	"github.com/iliyamo/concert-ticketing/internal/handler"
	"github.com/iliyamo/concert-ticketing/internal/inventory"
	"github.com/iliyamo/concert-ticketing/internal/logger"
	"github.com/iliyamo/concert-ticketing/internal/middleware"
	"github.com/iliyamo/concert-ticketing/internal/queue"
	"github.com/iliyamo/concert-ticketing/internal/repository"
	"github.com/iliyamo/concert-ticketing/internal/router"
	"github.com/iliyamo/concert-ticketing/internal/service"
	"github.com/iliyamo/concert-ticketing/internal/storage"
)

// stores groups the three persistence ports so that the MySQL
// repositories and the in-memory store are interchangeable.
type stores struct {
	concerts service.ConcertStore
	tickets  inventory.TicketStore
	orders   booking.OrderStore
	db       handler.Pinger
	close    func() error
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "reading .env: %v\n", err)
	}
	boot := logger.New(logger.LevelInfo)
	cfg, err := config.Load()
	if err != nil {
		boot.Fatal("CONFIG", err.Error())
	}
	log := logger.New(logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal("STORE", err.Error())
	}
	defer st.close()

	var rdb *redis.Client
	if client, err := config.NewRedisClient(ctx, config.LoadRedisConfig()); err == nil {
		rdb = client
		defer rdb.Close()
		log.LogProcess("REDIS", "connected")
	} else if cfg.LockDriver == config.LockRedis {
		log.Fatal("REDIS", err.Error())
	} else {
		log.Warn("REDIS", fmt.Sprintf("unavailable, cache and shared rate limits disabled: %v", err))
	}

	var locker inventory.Locker = inventory.NewLocalLocker(cfg.LockWait)
	if cfg.LockDriver == config.LockRedis {
		locker = inventory.NewRedisLocker(rdb, cfg.LockTTL, cfg.LockWait, log)
	}
	inv := inventory.New(st.tickets, locker, log)

	gateway, err := newGateway(cfg, log)
	if err != nil {
		log.Fatal("PAYMENT", err.Error())
	}
	codes, err := booking.NewHashidsTicketCodes(cfg.TicketCodeSalt)
	if err != nil {
		log.Fatal("BOOKING", err.Error())
	}
	orders := booking.NewOrders(st.orders, booking.RandomConfirmationNumber, codes.GenerateFor)

	publisher, err := newPublisher(cfg, log)
	if err != nil {
		log.Fatal("QUEUE", err.Error())
	}
	defer publisher.Close()
	if cfg.EventBroker == config.BrokerRabbitMQ {
		go func() {
			if err := queue.StartOrderConsumer(ctx, cfg.RabbitMQURL, cfg.OrdersLogDir, log); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("QUEUE", fmt.Sprintf("order consumer stopped: %v", err))
			}
		}()
	}

	purchases := service.NewPurchaseService(st.concerts, inv, gateway, orders, publisher, log)
	backstage := service.NewBackstageService(st.concerts, inv, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))
	router.RegisterRoutes(e, router.Deps{
		Log:       log,
		JWTSecret: cfg.JWTSecret,
		Redis:     rdb,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		DB:        st.db,
		Orders:    handler.NewOrderHandler(purchases, log),
		Concerts:  &handler.ConcertHandler{Purchases: purchases, Log: log},
		Backstage: &handler.BackstageHandler{Backstage: backstage, Log: log},
	})

	addr := ":" + cfg.Port
	go func() {
		log.LogProcess("HTTP", fmt.Sprintf("listening on %s (env=%s store=%s payment=%s broker=%s lock=%s)",
			addr, cfg.Env, cfg.StoreDriver, cfg.PaymentDriver, cfg.EventBroker, cfg.LockDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP", err.Error())
		}
	}()

	<-ctx.Done()
	log.LogProcess("HTTP", "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP", fmt.Sprintf("shutdown: %v", err))
	}
}

func openStores(ctx context.Context, cfg config.Config, log *logger.Logger) (stores, error) {
	if cfg.StoreDriver == config.StoreMemory {
		mem := storage.NewMemoryStore()
		log.LogProcess("STORE", "using in-memory store; data is lost on exit")
		return stores{concerts: mem, tickets: mem, orders: mem, close: func() error { return nil }}, nil
	}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return stores{}, fmt.Errorf("open mysql: %w", err)
	}
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			db.Close()
			return stores{}, err
		}
		log.LogDatabase("migrate", "concerts,tickets,orders", "schema up to date")
	}
	log.LogProcess("STORE", fmt.Sprintf("connected to mysql %s:%s/%s", cfg.DBHost, cfg.DBPort, cfg.DBName))
	return stores{
		concerts: repository.NewConcertRepo(db),
		tickets:  repository.NewTicketRepo(db),
		orders:   repository.NewOrderRepo(db),
		db:       db,
		close:    db.Close,
	}, nil
}

func newGateway(cfg config.Config, log *logger.Logger) (billing.Gateway, error) {
	if cfg.PaymentDriver == config.PaymentStripe {
		return billing.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeCurrency, log)
	}
	if cfg.Env == "prod" {
		return nil, errors.New("the fake payment gateway cannot run in prod")
	}
	log.Warn("PAYMENT", "using fake gateway; token "+billing.TestToken+" always succeeds")
	return billing.NewFakeGateway(), nil
}

func newPublisher(cfg config.Config, log *logger.Logger) (service.EventPublisher, error) {
	switch cfg.EventBroker {
	case config.BrokerRabbitMQ:
		return service.NewRabbitPublisher(cfg.RabbitMQURL, log), nil
	case config.BrokerKafka:
		return service.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
	}
	return service.NewLogPublisher(log), nil
}
