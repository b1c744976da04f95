package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/CampusConnectNG/CampusConnect/app/controllers"
	"github.com/CampusConnectNG/CampusConnect/app/repository"
	"github.com/CampusConnectNG/CampusConnect/internal/pkg/cache"
	"github.com/CampusConnectNG/CampusConnect/internal/pkg/database"
	"github.com/CampusConnectNG/CampusConnect/internal/pkg/env"
	"github.com/CampusConnectNG/CampusConnect/internal/pkg/gateway"
	"github.com/CampusConnectNG/CampusConnect/internal/pkg/jobqueue"
	"github.com/CampusConnectNG/CampusConnect/internal/pkg/ledger"
	"github.com/CampusConnectNG/CampusConnect/internal/pkg/payments"
	"github.com/CampusConnectNG/CampusConnect/internal/pkg/router"
)

func main() {
	app, queue := NewApplication()
	queue.Start()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		queue.Stop()
		_ = app.Shutdown()
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() (*fiber.App, *jobqueue.Queue) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	db := database.GetDB()
	factory := repository.NewFactory(db)
	repository.SetGlobalFactory(factory)
	repos := factory.GetRepositories()

	registry := gateway.NewRegistry(repos.GatewayConfig, env.GetEnv("APP_PUBLIC_URL", "http://localhost:4000"))
	ledgerSvc := ledger.NewService(repos.Wallet, 30*time.Second)

	queue := jobqueue.NewQueue(3)
	paymentsSvc := payments.NewService(db, repos, ledgerSvc, registry, jobqueue.NewEnqueuer(queue))
	queue.RegisterProcessor(jobqueue.JobTypeSideEffectRetry, jobqueue.NewSideEffectProcessor(paymentsSvc))

	controllers.InitServices(ledgerSvc, paymentsSvc, registry)

	app := fiber.New(fiber.Config{
		AppName: "CampusConnect",
	})
	app.Use(recover.New(), logger.New())
	app.Get("/metrics", monitor.New())

	router.InstallRouter(app)

	return app, queue
}
