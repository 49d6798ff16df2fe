package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ikechukwuoha/clientportalapp-render/app/controllers"
	"github.com/ikechukwuoha/clientportalapp-render/app/repository"
	"github.com/ikechukwuoha/clientportalapp-render/internal/pkg/cache"
	"github.com/ikechukwuoha/clientportalapp-render/internal/pkg/database"
	"github.com/ikechukwuoha/clientportalapp-render/internal/pkg/env"
	"github.com/ikechukwuoha/clientportalapp-render/internal/pkg/jobqueue"
	"github.com/ikechukwuoha/clientportalapp-render/internal/pkg/router"
)

func main() {
	app := NewApplication()

	// Graceful shutdown: drain the job queue before the process exits.
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		jobqueue.GetManager().Stop()
		_ = app.Shutdown()
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	// Start background workers and give the queue its retry processor.
	manager := jobqueue.GetManager()
	manager.GetQueue().SetProvisioner(controllers.GetProvisioningService())
	manager.Start()

	app := fiber.New(fiber.Config{
		AppName: "clientportal",
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}
