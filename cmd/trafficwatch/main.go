package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ManuelReschke/TrafficWatch/app/controllers"
	"github.com/ManuelReschke/TrafficWatch/app/models"
	"github.com/ManuelReschke/TrafficWatch/app/repository"
	apiv1 "github.com/ManuelReschke/TrafficWatch/internal/api/v1"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/appcontext"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/auth"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/cache"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/database"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/env"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/mail"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/platform"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/router"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/storage"
	"github.com/ManuelReschke/TrafficWatch/views"
)

func main() {
	app, shutdown := NewApplication()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		fiberlog.Info("[Main] Shutting down")
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	shutdown()
	if err != nil {
		log.Fatal(err)
	}
}

// findBasePath locates the directory holding public/, for runs from the
// project root as well as from cmd/trafficwatch.
func findBasePath() string {
	for _, path := range []string{"./", "../../", "../../../"} {
		if _, err := os.Stat(path + "public"); !os.IsNotExist(err) {
			return path
		}
	}
	panic("Could not find project root directory")
}

// NewApplication wires the backend services and returns the app together
// with a function releasing them.
func NewApplication() (*fiber.App, func()) {
	env.SetupEnvFile()
	siteURL := env.MustGetEnv("BACKEND_URL")
	anonKey := env.MustGetEnv("BACKEND_ANON_KEY")
	jwtSecret, err := platform.SigningSecret(env.MustGetEnv("JWT_SECRET"), anonKey)
	if err != nil {
		panic(err)
	}
	basePath := findBasePath()
	ctx := context.Background()

	if _, err := apiv1.LoadSpec(ctx, basePath+"public/docs/v1/openapi.yml"); err != nil {
		panic(err)
	}

	database.SetupDatabase()
	repository.InitializeFactory(database.GetDB())
	repos := repository.GetGlobalFactory().GetRepositories()
	controllers.InitializeAdminController(repos)

	cacheClient := cache.SetupCache()

	// auth events fan out across instances when redis is available
	var bus platform.EventBus = platform.NewMemoryBus()
	if cacheClient != nil {
		redisBus, err := platform.NewRedisBus(ctx, cacheClient, platform.DefaultEventChannel)
		if err != nil {
			fiberlog.Warnf("[Main] Redis event bus unavailable, using in-process bus: %v", err)
		} else {
			bus = redisBus
		}
	}

	// blobs: S3 when configured, otherwise in memory and served by the app
	var blobs platform.BlobStore
	var memoryBlobs *platform.MemoryBlobStore
	s3Config, err := storage.LoadConfig()
	if err != nil {
		panic(err)
	}
	if s3Config.IsEnabled() {
		s3Store, err := storage.NewS3Store(ctx, s3Config)
		if err != nil {
			panic(err)
		}
		if err := s3Store.EnsureBuckets(ctx, models.BUCKET_COMPLAINT_IMAGES, models.BUCKET_USER_DOCUMENTS); err != nil {
			fiberlog.Errorf("[Main] S3 buckets not ready: %v", err)
		}
		blobs = s3Store
	} else {
		memoryBlobs = platform.NewMemoryBlobStore(siteURL)
		blobs = memoryBlobs
		fiberlog.Warn("[Main] S3 disabled, uploads are kept in memory")
	}

	var mailer platform.Mailer = mail.LogMailer{}
	if smtp := mail.NewSMTPMailerFromEnv(); smtp.Configured() {
		mailer = smtp
	}

	registry := appcontext.NewRegistry(appcontext.Dependencies{
		Auth:         platform.NewAuthService(repos.Identity, mailer, platform.DefaultAuthConfig(jwtSecret)),
		Bus:          bus,
		Repositories: repos,
		Blobs:        blobs,
		Redis:        cacheClient,
		AuthConfig:   auth.DefaultConfig(siteURL),
	})
	registry.Start()

	// init fiber app
	app := fiber.New(fiber.Config{
		Views:     views.NewEngine(env.IsDev()),
		BodyLimit: 60 * 1024 * 1024, // largest document plus form overhead
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "admin"),
		},
	}), monitor.New())

	// static files
	app.Static("/", basePath+"public/assets", fiber.Static{
		CacheDuration: 15 * time.Second,
		Compress:      true,
	})

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app, router.Config{
		Registry: registry,
		Cache:    cacheClient,
		SiteURL:  siteURL,
		AnonKey:  anonKey,
		Blobs:    memoryBlobs,
	})

	shutdown := func() {
		registry.Stop()
		if err := bus.Close(); err != nil {
			fiberlog.Warnf("[Main] Closing event bus: %v", err)
		}
		cache.Close()
	}
	return app, shutdown
}
