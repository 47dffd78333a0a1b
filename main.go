package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/spf13/cobra"

	"supplymarket/internal/config"
	"supplymarket/internal/database"
	"supplymarket/internal/handlers"
	"supplymarket/internal/repositories"
	"supplymarket/internal/services"
	"supplymarket/pkg/objectstore"
	"supplymarket/pkg/rabbitmq"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:          "supplymarket",
		Short:        "Construction supply marketplace API",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	loadConfig := func() (*config.Config, error) {
		return config.Load(configPath)
	}
	root.AddCommand(newServeCmd(loadConfig), newMigrateCmd(loadConfig), newSeedCmd(loadConfig))
	return root
}

func newServeCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func serve(cfg *config.Config) error {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return err
	}
	if cfg.Database.Driver == "sqlite" {
		if err := database.AutoMigrate(db); err != nil {
			return err
		}
	}
	store := repositories.NewStore(db)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// --- Initialize RabbitMQ Client ---
	// A nil publisher disables events without failing requests.
	var publisher services.EventPublisher
	var mqClient *rabbitmq.Client
	if cfg.RabbitMQ.Enabled {
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQ.URL, Exchange: cfg.RabbitMQ.Exchange})
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ client: %w", err)
		}
		defer mqClient.Close()
		publisher = mqClient
	}

	var uploader services.LogoUploader
	if cfg.Storage.Enabled {
		s3Uploader, err := objectstore.NewS3Uploader(ctx, objectstore.Config{
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			Endpoint:  cfg.Storage.Endpoint,
			PublicURL: cfg.Storage.PublicURL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize logo storage: %w", err)
		}
		uploader = s3Uploader
	}

	svc := buildServices(cfg, store, publisher, uploader)

	if mqClient != nil {
		notifications := services.NewNotificationService(store)
		log.Println("Starting RabbitMQ consumer for marketplace events...")
		if err := mqClient.Consume(cfg.RabbitMQ.Queue, notifications.Bindings(), notifications.HandleEvent); err != nil {
			log.Printf("Failed to start RabbitMQ consumer: %v", err)
		}
	}

	go svc.Offer.RunExpiry(ctx, cfg.Offers.ExpiryInterval)

	app := newApp(store, svc)

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Starting server on port %s", cfg.App.Port)
		serverErr <- app.Listen(cfg.App.Port)
	}()

	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("server failed to start: %w", err)
	}
	log.Println("Shutting down server...")
	stop()

	if err := app.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
	return nil
}

// buildServices wires the services on top of store.
func buildServices(cfg *config.Config, store *repositories.Store, publisher services.EventPublisher, uploader services.LogoUploader) handlers.Services {
	return handlers.Services{
		Auth:    services.NewAuthService(store.Users, cfg.JWT.Secret, cfg.JWT.TTL),
		Catalog: services.NewCatalogService(store.Regions, store.Categories),
		Company: services.NewCompanyService(store, uploader),
		Product: services.NewProductService(store),
		Request: services.NewRequestService(store, publisher),
		Offer:   services.NewOfferService(store, publisher),
	}
}

func newApp(store *repositories.Store, svc handlers.Services) *fiber.App {
	app := fiber.New(fiber.Config{AppName: "supplymarket"})
	app.Use(logger.New()) // Request logger
	handlers.Register(app, store, svc)
	return app
}
