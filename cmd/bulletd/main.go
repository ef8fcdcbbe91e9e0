// bulletd relays webhook alerts into tracked tickets, notifies the
// configured channels, and escalates or repeats notifications on
// tickets nobody acknowledges in time.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/bullet-relay/bulletd/pkg/api"
	"github.com/bullet-relay/bulletd/pkg/channel"
	"github.com/bullet-relay/bulletd/pkg/config"
	"github.com/bullet-relay/bulletd/pkg/database"
	"github.com/bullet-relay/bulletd/pkg/escalation"
	"github.com/bullet-relay/bulletd/pkg/models"
	"github.com/bullet-relay/bulletd/pkg/services"
	"github.com/bullet-relay/bulletd/pkg/slack"
	"github.com/bullet-relay/bulletd/pkg/source"
	"github.com/bullet-relay/bulletd/pkg/store"
	"github.com/bullet-relay/bulletd/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: Could not load %s file: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	relayCfg, err := config.LoadRelayConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to load relay config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to load database config: %v", err)
	}

	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.Printf("Error closing database client: %v", err)
		}
	}()
	log.Println("✓ Connected to PostgreSQL database")

	namespaces := store.NewNamespaceStore(dbClient.DB())
	projects := store.NewProjectStore(dbClient.DB())
	groups := store.NewNotificationGroupStore(dbClient.DB())
	contacts := store.NewContactStore(dbClient.DB())
	tickets := store.NewTicketStore(dbClient.DB())
	templateStore := store.NewTemplateStore(dbClient.DB())

	templates := services.NewTemplateService(templateStore, relayCfg.BaseURL)
	if err := templates.EnsureBuiltinTemplates(ctx, uuid.NewString); err != nil {
		log.Fatalf("Failed to seed builtin notification templates: %v", err)
	}

	channels := newChannelFactory(relayCfg)
	notifications := services.NewNotificationService(tickets, projects, groups, contacts, templates, channels, relayCfg.BaseURL)

	sources := source.NewRegistry()
	clock := store.SystemClock{}
	intake := services.NewIntakeService(namespaces, projects, groups, tickets, notifications, sources, clock)
	ack := services.NewAckService(tickets, notifications, clock)

	scheduler := escalation.NewScheduler(relayCfg.EscalationCheckInterval, projects, tickets, groups, notifications, templates, clock)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	server := api.NewServer(dbClient, intake, ack, notifications)

	log.Printf("Starting %s", version.Full())
	log.Printf("HTTP Port: %s", relayCfg.HTTPPort)
	log.Printf("Base URL: %s", relayCfg.BaseURL)
	log.Printf("Escalation check interval: %s", relayCfg.EscalationCheckInterval)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(":" + relayCfg.HTTPPort); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), relayCfg.EscalationCheckInterval)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}
}

// newChannelFactory builds the concrete ChannelFactory from relay
// configuration: a single shared Slack service bound to one channel, and
// per-call Feishu/Email/SMS adapters bound to the addresses the caller
// resolved from the notified contacts.
func newChannelFactory(cfg config.RelayConfig) services.ChannelFactory {
	slackService := slack.NewService(slack.ServiceConfig{
		Token:   cfg.Slack.Token,
		Channel: cfg.Slack.Channel,
	})

	return func(ct models.ChannelType, addresses []string) channel.Adapter {
		switch ct {
		case models.ChannelSlack:
			if slackService == nil {
				return nil
			}
			return channel.NewSlackAdapter(slackService, cfg.Slack.Channel)

		case models.ChannelFeishu:
			if len(addresses) == 0 {
				return nil
			}
			return channel.NewFeishuAdapter(addresses[0], cfg.Feishu.Secret)

		case models.ChannelEmail:
			if len(addresses) == 0 {
				return nil
			}
			return channel.NewEmailAdapter(cfg.Email.Host, cfg.Email.Port, cfg.Email.Username, cfg.Email.Password, cfg.Email.From, addresses)

		case models.ChannelSMS:
			if len(addresses) == 0 {
				return nil
			}
			return channel.NewSMSAdapter(cfg.SMS.AccountSID, cfg.SMS.AuthToken, cfg.SMS.FromNumber, addresses)

		default:
			return nil
		}
	}
}
