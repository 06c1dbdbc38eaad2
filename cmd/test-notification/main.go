package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/config"
	"github.com/garyjia/travel-approval/internal/container"
	"github.com/garyjia/travel-approval/pkg/utils"
)

// Sends a single message through the configured notification provider,
// independently of the lifecycle, to check credentials and reachability.
func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	to := flag.String("to", "", "recipient email")
	provider := flag.String("provider", "", "override notification.provider (log, lark, amqp)")
	flag.Parse()

	if *to == "" {
		log.Fatal("-to is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *provider != "" {
		cfg.Notification.Provider = *provider
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{Level: "debug", OutputPath: "stdout", Format: "console"})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	containerCfg := cfg.ToContainerConfig()
	if err := containerCfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	bundle, err := container.ProvideSender(containerCfg, logger)
	if err != nil {
		log.Fatalf("Failed to build sender: %v", err)
	}
	if bundle.Close != nil {
		defer bundle.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Printf("Sending test message via %s to %s\n", bundle.Sender.Name(), *to)
	err = bundle.Sender.Send(ctx, &port.NotificationMessage{
		EventType: "test",
		Recipient: port.Recipient{Email: *to, Role: "test"},
		Subject:   "Travel approval test message",
		Body:      fmt.Sprintf("Connectivity check sent at %s.", time.Now().Format(time.RFC3339)),
	})
	if err != nil {
		log.Fatalf("Send failed: %v", err)
	}
	fmt.Println("Sent")
}
