// cmd/worker/main.go
package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/timothysaatum/bulk-sms/internal/config"
	"github.com/timothysaatum/bulk-sms/internal/db"
	"github.com/timothysaatum/bulk-sms/internal/gateway"
	"github.com/timothysaatum/bulk-sms/internal/queue"
	"github.com/timothysaatum/bulk-sms/internal/repository"
	"github.com/timothysaatum/bulk-sms/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}
	cfg := config.Load()

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to DB: %v", err)
	}
	defer conn.Close()

	q, err := queue.NewAMQPQueue(cfg.AMQPURL)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ:", err)
	}
	defer q.Close()

	campaignRepo := &repository.CampaignRepository{DB: conn}
	contactRepo := &repository.ContactRepository{DB: conn}
	messageRepo := &repository.MessageRepository{DB: conn}

	smsClient := gateway.NewArkeselClient(
		cfg.ArkeselAPIKey,
		cfg.ArkeselBaseURL,
		cfg.RateLimitPerMinute,
		cfg.GatewayTimeout,
	)

	dispatchService := &service.DispatchService{
		CampaignRepo: campaignRepo,
		ContactRepo:  contactRepo,
		MessageRepo:  messageRepo,
		Queue:        q,
		MaxAttempts:  cfg.MaxRetryAttempts,
	}

	sendWorker := &service.SendWorker{
		MessageRepo: messageRepo,
		ContactRepo: contactRepo,
		Gateway:     smsClient,
		Queue:       q,
		MaxAttempts: cfg.MaxRetryAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
	}

	statsService := &service.StatsService{
		CampaignRepo: campaignRepo,
		MessageRepo:  messageRepo,
	}

	if err := service.RegisterWorkerHandlers(q, dispatchService, sendWorker, statsService); err != nil {
		log.Fatal("Failed to register handlers:", err)
	}

	log.Println("Worker running, waiting for messages...")
	select {}
}
