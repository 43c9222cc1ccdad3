// cmd/server/main.go
package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/timothysaatum/bulk-sms/internal/config"
	"github.com/timothysaatum/bulk-sms/internal/controller"
	"github.com/timothysaatum/bulk-sms/internal/db"
	"github.com/timothysaatum/bulk-sms/internal/queue"
	"github.com/timothysaatum/bulk-sms/internal/repository"
	"github.com/timothysaatum/bulk-sms/internal/service"
)

func main() {
	// Load .env
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

	campaignService := &service.CampaignService{
		CampaignRepo: campaignRepo,
		ContactRepo:  contactRepo,
		MessageRepo:  messageRepo,
	}

	dispatchService := &service.DispatchService{
		CampaignRepo: campaignRepo,
		ContactRepo:  contactRepo,
		MessageRepo:  messageRepo,
		Queue:        q,
		MaxAttempts:  cfg.MaxRetryAttempts,
	}

	campaignController := &controller.CampaignController{
		CampaignService:    campaignService,
		DispatchService:    dispatchService,
		BatchSize:          cfg.BatchSize,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}

	r := chi.NewRouter()

	// Campaign routes
	r.Post("/campaigns", campaignController.CreateCampaign)
	r.Get("/campaigns", campaignController.ListCampaigns)
	r.Get("/campaigns/{id}", campaignController.GetCampaign)
	r.Get("/campaigns/{id}/messages", campaignController.ListMessages)
	r.Post("/campaigns/{id}/execute", campaignController.ExecuteCampaign)
	r.Post("/campaigns/{id}/retry", campaignController.RetryFailed)

	log.Println("🚀 Server running on :" + cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
}
