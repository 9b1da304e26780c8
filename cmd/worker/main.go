// cmd/worker/main.go
//
// The delivery worker drains the transactional outbox: contract generation
// requests and counterpart notifications are consumed here, off the request
// path.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sirupsen/logrus"

	"github.com/artime/artime-backend/internal/config"
	"github.com/artime/artime-backend/internal/database"
	"github.com/artime/artime-backend/internal/events"
	"github.com/artime/artime-backend/internal/i18n"
	"github.com/artime/artime-backend/internal/outbox"
	"github.com/artime/artime-backend/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger := logrus.New()
	if cfg.Environment == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.Close(db)

	if err := i18n.Initialize(); err != nil {
		log.Fatal("Failed to initialize i18n:", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to get underlying sql.DB:", err)
	}
	if err := outbox.InitSchema(sqlDB, logger); err != nil {
		log.Fatal("Failed to initialize outbox schema:", err)
	}

	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		log.Fatal("Failed to initialize storage service:", err)
	}
	settlementService := services.NewSettlementService(db, cfg, logger)
	contractService := services.NewContractService(db, cfg, storageService, settlementService, logger)
	notificationService := services.NewNotificationService(db, cfg)

	subscriber, err := outbox.NewSubscriber(sqlDB, logger)
	if err != nil {
		log.Fatal("Failed to create outbox subscriber:", err)
	}
	defer subscriber.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	contractMessages, err := subscriber.Subscribe(ctx, outbox.TopicContractGenerate)
	if err != nil {
		log.Fatal("Failed to subscribe to contract topic:", err)
	}
	notificationMessages, err := subscriber.Subscribe(ctx, outbox.TopicNotifications)
	if err != nil {
		log.Fatal("Failed to subscribe to notification topic:", err)
	}

	go consumeContracts(contractMessages, contractService, logger)
	go consumeNotifications(notificationMessages, notificationService, logger)

	logger.Info("Delivery worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Delivery worker shutting down")
}

func consumeContracts(messages <-chan *message.Message, contracts *services.ContractService, logger *logrus.Logger) {
	for msg := range messages {
		var event events.ContractRequested
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			logger.WithError(err).WithField("message_id", msg.UUID).Error("Dropping malformed contract event")
			msg.Ack()
			continue
		}

		if _, err := contracts.Generate(event.BookingID); err != nil {
			logger.WithError(err).WithField("booking_id", event.BookingID).Error("Contract generation failed, will retry")
			msg.Nack()
			continue
		}

		logger.WithField("booking_id", event.BookingID).Info("Contract generated")
		msg.Ack()
	}
}

func consumeNotifications(messages <-chan *message.Message, notifications *services.NotificationService, logger *logrus.Logger) {
	for msg := range messages {
		var event events.CounterpartNotified
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			logger.WithError(err).WithField("message_id", msg.UUID).Error("Dropping malformed notification event")
			msg.Ack()
			continue
		}

		if err := notifications.Deliver(&event); err != nil {
			logger.WithError(err).WithField("booking_id", event.BookingID).Error("Notification delivery failed, will retry")
			msg.Nack()
			continue
		}

		msg.Ack()
	}
}
