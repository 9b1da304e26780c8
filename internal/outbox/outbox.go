// internal/outbox/outbox.go
package outbox

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	watermillSQL "github.com/ThreeDotsLabs/watermill-sql/v2/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Topics delivered through the Postgres outbox tables.
const (
	TopicContractGenerate = "contract_generate"
	TopicNotifications    = "booking_notifications"
)

var Topics = []string{TopicContractGenerate, TopicNotifications}

// InitSchema creates the outbox tables for all topics. Called once at startup
// so that in-transaction publishers never have to DDL.
func InitSchema(db *sql.DB, logger *logrus.Logger) error {
	subscriber, err := watermillSQL.NewSubscriber(db, watermillSQL.SubscriberConfig{
		SchemaAdapter:    watermillSQL.DefaultPostgreSQLSchema{},
		OffsetsAdapter:   watermillSQL.DefaultPostgreSQLOffsetsAdapter{},
		InitializeSchema: true,
	}, Adapter(logger))
	if err != nil {
		return fmt.Errorf("creating outbox subscriber: %w", err)
	}
	defer subscriber.Close()

	for _, topic := range Topics {
		if err := subscriber.SubscribeInitialize(topic); err != nil {
			return fmt.Errorf("initialising outbox topic %s: %w", topic, err)
		}
	}
	return nil
}

// NewSubscriber returns the outbox reader used by the delivery worker.
func NewSubscriber(db *sql.DB, logger *logrus.Logger) (message.Subscriber, error) {
	return watermillSQL.NewSubscriber(db, watermillSQL.SubscriberConfig{
		SchemaAdapter:  watermillSQL.DefaultPostgreSQLSchema{},
		OffsetsAdapter: watermillSQL.DefaultPostgreSQLOffsetsAdapter{},
	}, Adapter(logger))
}

// PublishInTx writes an event into the outbox inside the caller's GORM
// transaction, so the event commits or rolls back together with the state
// change it announces.
func PublishInTx(tx *gorm.DB, logger *logrus.Logger, topic string, event interface{}) error {
	sqlTx, ok := tx.Statement.ConnPool.(*sql.Tx)
	if !ok {
		return fmt.Errorf("outbox publish requires a transaction")
	}

	publisher, err := watermillSQL.NewPublisher(sqlTx, watermillSQL.PublisherConfig{
		SchemaAdapter: watermillSQL.DefaultPostgreSQLSchema{},
	}, Adapter(logger))
	if err != nil {
		return fmt.Errorf("creating outbox publisher: %w", err)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling outbox event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("publishing to outbox topic %s: %w", topic, err)
	}
	return nil
}

// Adapter bridges logrus into watermill's logger interface.
func Adapter(logger *logrus.Logger) watermill.LoggerAdapter {
	return &logrusAdapter{entry: logrus.NewEntry(logger)}
}

type logrusAdapter struct {
	entry *logrus.Entry
}

func (a *logrusAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.entry.WithFields(logrus.Fields(fields)).WithError(err).Error(msg)
}

func (a *logrusAdapter) Info(msg string, fields watermill.LogFields) {
	a.entry.WithFields(logrus.Fields(fields)).Info(msg)
}

func (a *logrusAdapter) Debug(msg string, fields watermill.LogFields) {
	a.entry.WithFields(logrus.Fields(fields)).Debug(msg)
}

func (a *logrusAdapter) Trace(msg string, fields watermill.LogFields) {
	a.entry.WithFields(logrus.Fields(fields)).Trace(msg)
}

func (a *logrusAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &logrusAdapter{entry: a.entry.WithFields(logrus.Fields(fields))}
}
