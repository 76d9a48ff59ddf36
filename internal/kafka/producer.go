package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"events-system/internal/config"
	"events-system/internal/models"

	"github.com/segmentio/kafka-go"
)

// Producer streams catalog lifecycle events. One writer is shared across
// topics; each publish names its topic on the message.
type Producer struct {
	Writer *kafka.Writer
	Topics config.TopicConfig
}

func NewProducer(brokers []string, topics config.TopicConfig) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{Writer: writer, Topics: topics}
}

type registrationEvent struct {
	EventID          int64      `json:"event_id"`
	UserID           string     `json:"user_id"`
	RegistrationDate *time.Time `json:"registration_date,omitempty"`
}

// PublishEventCreated streams the created event summary.
func (p *Producer) PublishEventCreated(event models.EventSummary) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.publish(p.Topics.EventCreated, strconv.FormatInt(event.ID, 10), value)
}

// PublishEventDeleted streams a deletion notice keyed by event id.
func (p *Producer) PublishEventDeleted(eventID int64) error {
	key := strconv.FormatInt(eventID, 10)
	value, err := json.Marshal(map[string]int64{"event_id": eventID})
	if err != nil {
		return err
	}
	return p.publish(p.Topics.EventDeleted, key, value)
}

// PublishRegistrationCreated streams a new registration.
func (p *Producer) PublishRegistrationCreated(registration models.Registration) error {
	value, err := json.Marshal(registrationEvent{
		EventID:          registration.EventID,
		UserID:           registration.UserID,
		RegistrationDate: &registration.RegistrationDate,
	})
	if err != nil {
		return err
	}
	return p.publish(p.Topics.RegistrationCreated, strconv.FormatInt(registration.EventID, 10), value)
}

// PublishRegistrationCancelled streams an unregistration.
func (p *Producer) PublishRegistrationCancelled(eventID int64, userID string) error {
	value, err := json.Marshal(registrationEvent{EventID: eventID, UserID: userID})
	if err != nil {
		return err
	}
	return p.publish(p.Topics.RegistrationCancelled, strconv.FormatInt(eventID, 10), value)
}

func (p *Producer) publish(topic, key string, value []byte) error {
	return p.Writer.WriteMessages(context.Background(), kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
