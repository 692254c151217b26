package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/bytedance/sonic"
	"github.com/densematrix/study_api/config"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

const EVENT_SVC = "event_svc"

const (
	EventQuizGenerated    = "quiz.generated"
	EventQuizSubmitted    = "quiz.submitted"
	EventPaymentCompleted = "payment.completed"

	publishTimeout = 2 * time.Second
	redialInterval = 5 * time.Second
)

var errEventsDisabled = errors.New("events: publisher not connected")

type Event struct {
	Type       string      `json:"type"`
	DeviceID   string      `json:"device_id"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload,omitempty"`
}

// EventPublisher is best effort. Implementations log failures and never return them.
type EventPublisher interface {
	Publish(ctx context.Context, event Event)
}

// eventChannel is the part of *amqp.Channel the publisher uses.
type eventChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

type dialFunc func(url, queue string) (eventChannel, io.Closer, error)

// EventService publishes analytics events to a durable RabbitMQ queue.
// Without RABBITMQ_URL it drops every event.
type EventService struct {
	appContext.DefaultService

	url   string
	queue string
	dial  dialFunc

	// mu guards the connection fields only, never a publish.
	mu       sync.Mutex
	conn     io.Closer
	channel  eventChannel
	lastDial time.Time
	dialing  bool
}

func NewEventService(cfg config.Config) *EventService {
	return &EventService{url: cfg.RabbitMQURL, queue: cfg.EventsQueue, dial: dialRabbitMQ}
}

func (svc EventService) Id() string {
	return EVENT_SVC
}

func (svc *EventService) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *EventService) Start() error {
	if svc.url == "" {
		log.Info().Msg("RABBITMQ_URL not set, events disabled")
		return nil
	}

	if _, err := svc.currentChannel(); err != nil {
		log.Warn().Err(err).Msg("RabbitMQ unavailable, will retry on publish")
	}
	return nil
}

func dialRabbitMQ(url, queue string) (eventChannel, io.Closer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, err
	}

	_, err = channel.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, nil, err
	}

	return channel, conn, nil
}

// currentChannel returns the open channel. When the broker closed it, one
// caller redials outside mu while the others drop their events, and redials
// are spaced at least redialInterval apart.
func (svc *EventService) currentChannel() (eventChannel, error) {
	svc.mu.Lock()
	if svc.channel != nil && !svc.channel.IsClosed() {
		channel := svc.channel
		svc.mu.Unlock()
		return channel, nil
	}
	if svc.url == "" || svc.dial == nil || svc.dialing ||
		(!svc.lastDial.IsZero() && time.Since(svc.lastDial) < redialInterval) {
		svc.mu.Unlock()
		return nil, errEventsDisabled
	}
	svc.dialing = true
	svc.lastDial = time.Now()
	svc.closeLocked()
	svc.mu.Unlock()

	channel, conn, err := svc.dial(svc.url, svc.queue)

	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.dialing = false
	if err != nil {
		return nil, err
	}
	svc.channel, svc.conn = channel, conn

	log.Info().Str("queue", svc.queue).Msg("RabbitMQ event publisher connected")
	return channel, nil
}

func (svc *EventService) closeLocked() {
	if svc.channel != nil {
		_ = svc.channel.Close()
		svc.channel = nil
	}
	if svc.conn != nil {
		_ = svc.conn.Close()
		svc.conn = nil
	}
}

func (svc *EventService) Shutdown() {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.closeLocked()
}

// Publish sends one event. amqp channels serialize frames themselves, so
// concurrent callers share the channel without holding mu.
func (svc *EventService) Publish(ctx context.Context, event Event) {
	channel, err := svc.currentChannel()
	if err != nil {
		if !errors.Is(err, errEventsDisabled) {
			log.Warn().Err(err).Msg("RabbitMQ redial failed")
		}
		return
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	body, err := sonic.Marshal(event)
	if err != nil {
		log.Warn().Err(err).Str("event", event.Type).Msg("Failed to encode event")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	err = channel.PublishWithContext(
		ctx,
		"",        // exchange
		svc.queue, // routing key
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Type:         event.Type,
			Body:         body,
			Timestamp:    event.OccurredAt,
		},
	)
	if err != nil {
		log.Warn().Err(err).Str("event", event.Type).Msg("Failed to publish event")
	}
}
