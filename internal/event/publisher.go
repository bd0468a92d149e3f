package event

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// StaffInvitedQueue carries invitations for the mail transport to deliver.
const StaffInvitedQueue = "staff.invited"

// StaffInvited is published after a successful provisioning. The activation
// link inside is one-time and TTL-bound.
type StaffInvited struct {
	TenantID       string    `json:"tenant_id"`
	UserID         string    `json:"user_id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	Role           string    `json:"role"`
	ActivationLink string    `json:"activation_link"`
	InvitedBy      string    `json:"invited_by"`
	Timestamp      time.Time `json:"timestamp"`
}

// Publisher writes domain events to RabbitMQ. Errors are logged and returned
// so callers can ignore failures without interrupting the main request flow;
// a lost invite event is re-sendable, a failed provisioning is not.
type Publisher struct {
	url string
	log *zap.Logger
}

func NewPublisher(url string, log *zap.Logger) *Publisher {
	return &Publisher{url: url, log: log}
}

// PublishStaffInvited publishes a StaffInvited event to the staff.invited
// queue. Messages are marked persistent so they survive broker restarts.
func (p *Publisher) PublishStaffInvited(ctx context.Context, ev StaffInvited) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Warn("rabbitmq: dial failed", zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn("rabbitmq: channel open failed", zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		StaffInvitedQueue, // name
		true,              // durable
		false,             // autoDelete
		false,             // exclusive
		false,             // noWait
		nil,               // args
	); err != nil {
		p.log.Warn("rabbitmq: queue declare failed", zap.Error(err))
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",                // default exchange
		StaffInvitedQueue, // routing key = queue name
		false,             // mandatory
		false,             // immediate
		pub,
	); err != nil {
		p.log.Warn("rabbitmq: publish failed", zap.Error(err))
		return err
	}

	return nil
}
