package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"vet-appointments/internal/ports/notify"
)

const (
	routingVetAssigned = "appointment.vet_assigned"
	routingApproved    = "appointment.approved"
	routingCancelled   = "appointment.cancelled"
)

// AMQPPublisher publica eventos de notificación en un exchange topic.
// El servicio de notificaciones (externo) consume de ahí y decide el canal
// (mail, push, etc.); este adapter solo publica.
type AMQPPublisher struct {
	conn     *amqp091.Connection
	ch       *amqp091.Channel
	exchange string
}

func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}

	return &AMQPPublisher{
		conn:     conn,
		ch:       ch,
		exchange: exchange,
	}, nil
}

func (p *AMQPPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

type notificationEvent struct {
	AppointmentID string    `json:"appointment_id"`
	PetID         string    `json:"pet_id"`
	OwnerUserID   string    `json:"owner_user_id"`
	VetUserID     string    `json:"vet_user_id,omitempty"`
	VetName       string    `json:"vet_name,omitempty"`
	At            time.Time `json:"at"`
	Reason        string    `json:"reason,omitempty"`
	EmittedAt     time.Time `json:"emitted_at"`
}

func (p *AMQPPublisher) VetAssigned(ctx context.Context, appt notify.Appointment, vetUserID string) error {
	return p.publish(ctx, routingVetAssigned, notificationEvent{
		AppointmentID: appt.ID,
		PetID:         appt.PetID,
		OwnerUserID:   appt.OwnerUserID,
		VetUserID:     vetUserID,
		At:            appt.At,
		EmittedAt:     time.Now().UTC(),
	})
}

func (p *AMQPPublisher) AppointmentApproved(ctx context.Context, appt notify.Appointment, vetDisplayName string) error {
	return p.publish(ctx, routingApproved, notificationEvent{
		AppointmentID: appt.ID,
		PetID:         appt.PetID,
		OwnerUserID:   appt.OwnerUserID,
		VetUserID:     appt.VetUserID,
		VetName:       vetDisplayName,
		At:            appt.At,
		EmittedAt:     time.Now().UTC(),
	})
}

func (p *AMQPPublisher) AppointmentCancelled(ctx context.Context, appt notify.Appointment, reason string) error {
	return p.publish(ctx, routingCancelled, notificationEvent{
		AppointmentID: appt.ID,
		PetID:         appt.PetID,
		OwnerUserID:   appt.OwnerUserID,
		VetUserID:     appt.VetUserID,
		At:            appt.At,
		Reason:        reason,
		EmittedAt:     time.Now().UTC(),
	})
}

func (p *AMQPPublisher) publish(ctx context.Context, routingKey string, ev notificationEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp091.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now(),
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}
