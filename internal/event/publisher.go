package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	routingKeyLoanCheckedOut = "loan.checkedout"
	routingKeyLoanReturned   = "loan.returned"
	routingKeyLoanRenewed    = "loan.renewed"
	routingKeyLoanOverdue    = "loan.overdue"
	publisherAppID           = "circulation-engine"
)

type Publisher interface {
	PublishLoanCheckedOut(ctx context.Context, event LoanCheckedOutEvent) error
	PublishLoanReturned(ctx context.Context, event LoanReturnedEvent) error
	PublishLoanRenewed(ctx context.Context, event LoanRenewedEvent) error
	PublishLoanOverdue(ctx context.Context, event LoanOverdueEvent) error
}

type RabbitMQPublisher struct {
	conn         *amqp.Connection
	exchangeName string
	logger       *slog.Logger
}

func NewRabbitMQPublisher(conn *amqp.Connection, exchangeName string, logger *slog.Logger) (*RabbitMQPublisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("RabbitMQ connection cannot be nil")
	}
	if exchangeName == "" {
		return nil, fmt.Errorf("RabbitMQ exchange name cannot be empty")
	}

	tempCh, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open temporary channel for exchange declaration: %w", err)
	}
	defer tempCh.Close()

	err = tempCh.ExchangeDeclare(
		exchangeName,
		amqp.ExchangeTopic,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare exchange '%s': %w", exchangeName, err)
	}
	logger.Info("Ensured RabbitMQ exchange exists", "exchange", exchangeName, "type", amqp.ExchangeTopic)

	return &RabbitMQPublisher{
		conn:         conn,
		exchangeName: exchangeName,
		logger:       logger.With("component", "RabbitMQPublisher", "exchange", exchangeName),
	}, nil
}

func (p *RabbitMQPublisher) publish(ctx context.Context, routingKey string, payload interface{}) error {
	logCtx := p.logger.With(slog.String("routingKey", routingKey))

	channel, err := p.conn.Channel()
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to open RabbitMQ channel", slog.Any("error", err))
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer channel.Close()

	body, err := json.Marshal(payload)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to marshal event payload to JSON", slog.Any("error", err))
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = channel.PublishWithContext(
		ctx,
		p.exchangeName,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
			AppId:        publisherAppID,
		},
	)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to publish message to RabbitMQ", slog.Any("error", err))
		return fmt.Errorf("failed to publish message: %w", err)
	}

	logCtx.DebugContext(ctx, "Published message", "bodySize", len(body))
	return nil
}

func (p *RabbitMQPublisher) PublishLoanCheckedOut(ctx context.Context, event LoanCheckedOutEvent) error {
	return p.publish(ctx, routingKeyLoanCheckedOut, event)
}

func (p *RabbitMQPublisher) PublishLoanReturned(ctx context.Context, event LoanReturnedEvent) error {
	return p.publish(ctx, routingKeyLoanReturned, event)
}

func (p *RabbitMQPublisher) PublishLoanRenewed(ctx context.Context, event LoanRenewedEvent) error {
	return p.publish(ctx, routingKeyLoanRenewed, event)
}

func (p *RabbitMQPublisher) PublishLoanOverdue(ctx context.Context, event LoanOverdueEvent) error {
	return p.publish(ctx, routingKeyLoanOverdue, event)
}

// NoopPublisher is used when messaging is disabled in configuration.
type NoopPublisher struct{}

func (NoopPublisher) PublishLoanCheckedOut(context.Context, LoanCheckedOutEvent) error { return nil }
func (NoopPublisher) PublishLoanReturned(context.Context, LoanReturnedEvent) error     { return nil }
func (NoopPublisher) PublishLoanRenewed(context.Context, LoanRenewedEvent) error       { return nil }
func (NoopPublisher) PublishLoanOverdue(context.Context, LoanOverdueEvent) error       { return nil }
