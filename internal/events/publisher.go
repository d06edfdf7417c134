package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"storefront/internal/domain"
)

const (
	TypeOrderCreated       = "order.created"
	TypeOrderStatusChanged = "order.status_changed"
)

// Envelope wraps every message written to the order topic.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

type OrderLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"priceAtPurchase"`
}

type OrderCreated struct {
	OrderID        string      `json:"orderId"`
	UserID         string      `json:"userId"`
	PaymentMethod  string      `json:"paymentMethod"`
	Subtotal       string      `json:"subtotal"`
	DiscountAmount string      `json:"discountAmount"`
	TotalAmount    string      `json:"totalAmount"`
	VoucherCode    string      `json:"voucherCode,omitempty"`
	PointsEarned   int64       `json:"pointsEarned"`
	Items          []OrderLine `json:"items"`
}

type OrderStatusChanged struct {
	OrderID string `json:"orderId"`
	UserID  string `json:"userId"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// Publisher writes order events to Kafka, keyed by user id so one user's events stay ordered.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *log.Logger
	now      func() time.Time
}

// NewKafkaPublisher dials the brokers with a synchronous producer that waits for all replicas.
func NewKafkaPublisher(brokers []string, topic string, logger *log.Logger) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return NewPublisher(producer, topic, logger), nil
}

func NewPublisher(producer sarama.SyncProducer, topic string, logger *log.Logger) *Publisher {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Publisher{producer: producer, topic: topic, logger: logger, now: time.Now}
}

func (p *Publisher) OrderCreated(_ context.Context, o domain.Order) error {
	lines := make([]OrderLine, len(o.Items))
	for i, it := range o.Items {
		lines[i] = OrderLine{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.PriceAtPurchase.String()}
	}
	return p.send(TypeOrderCreated, o.UserID, OrderCreated{
		OrderID:        o.ID,
		UserID:         o.UserID,
		PaymentMethod:  string(o.PaymentMethod),
		Subtotal:       o.Subtotal.String(),
		DiscountAmount: o.DiscountAmount.String(),
		TotalAmount:    o.TotalAmount.String(),
		VoucherCode:    o.VoucherCode,
		PointsEarned:   o.PointsEarned,
		Items:          lines,
	})
}

func (p *Publisher) OrderStatusChanged(_ context.Context, o domain.Order, from domain.OrderStatus) error {
	return p.send(TypeOrderStatusChanged, o.UserID, OrderStatusChanged{
		OrderID: o.ID,
		UserID:  o.UserID,
		From:    string(from),
		To:      string(o.Status),
	})
}

func (p *Publisher) send(eventType, key string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", eventType, err)
	}
	env := Envelope{ID: uuid.NewString(), Type: eventType, OccurredAt: p.now().UTC(), Payload: body}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(eventType)},
		},
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send %s: %w", eventType, err)
	}
	p.logger.Printf("events: published type=%s id=%s partition=%d offset=%d", eventType, env.ID, partition, offset)
	return nil
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}

// Noop drops events; used when no brokers are configured.
type Noop struct{}

func (Noop) OrderCreated(context.Context, domain.Order) error { return nil }

func (Noop) OrderStatusChanged(context.Context, domain.Order, domain.OrderStatus) error { return nil }

func (Noop) Close() error { return nil }
