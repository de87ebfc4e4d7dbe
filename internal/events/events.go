// Package events publishes domain events to Kafka after purchases commit.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Topics.
const (
	TopicPurchaseCompleted = "purchase.completed"
	TopicStockUpdated      = "stock.updated"
)

// PurchaseCompleted is emitted once per committed purchase.
type PurchaseCompleted struct {
	EventID       string          `json:"event_id"`
	TransactionID uint            `json:"transaction_id"`
	BuyerID       uint            `json:"buyer_id"`
	ProductID     uint            `json:"product_id"`
	Quantity      int             `json:"quantity"`
	PricePerUnit  decimal.Decimal `json:"price_per_unit"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// StockUpdated is emitted when a product's stock changes.
type StockUpdated struct {
	EventID    string    `json:"event_id"`
	ProductID  uint      `json:"product_id"`
	Delta      int       `json:"delta"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher emits events. Implementations never fail the caller.
type Publisher interface {
	PurchaseCompleted(ctx context.Context, event PurchaseCompleted)
	StockUpdated(ctx context.Context, event StockUpdated)
	Close() error
}

// Noop drops every event.
type Noop struct{}

func (Noop) PurchaseCompleted(context.Context, PurchaseCompleted) {}
func (Noop) StockUpdated(context.Context, StockUpdated)           {}
func (Noop) Close() error                                         { return nil }

// DefaultEnqueueTimeout bounds how long a request waits for room in the producer's input queue.
const DefaultEnqueueTimeout = 100 * time.Millisecond

// KafkaPublisher hands events to a sarama AsyncProducer keyed by product id,
// so events of one product stay ordered within a partition. Delivery results
// are drained in the background and only logged.
type KafkaPublisher struct {
	producer       sarama.AsyncProducer
	log            *zap.Logger
	enqueueTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

var _ Publisher = (*KafkaPublisher)(nil)

// NewConfig returns the producer settings used by NewKafkaPublisher.
func NewConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3
	config.Producer.Timeout = 5 * time.Second
	return config
}

// NewKafkaPublisher connects an AsyncProducer to brokers.
func NewKafkaPublisher(brokers []string, log *zap.Logger) (*KafkaPublisher, error) {
	producer, err := sarama.NewAsyncProducer(brokers, NewConfig())
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, log), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer and starts draining its results.
func NewKafkaPublisherWithProducer(producer sarama.AsyncProducer, log *zap.Logger) *KafkaPublisher {
	p := &KafkaPublisher{producer: producer, log: log, enqueueTimeout: DefaultEnqueueTimeout}
	p.wg.Add(2)
	go p.drainSuccesses()
	go p.drainErrors()
	return p
}

// PurchaseCompleted publishes to TopicPurchaseCompleted.
func (p *KafkaPublisher) PurchaseCompleted(ctx context.Context, event PurchaseCompleted) {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	p.publish(ctx, TopicPurchaseCompleted, event.ProductID, event)
}

// StockUpdated publishes to TopicStockUpdated.
func (p *KafkaPublisher) StockUpdated(ctx context.Context, event StockUpdated) {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	p.publish(ctx, TopicStockUpdated, event.ProductID, event)
}

// Close stops accepting events and waits until the producer has flushed
// everything already queued.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.producer.AsyncClose()
	p.wg.Wait()
	return nil
}

func (p *KafkaPublisher) publish(ctx context.Context, topic string, productID uint, event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn("marshal event", zap.String("topic", topic), zap.Error(err))
		return
	}

	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(strconv.FormatUint(uint64(productID), 10)),
		Value:     sarama.ByteEncoder(data),
		Timestamp: time.Now(),
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.log.Warn("event dropped after close", zap.String("topic", topic))
		return
	}

	timer := time.NewTimer(p.enqueueTimeout)
	defer timer.Stop()
	select {
	case p.producer.Input() <- msg:
	case <-timer.C:
		p.log.Warn("event dropped, producer queue full", zap.String("topic", topic))
	case <-ctx.Done():
		p.log.Warn("event dropped", zap.String("topic", topic), zap.Error(ctx.Err()))
	}
}

func (p *KafkaPublisher) drainSuccesses() {
	defer p.wg.Done()
	for msg := range p.producer.Successes() {
		p.log.Debug("published event",
			zap.String("topic", msg.Topic),
			zap.Int32("partition", msg.Partition),
			zap.Int64("offset", msg.Offset))
	}
}

func (p *KafkaPublisher) drainErrors() {
	defer p.wg.Done()
	for perr := range p.producer.Errors() {
		var topic string
		if perr.Msg != nil {
			topic = perr.Msg.Topic
		}
		p.log.Warn("publish event", zap.String("topic", topic), zap.Error(perr.Err))
	}
}
