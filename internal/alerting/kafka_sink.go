package alerting

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"digiforge-analytics/internal/data"
	"digiforge-analytics/internal/metrics"
)

// NewKafkaProducer creates an async producer tuned for small JSON events.
func NewKafkaProducer(brokers []string) (sarama.AsyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false

	producer, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return producer, nil
}

// KafkaSink publishes alerts and classified records keyed by machine id.
// An empty topic disables that stream. Publishing after Close returns
// ErrQueueClosed.
type KafkaSink struct {
	producer    sarama.AsyncProducer
	alertTopic  string
	recordTopic string
	logger      *zap.Logger
	done        chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewKafkaSink(producer sarama.AsyncProducer, alertTopic, recordTopic string, logger *zap.Logger) *KafkaSink {
	s := &KafkaSink{
		producer:    producer,
		alertTopic:  alertTopic,
		recordTopic: recordTopic,
		logger:      logger,
		done:        make(chan struct{}),
	}
	go s.drainErrors()
	return s
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Send(_ context.Context, alert *data.Alert) error {
	if s.alertTopic == "" {
		return nil
	}
	return s.publish(s.alertTopic, alert.MachineID, alert)
}

// Emit publishes a classified record.
func (s *KafkaSink) Emit(_ context.Context, rec *data.ClassifiedRecord) error {
	if s.recordTopic == "" {
		return nil
	}
	return s.publish(s.recordTopic, rec.Record.MachineID, rec)
}

func (s *KafkaSink) publish(topic, key string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", topic, err)
	}
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(payload),
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrQueueClosed
	}
	select {
	case s.producer.Input() <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

func (s *KafkaSink) drainErrors() {
	defer close(s.done)
	for perr := range s.producer.Errors() {
		metrics.SinkErrors.WithLabelValues(s.Name()).Inc()
		s.logger.Warn("kafka publish failed",
			zap.String("topic", perr.Msg.Topic),
			zap.Error(perr.Err))
	}
}

// Close flushes buffered messages and shuts the producer down. It waits for
// publishes already in progress.
func (s *KafkaSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.producer.Close()
	<-s.done
	return err
}
