package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"digiforge-analytics/internal/engine"
	"digiforge-analytics/internal/metrics"
)

const retryBackoff = 2 * time.Second

// NewKafkaConsumerGroup joins groupID on brokers, starting from the newest offset.
func NewKafkaConsumerGroup(brokers []string, groupID string) (sarama.ConsumerGroup, error) {
	cfg := sarama.NewConfig()
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRange()}
	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	cfg.Consumer.Return.Errors = true
	cfg.ClientID = "digiforge-analytics"

	group, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer group: %w", err)
	}
	return group, nil
}

// KafkaListener consumes telemetry records, one JSON object per message.
type KafkaListener struct {
	group   sarama.ConsumerGroup
	topics  []string
	handler *claimHandler
	logger  *zap.Logger
}

func NewKafkaListener(group sarama.ConsumerGroup, topics []string, processor Processor, defaultMachine string, logger *zap.Logger) *KafkaListener {
	return &KafkaListener{
		group:  group,
		topics: topics,
		handler: &claimHandler{
			processor:      processor,
			defaultMachine: defaultMachine,
			logger:         logger,
		},
		logger: logger,
	}
}

func (l *KafkaListener) Stats() *Stats { return &l.handler.stats }

// Run consumes until ctx is done or the group is closed, rejoining after
// rebalances and transient errors.
func (l *KafkaListener) Run(ctx context.Context) error {
	go func() {
		for err := range l.group.Errors() {
			metrics.SinkErrors.WithLabelValues("kafka_consumer").Inc()
			l.logger.Warn("kafka consumer error", zap.Error(err))
		}
	}()

	l.logger.Info("consuming telemetry", zap.Strings("topics", l.topics))
	for ctx.Err() == nil {
		err := l.group.Consume(ctx, l.topics, l.handler)
		if errors.Is(err, sarama.ErrClosedConsumerGroup) {
			return nil
		}
		if err != nil {
			l.logger.Warn("kafka consume failed", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(retryBackoff):
			}
		}
	}
	return nil
}

func (l *KafkaListener) Close() error {
	return l.group.Close()
}

type claimHandler struct {
	processor      Processor
	defaultMachine string
	logger         *zap.Logger
	stats          Stats
}

func (h *claimHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *claimHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *claimHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			res, err := h.processor.ProcessRecord(sess.Context(), msg.Value,
				engine.WithSource("kafka"),
				engine.WithDefaultMachine(h.defaultMachine))
			h.stats.observe(res, err)
			if err != nil {
				h.logger.Debug("skipped kafka message",
					zap.String("topic", msg.Topic),
					zap.Int32("partition", msg.Partition),
					zap.Int64("offset", msg.Offset),
					zap.Error(err))
			}
			sess.MarkMessage(msg, "")
		case <-sess.Context().Done():
			return nil
		}
	}
}
