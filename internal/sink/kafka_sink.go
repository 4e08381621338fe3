package sink

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oachat/chat-connector/internal/config"
	"github.com/oachat/chat-connector/internal/events"
	"github.com/oachat/chat-connector/internal/platform/logger"
	"github.com/oachat/chat-connector/internal/platform/queue"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	kafka "github.com/segmentio/kafka-go"
)

// eventRecord is the JSON shape written to the events topic.
type eventRecord struct {
	ID          string                 `json:"id"`
	Category    string                 `json:"category"`
	Subcategory string                 `json:"subcategory"`
	Payload     map[string]interface{} `json:"payload"`
	ReceivedAt  time.Time              `json:"receivedAt"`
}

type kafkaSinkMetrics struct {
	eventsWrittenCounter prometheus.Counter
	writeFailureCounter  prometheus.Counter
}

func newKafkaSinkMetrics() *kafkaSinkMetrics {
	metrics := new(kafkaSinkMetrics)

	metrics.eventsWrittenCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_connector_kafka_sink_event_count",
		Help: "The number of classified events written to the kafka sink",
	})

	metrics.writeFailureCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_connector_kafka_sink_write_failure_count",
		Help: "The number of kafka sink writes that failed",
	})

	return metrics
}

// KafkaEventSink mirrors every classified event onto a kafka topic so other
// services can consume the chat stream.  Registered as a global wildcard
// handler.
type KafkaEventSink struct {
	writer  *kafka.Writer
	metrics *kafkaSinkMetrics
}

func NewKafkaEventSink(cfg *config.Config) (*KafkaEventSink, error) {
	var saslConfig *queue.SaslConfig
	if cfg.KafkaUsername != "" {
		saslConfig = &queue.SaslConfig{
			SaslMechanism: cfg.KafkaSASLMechanism,
			SaslUsername:  cfg.KafkaUsername,
			SaslPassword:  cfg.KafkaPassword,
			KafkaCA:       cfg.KafkaCA,
		}
	}

	writer, err := queue.StartProducer(&queue.ProducerConfig{
		Brokers:    cfg.KafkaBrokers,
		SaslConfig: saslConfig,
		Topic:      cfg.KafkaEventsTopic,
		BatchSize:  cfg.KafkaEventsBatchSize,
		BatchBytes: cfg.KafkaEventsBatchBytes,
		Balancer:   "hash",
	})
	if err != nil {
		return nil, err
	}

	return &KafkaEventSink{
		writer:  writer,
		metrics: newKafkaSinkMetrics(),
	}, nil
}

// HandleEvent is the dispatch.Handler that mirrors one event.
func (ks *KafkaEventSink) HandleEvent(ctx context.Context, event events.Event) error {
	record := eventRecord{
		ID:          string(event.ID),
		Category:    string(event.Category),
		Subcategory: string(event.Subcategory),
		Payload:     event.Payload,
		ReceivedAt:  event.ReceivedAt,
	}

	value, err := json.Marshal(record)
	if err != nil {
		ks.metrics.writeFailureCounter.Inc()
		return err
	}

	err = ks.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.ID),
		Value: value,
	})
	if err != nil {
		ks.metrics.writeFailureCounter.Inc()
		logger.LogError("Unable to write the event to the kafka sink", err)
		return err
	}

	ks.metrics.eventsWrittenCounter.Inc()

	return nil
}

func (ks *KafkaEventSink) Close() error {
	return ks.writer.Close()
}
