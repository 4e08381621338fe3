package mqtt

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"time"

	"github.com/oachat/chat-connector/internal/config"
	"github.com/oachat/chat-connector/internal/domain"
	"github.com/oachat/chat-connector/internal/platform/logger"
	"github.com/oachat/chat-connector/internal/session"
	"github.com/oachat/chat-connector/internal/transport"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

const inboundBufferSize = 128

// eventEnvelope is the JSON shape published on the event topic.
type eventEnvelope struct {
	ID    string                 `json:"id"`
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

// EventStream receives inbound events pushed over an MQTT subscription
// instead of the HTTP long-poll stream.  Broker authentication is handled at
// connect time, so the per-call session is not used here.
type EventStream struct {
	client  MQTT.Client
	topic   string
	inbound chan transport.RawEvent
}

func NewEventStream(cfg *config.Config) (*EventStream, error) {
	stream := &EventStream{
		topic:   cfg.MqttEventTopic,
		inbound: make(chan transport.RawEvent, inboundBufferSize),
	}

	brokerOptions := []MqttClientOptionsFunc{
		WithClientID(cfg.MqttClientId),
		WithCleanSession(false),
		WithResumeSubs(true),
		WithConnectionLostHandler(func(client MQTT.Client, err error) {
			logger.Log.WithFields(logrus.Fields{"error": err}).Warn("MQTT connection lost")
		}),
	}

	if cfg.MqttBrokerTlsCertFile != "" {
		tlsConfig, err := buildTlsConfig(cfg)
		if err != nil {
			return nil, err
		}
		brokerOptions = append(brokerOptions, WithTlsConfig(tlsConfig))
	}

	client, err := CreateBrokerConnection(cfg.MqttBrokerAddress, brokerOptions...)
	if err != nil {
		return nil, err
	}

	stream.client = client

	if token := client.Subscribe(stream.topic, 1, stream.onMessage); token.Wait() && token.Error() != nil {
		client.Disconnect(250)
		return nil, token.Error()
	}

	logger.Log.Info("Subscribed to MQTT event topic: ", stream.topic)

	return stream, nil
}

func buildTlsConfig(cfg *config.Config) (*tls.Config, error) {
	certificate, err := tls.LoadX509KeyPair(cfg.MqttBrokerTlsCertFile, cfg.MqttBrokerTlsKeyFile)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"error": err}).Error("Unable to load the MQTT client certificate")
		return nil, err
	}

	return &tls.Config{
		Certificates:       []tls.Certificate{certificate},
		InsecureSkipVerify: cfg.MqttBrokerTlsSkipVerify,
	}, nil
}

func (es *EventStream) onMessage(client MQTT.Client, msg MQTT.Message) {
	var envelope eventEnvelope
	if err := json.Unmarshal(msg.Payload(), &envelope); err != nil {
		logger.Log.WithFields(logrus.Fields{"error": err, "topic": msg.Topic()}).Warn("Dropping undecodable MQTT event payload")
		return
	}

	raw := transport.RawEvent{
		ID:         domain.EventID(envelope.ID),
		Name:       envelope.Event,
		Data:       envelope.Data,
		ReceivedAt: time.Now(),
	}

	select {
	case es.inbound <- raw:
	default:
		logger.Log.WithFields(logrus.Fields{"event_id": raw.ID}).Warn("Inbound event buffer full, dropping event")
	}
}

// Poll blocks until at least one pushed event is buffered, then drains
// whatever else arrived without waiting further.  Hitting the poll deadline
// with nothing buffered is an empty batch, not an error.
func (es *EventStream) Poll(ctx context.Context, sess session.Session, cursor transport.Cursor) ([]transport.RawEvent, transport.Cursor, error) {
	var batch []transport.RawEvent

	select {
	case first := <-es.inbound:
		batch = append(batch, first)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, cursor, nil
		}
		return nil, cursor, ctx.Err()
	}

	for {
		select {
		case raw := <-es.inbound:
			batch = append(batch, raw)
		default:
			next := cursor
			if last := batch[len(batch)-1].ID; last != "" {
				next = transport.Cursor(last)
			}
			return batch, next, nil
		}
	}
}

func (es *EventStream) Close() {
	es.client.Unsubscribe(es.topic)
	es.client.Disconnect(250)
}
