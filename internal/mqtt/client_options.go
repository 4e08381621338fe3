package mqtt

import (
	"crypto/tls"

	MQTT "github.com/eclipse/paho.mqtt.golang"
)

type MqttClientOptionsFunc func(*MQTT.ClientOptions) error

func WithTlsConfig(tlsConfig *tls.Config) MqttClientOptionsFunc {
	return func(opts *MQTT.ClientOptions) error {
		opts.SetTLSConfig(tlsConfig)
		return nil
	}
}

func WithClientID(clientID string) MqttClientOptionsFunc {
	return func(opts *MQTT.ClientOptions) error {
		opts.SetClientID(clientID)
		return nil
	}
}

func WithCleanSession(cleanSession bool) MqttClientOptionsFunc {
	return func(opts *MQTT.ClientOptions) error {
		opts.SetCleanSession(cleanSession)
		return nil
	}
}

func WithResumeSubs(resumeSubs bool) MqttClientOptionsFunc {
	return func(opts *MQTT.ClientOptions) error {
		opts.SetResumeSubs(resumeSubs)
		return nil
	}
}

func WithDefaultPublishHandler(msgHdlr MQTT.MessageHandler) MqttClientOptionsFunc {
	return func(opts *MQTT.ClientOptions) error {
		opts.SetDefaultPublishHandler(msgHdlr)
		return nil
	}
}

func WithConnectionLostHandler(handler MQTT.ConnectionLostHandler) MqttClientOptionsFunc {
	return func(opts *MQTT.ClientOptions) error {
		opts.SetConnectionLostHandler(handler)
		return nil
	}
}
