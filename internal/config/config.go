package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	ENV_PREFIX = "CHAT_CONNECTOR"

	MGMT_SERVER_ADDR                = "Mgmt_Server_Addr"
	HTTP_SHUTDOWN_TIMEOUT           = "HTTP_Shutdown_Timeout"
	PROFILE                         = "Enable_Profile"
	CHAT_API_HOST                   = "Chat_API_Host"
	ACCOUNT_API_HOST                = "Account_API_Host"
	STREAMING_API_HOST              = "Streaming_API_Host"
	BOT_NAME                        = "Bot_Name"
	AUTH_KIND                       = "Auth_Kind"
	AUTH_EMAIL                      = "Auth_Email"
	AUTH_PASSWORD                   = "Auth_Password"
	AUTH_SES_COOKIE                 = "Auth_Ses_Cookie"
	CLIENT_TYPE                     = "Client_Type"
	DEVICE_TYPE                     = "Device_Type"
	PING_SECS                       = "Ping_Secs"
	POLL_INTERVAL                   = "Poll_Interval"
	POLL_TIMEOUT                    = "Poll_Timeout"
	CALL_TIMEOUT                    = "Call_Timeout"
	AUTH_TIMEOUT                    = "Auth_Timeout"
	MANUAL_CHAT_TTL                 = "Manual_Chat_TTL"
	TRANSPORT_RETRY_MAX_ATTEMPTS    = "Transport_Retry_Max_Attempts"
	TRANSPORT_RETRY_BACKOFF_BASE    = "Transport_Retry_Backoff_Base"
	TRANSPORT_RETRY_BACKOFF_CAP     = "Transport_Retry_Backoff_Cap"
	POLLER_BACKOFF_BASE             = "Poller_Backoff_Base"
	POLLER_BACKOFF_CAP              = "Poller_Backoff_Cap"
	POLLER_MAX_CONSECUTIVE_FAILURES = "Poller_Max_Consecutive_Failures"
	DEDUP_WINDOW_CAPACITY           = "Dedup_Window_Capacity"
	DEDUP_WINDOW_TTL                = "Dedup_Window_TTL"
	SESSION_TTL                     = "Session_TTL"
	EVENT_SOURCE_IMPL               = "Event_Source_Impl"
	MQTT_BROKER_ADDRESS             = "Mqtt_Broker_Address"
	MQTT_CLIENT_ID                  = "Mqtt_Client_Id"
	MQTT_EVENT_TOPIC                = "Mqtt_Event_Topic"
	MQTT_BROKER_TLS_CERT_FILE       = "Mqtt_Broker_Tls_Cert_File"
	MQTT_BROKER_TLS_KEY_FILE        = "Mqtt_Broker_Tls_Key_File"
	MQTT_BROKER_TLS_SKIP_VERIFY     = "Mqtt_Broker_Tls_Skip_Verify"
	KAFKA_EVENT_SINK_ENABLED        = "Kafka_Event_Sink_Enabled"
	KAFKA_BROKERS                   = "Kafka_Brokers"
	KAFKA_EVENTS_TOPIC              = "Kafka_Events_Topic"
	KAFKA_EVENTS_BATCH_SIZE         = "Kafka_Events_Batch_Size"
	KAFKA_EVENTS_BATCH_BYTES        = "Kafka_Events_Batch_Bytes"
	KAFKA_USERNAME                  = "Kafka_Username"
	KAFKA_PASSWORD                  = "Kafka_Password"
	KAFKA_SASL_MECHANISM            = "Kafka_SASL_Mechanism"
	KAFKA_CA                        = "Kafka_CA"
	CURSOR_STORE_IMPL               = "Cursor_Store_Impl"
	CURSOR_DATABASE_HOST            = "Cursor_Database_Host"
	CURSOR_DATABASE_PORT            = "Cursor_Database_Port"
	CURSOR_DATABASE_USER            = "Cursor_Database_User"
	CURSOR_DATABASE_PASSWORD        = "Cursor_Database_Password"
	CURSOR_DATABASE_NAME            = "Cursor_Database_Name"
	CURSOR_DATABASE_SSL_MODE        = "Cursor_Database_Ssl_Mode"
	CURSOR_DATABASE_SSL_ROOT_CERT   = "Cursor_Database_Ssl_Root_Cert"

	DEFAULT_BROKER_ADDRESS = "kafka:29092"
)

type Config struct {
	MgmtServerAddr               string
	HttpShutdownTimeout          time.Duration
	Profile                      bool
	ChatApiHost                  string
	AccountApiHost               string
	StreamingApiHost             string
	BotName                      string
	AuthKind                     string
	AuthEmail                    string
	AuthPassword                 string
	AuthSesCookie                string
	ClientType                   string
	DeviceType                   string
	PingSecs                     int
	PollInterval                 time.Duration
	PollTimeout                  time.Duration
	CallTimeout                  time.Duration
	AuthTimeout                  time.Duration
	ManualChatTTL                time.Duration
	TransportRetryMaxAttempts    int
	TransportRetryBackoffBase    time.Duration
	TransportRetryBackoffCap     time.Duration
	PollerBackoffBase            time.Duration
	PollerBackoffCap             time.Duration
	PollerMaxConsecutiveFailures int
	DedupWindowCapacity          int
	DedupWindowTTL               time.Duration
	SessionTTL                   time.Duration
	EventSourceImpl              string
	MqttBrokerAddress            string
	MqttClientId                 string
	MqttEventTopic               string
	MqttBrokerTlsCertFile        string
	MqttBrokerTlsKeyFile         string
	MqttBrokerTlsSkipVerify      bool
	KafkaEventSinkEnabled        bool
	KafkaBrokers                 []string
	KafkaEventsTopic             string
	KafkaEventsBatchSize         int
	KafkaEventsBatchBytes        int
	KafkaUsername                string
	KafkaPassword                string
	KafkaSASLMechanism           string
	KafkaCA                      string
	CursorStoreImpl              string
	CursorDatabaseHost           string
	CursorDatabasePort           int
	CursorDatabaseUser           string
	CursorDatabasePassword       string
	CursorDatabaseName           string
	CursorDatabaseSslMode        string
	CursorDatabaseSslRootCert    string
}

func (c Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", MGMT_SERVER_ADDR, c.MgmtServerAddr)
	fmt.Fprintf(&b, "%s: %s\n", HTTP_SHUTDOWN_TIMEOUT, c.HttpShutdownTimeout)
	fmt.Fprintf(&b, "%s: %t\n", PROFILE, c.Profile)
	fmt.Fprintf(&b, "%s: %s\n", CHAT_API_HOST, c.ChatApiHost)
	fmt.Fprintf(&b, "%s: %s\n", ACCOUNT_API_HOST, c.AccountApiHost)
	fmt.Fprintf(&b, "%s: %s\n", STREAMING_API_HOST, c.StreamingApiHost)
	fmt.Fprintf(&b, "%s: %s\n", BOT_NAME, c.BotName)
	fmt.Fprintf(&b, "%s: %s\n", AUTH_KIND, c.AuthKind)
	fmt.Fprintf(&b, "%s: %s\n", AUTH_EMAIL, c.AuthEmail)
	fmt.Fprintf(&b, "%s: %s\n", CLIENT_TYPE, c.ClientType)
	fmt.Fprintf(&b, "%s: %d\n", PING_SECS, c.PingSecs)
	fmt.Fprintf(&b, "%s: %s\n", POLL_INTERVAL, c.PollInterval)
	fmt.Fprintf(&b, "%s: %s\n", POLL_TIMEOUT, c.PollTimeout)
	fmt.Fprintf(&b, "%s: %s\n", CALL_TIMEOUT, c.CallTimeout)
	fmt.Fprintf(&b, "%s: %s\n", AUTH_TIMEOUT, c.AuthTimeout)
	fmt.Fprintf(&b, "%s: %s\n", MANUAL_CHAT_TTL, c.ManualChatTTL)
	fmt.Fprintf(&b, "%s: %d\n", TRANSPORT_RETRY_MAX_ATTEMPTS, c.TransportRetryMaxAttempts)
	fmt.Fprintf(&b, "%s: %s\n", TRANSPORT_RETRY_BACKOFF_BASE, c.TransportRetryBackoffBase)
	fmt.Fprintf(&b, "%s: %s\n", TRANSPORT_RETRY_BACKOFF_CAP, c.TransportRetryBackoffCap)
	fmt.Fprintf(&b, "%s: %s\n", POLLER_BACKOFF_BASE, c.PollerBackoffBase)
	fmt.Fprintf(&b, "%s: %s\n", POLLER_BACKOFF_CAP, c.PollerBackoffCap)
	fmt.Fprintf(&b, "%s: %d\n", POLLER_MAX_CONSECUTIVE_FAILURES, c.PollerMaxConsecutiveFailures)
	fmt.Fprintf(&b, "%s: %d\n", DEDUP_WINDOW_CAPACITY, c.DedupWindowCapacity)
	fmt.Fprintf(&b, "%s: %s\n", DEDUP_WINDOW_TTL, c.DedupWindowTTL)
	fmt.Fprintf(&b, "%s: %s\n", SESSION_TTL, c.SessionTTL)
	fmt.Fprintf(&b, "%s: %s\n", EVENT_SOURCE_IMPL, c.EventSourceImpl)
	fmt.Fprintf(&b, "%s: %s\n", MQTT_BROKER_ADDRESS, c.MqttBrokerAddress)
	fmt.Fprintf(&b, "%s: %s\n", MQTT_EVENT_TOPIC, c.MqttEventTopic)
	fmt.Fprintf(&b, "%s: %t\n", KAFKA_EVENT_SINK_ENABLED, c.KafkaEventSinkEnabled)
	fmt.Fprintf(&b, "%s: %s\n", KAFKA_BROKERS, c.KafkaBrokers)
	fmt.Fprintf(&b, "%s: %s\n", KAFKA_EVENTS_TOPIC, c.KafkaEventsTopic)
	fmt.Fprintf(&b, "%s: %s\n", CURSOR_STORE_IMPL, c.CursorStoreImpl)
	fmt.Fprintf(&b, "%s: %s\n", CURSOR_DATABASE_HOST, c.CursorDatabaseHost)
	fmt.Fprintf(&b, "%s: %d\n", CURSOR_DATABASE_PORT, c.CursorDatabasePort)
	fmt.Fprintf(&b, "%s: %s\n", CURSOR_DATABASE_NAME, c.CursorDatabaseName)
	return b.String()
}

func GetConfig() *Config {
	options := viper.New()

	options.SetDefault(MGMT_SERVER_ADDR, ":8081")
	options.SetDefault(HTTP_SHUTDOWN_TIMEOUT, 2)
	options.SetDefault(PROFILE, false)
	options.SetDefault(CHAT_API_HOST, "https://chat.example.biz")
	options.SetDefault(ACCOUNT_API_HOST, "https://account.example.biz")
	options.SetDefault(STREAMING_API_HOST, "https://chat-streaming-api.example.biz")
	options.SetDefault(BOT_NAME, "")
	options.SetDefault(AUTH_KIND, "password")
	options.SetDefault(AUTH_EMAIL, "")
	options.SetDefault(AUTH_PASSWORD, "")
	options.SetDefault(AUTH_SES_COOKIE, "")
	options.SetDefault(CLIENT_TYPE, "PC")
	options.SetDefault(DEVICE_TYPE, "")
	options.SetDefault(PING_SECS, 60)
	options.SetDefault(POLL_INTERVAL, "500ms")
	options.SetDefault(POLL_TIMEOUT, "30s")
	options.SetDefault(CALL_TIMEOUT, "10s")
	options.SetDefault(AUTH_TIMEOUT, "30s")
	options.SetDefault(MANUAL_CHAT_TTL, "1h")
	options.SetDefault(TRANSPORT_RETRY_MAX_ATTEMPTS, 3)
	options.SetDefault(TRANSPORT_RETRY_BACKOFF_BASE, "250ms")
	options.SetDefault(TRANSPORT_RETRY_BACKOFF_CAP, "5s")
	options.SetDefault(POLLER_BACKOFF_BASE, "1s")
	options.SetDefault(POLLER_BACKOFF_CAP, "60s")
	options.SetDefault(POLLER_MAX_CONSECUTIVE_FAILURES, 10)
	options.SetDefault(DEDUP_WINDOW_CAPACITY, 1024)
	options.SetDefault(DEDUP_WINDOW_TTL, "15m")
	options.SetDefault(SESSION_TTL, "30m")
	options.SetDefault(EVENT_SOURCE_IMPL, "http")
	options.SetDefault(MQTT_BROKER_ADDRESS, "ssl://localhost:8883")
	options.SetDefault(MQTT_CLIENT_ID, "")
	options.SetDefault(MQTT_EVENT_TOPIC, "oachat/+/events/out")
	options.SetDefault(MQTT_BROKER_TLS_CERT_FILE, "")
	options.SetDefault(MQTT_BROKER_TLS_KEY_FILE, "")
	options.SetDefault(MQTT_BROKER_TLS_SKIP_VERIFY, false)
	options.SetDefault(KAFKA_EVENT_SINK_ENABLED, false)
	options.SetDefault(KAFKA_BROKERS, []string{DEFAULT_BROKER_ADDRESS})
	options.SetDefault(KAFKA_EVENTS_TOPIC, "platform.chat-connector.events")
	options.SetDefault(KAFKA_EVENTS_BATCH_SIZE, 100)
	options.SetDefault(KAFKA_EVENTS_BATCH_BYTES, 1048576)
	options.SetDefault(KAFKA_USERNAME, "")
	options.SetDefault(KAFKA_PASSWORD, "")
	options.SetDefault(KAFKA_SASL_MECHANISM, "")
	options.SetDefault(KAFKA_CA, "")
	options.SetDefault(CURSOR_STORE_IMPL, "none")
	options.SetDefault(CURSOR_DATABASE_HOST, "localhost")
	options.SetDefault(CURSOR_DATABASE_PORT, 5432)
	options.SetDefault(CURSOR_DATABASE_USER, "postgres")
	options.SetDefault(CURSOR_DATABASE_PASSWORD, "postgres")
	options.SetDefault(CURSOR_DATABASE_NAME, "chat-connector")
	options.SetDefault(CURSOR_DATABASE_SSL_MODE, "disable")
	options.SetDefault(CURSOR_DATABASE_SSL_ROOT_CERT, "db_ssl_root_cert.pem")

	options.SetEnvPrefix(ENV_PREFIX)
	options.AutomaticEnv()

	return &Config{
		MgmtServerAddr:               options.GetString(MGMT_SERVER_ADDR),
		HttpShutdownTimeout:          options.GetDuration(HTTP_SHUTDOWN_TIMEOUT) * time.Second,
		Profile:                      options.GetBool(PROFILE),
		ChatApiHost:                  options.GetString(CHAT_API_HOST),
		AccountApiHost:               options.GetString(ACCOUNT_API_HOST),
		StreamingApiHost:             options.GetString(STREAMING_API_HOST),
		BotName:                      options.GetString(BOT_NAME),
		AuthKind:                     options.GetString(AUTH_KIND),
		AuthEmail:                    options.GetString(AUTH_EMAIL),
		AuthPassword:                 options.GetString(AUTH_PASSWORD),
		AuthSesCookie:                options.GetString(AUTH_SES_COOKIE),
		ClientType:                   options.GetString(CLIENT_TYPE),
		DeviceType:                   options.GetString(DEVICE_TYPE),
		PingSecs:                     options.GetInt(PING_SECS),
		PollInterval:                 options.GetDuration(POLL_INTERVAL),
		PollTimeout:                  options.GetDuration(POLL_TIMEOUT),
		CallTimeout:                  options.GetDuration(CALL_TIMEOUT),
		AuthTimeout:                  options.GetDuration(AUTH_TIMEOUT),
		ManualChatTTL:                options.GetDuration(MANUAL_CHAT_TTL),
		TransportRetryMaxAttempts:    options.GetInt(TRANSPORT_RETRY_MAX_ATTEMPTS),
		TransportRetryBackoffBase:    options.GetDuration(TRANSPORT_RETRY_BACKOFF_BASE),
		TransportRetryBackoffCap:     options.GetDuration(TRANSPORT_RETRY_BACKOFF_CAP),
		PollerBackoffBase:            options.GetDuration(POLLER_BACKOFF_BASE),
		PollerBackoffCap:             options.GetDuration(POLLER_BACKOFF_CAP),
		PollerMaxConsecutiveFailures: options.GetInt(POLLER_MAX_CONSECUTIVE_FAILURES),
		DedupWindowCapacity:          options.GetInt(DEDUP_WINDOW_CAPACITY),
		DedupWindowTTL:               options.GetDuration(DEDUP_WINDOW_TTL),
		SessionTTL:                   options.GetDuration(SESSION_TTL),
		EventSourceImpl:              options.GetString(EVENT_SOURCE_IMPL),
		MqttBrokerAddress:            options.GetString(MQTT_BROKER_ADDRESS),
		MqttClientId:                 options.GetString(MQTT_CLIENT_ID),
		MqttEventTopic:               options.GetString(MQTT_EVENT_TOPIC),
		MqttBrokerTlsCertFile:        options.GetString(MQTT_BROKER_TLS_CERT_FILE),
		MqttBrokerTlsKeyFile:         options.GetString(MQTT_BROKER_TLS_KEY_FILE),
		MqttBrokerTlsSkipVerify:      options.GetBool(MQTT_BROKER_TLS_SKIP_VERIFY),
		KafkaEventSinkEnabled:        options.GetBool(KAFKA_EVENT_SINK_ENABLED),
		KafkaBrokers:                 options.GetStringSlice(KAFKA_BROKERS),
		KafkaEventsTopic:             options.GetString(KAFKA_EVENTS_TOPIC),
		KafkaEventsBatchSize:         options.GetInt(KAFKA_EVENTS_BATCH_SIZE),
		KafkaEventsBatchBytes:        options.GetInt(KAFKA_EVENTS_BATCH_BYTES),
		KafkaUsername:                options.GetString(KAFKA_USERNAME),
		KafkaPassword:                options.GetString(KAFKA_PASSWORD),
		KafkaSASLMechanism:           options.GetString(KAFKA_SASL_MECHANISM),
		KafkaCA:                      options.GetString(KAFKA_CA),
		CursorStoreImpl:              options.GetString(CURSOR_STORE_IMPL),
		CursorDatabaseHost:           options.GetString(CURSOR_DATABASE_HOST),
		CursorDatabasePort:           options.GetInt(CURSOR_DATABASE_PORT),
		CursorDatabaseUser:           options.GetString(CURSOR_DATABASE_USER),
		CursorDatabasePassword:       options.GetString(CURSOR_DATABASE_PASSWORD),
		CursorDatabaseName:           options.GetString(CURSOR_DATABASE_NAME),
		CursorDatabaseSslMode:        options.GetString(CURSOR_DATABASE_SSL_MODE),
		CursorDatabaseSslRootCert:    options.GetString(CURSOR_DATABASE_SSL_ROOT_CERT),
	}
}
