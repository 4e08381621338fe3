package queue

type ProducerConfig struct {
	Brokers    []string
	SaslConfig *SaslConfig
	Topic      string
	BatchSize  int
	BatchBytes int
	Balancer   string
}

type SaslConfig struct {
	SaslMechanism        string
	SaslSecurityProtocol string
	SaslUsername         string
	SaslPassword         string
	KafkaCA              string
}
