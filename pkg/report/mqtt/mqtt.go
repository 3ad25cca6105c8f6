package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/itohio/gosampler/pkg/config"
	"github.com/itohio/gosampler/pkg/report"
	"github.com/itohio/gosampler/pkg/sensor"
	"github.com/segmentio/encoding/json"
	"go.uber.org/zap"
)

const (
	qos             = 0
	disconnectQuiet = 250 // ms
	publishTimeout  = 2 * time.Second
)

// payload is the JSON document published for every reading.
type payload struct {
	Millivolts int32     `json:"millivolts"`
	Microvolts int32     `json:"microvolts"`
	PeriodS    int64     `json:"period_s"`
	Timestamp  time.Time `json:"timestamp"`
}

// Sink publishes readings to an MQTT topic.
type Sink struct {
	client paho.Client
	topic  string
	logger *zap.SugaredLogger
}

var _ report.Sink = (*Sink)(nil)

// New connects to the broker and returns a Sink.
func New(cfg config.MQTTConfig, logger *zap.SugaredLogger) (*Sink, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Server).SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)

	client := paho.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to mqtt broker %s: %w", cfg.Server, token.Error())
	}

	return newSink(client, cfg.Topic, logger), nil
}

func newSink(client paho.Client, topic string, logger *zap.SugaredLogger) *Sink {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Sink{client: client, topic: topic, logger: logger}
}

// Publish sends the reading as JSON.
func (s *Sink) Publish(r sensor.Reading, period time.Duration) error {
	b, err := encode(r, period)
	if err != nil {
		return err
	}

	token := s.client.Publish(s.topic, qos, false, b)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("timed out publishing to %s", s.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", s.topic, err)
	}

	s.logger.Debugw("reading published", "topic", s.topic, "microvolts", r.Microvolts)
	return nil
}

// Close disconnects from the broker.
func (s *Sink) Close() error {
	if s.client != nil {
		s.client.Disconnect(disconnectQuiet)
	}
	return nil
}

func encode(r sensor.Reading, period time.Duration) ([]byte, error) {
	b, err := json.Marshal(payload{
		Millivolts: r.Millivolts(),
		Microvolts: r.Microvolts,
		PeriodS:    period.Milliseconds() / 1000,
		Timestamp:  r.Timestamp,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode reading: %w", err)
	}
	return b, nil
}
