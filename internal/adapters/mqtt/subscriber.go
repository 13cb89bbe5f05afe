package mqtt

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quentinrf/plant-monitor/services/statemon/internal/domain"
)

const (
	DefaultBroker   = "tcp://localhost:1883"
	DefaultClientID = "statemon"
	DefaultTopic    = "statemon/sensors/+/data"

	connectTimeout = 10 * time.Second
	handleTimeout  = 15 * time.Second
	quiesceMillis  = 250
)

// Options configures the broker connection.
type Options struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	QoS      byte
	TLS      *tls.Config
}

// payload is the message body; same shape as the HTTP POST body.
type payload struct {
	Value     float64 `json:"value"`
	Unit      string  `json:"unit"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"createdAt"`
}

// Subscriber ingests readings published on a topic pattern whose single
// '+' segment carries the sensor id, e.g. statemon/sensors/5/data.
type Subscriber struct {
	client paho.Client
	svc    domain.ReadingService
	topic  string
	qos    byte
	ctx    context.Context
}

// NewSubscriber builds the client; nothing is dialled until Start.
func NewSubscriber(opts Options, svc domain.ReadingService) (*Subscriber, error) {
	if opts.Broker == "" {
		opts.Broker = DefaultBroker
	}
	if opts.ClientID == "" {
		opts.ClientID = DefaultClientID
	}
	if opts.Topic == "" {
		opts.Topic = DefaultTopic
	}
	if strings.Count(opts.Topic, "+") != 1 || strings.Contains(opts.Topic, "#") {
		return nil, fmt.Errorf("topic %q must contain exactly one '+' and no '#'", opts.Topic)
	}

	s := &Subscriber{
		svc:   svc,
		topic: opts.Topic,
		qos:   opts.QoS,
		ctx:   context.Background(),
	}

	co := paho.NewClientOptions().AddBroker(opts.Broker).SetClientID(opts.ClientID)
	if opts.Username != "" {
		co.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		co.SetPassword(opts.Password)
	}
	if opts.TLS != nil {
		co.SetTLSConfig(opts.TLS)
	}
	co.SetAutoReconnect(true)
	co.SetCleanSession(true)
	// A clean session drops subscriptions, so subscribe on every (re)connect.
	co.SetOnConnectHandler(s.subscribe)
	co.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Warn().Err(err).Str("broker", opts.Broker).Msg("mqtt connection lost")
	})

	s.client = paho.NewClient(co)
	return s, nil
}

// Start connects to the broker. Message handling uses ctx as its parent.
func (s *Subscriber) Start(ctx context.Context) error {
	s.ctx = ctx

	token := s.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("mqtt connect: timed out after %s", connectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

// Stop unsubscribes and disconnects.
func (s *Subscriber) Stop() {
	if !s.client.IsConnected() {
		return
	}
	if token := s.client.Unsubscribe(s.topic); token.WaitTimeout(time.Second) && token.Error() != nil {
		log.Warn().Err(token.Error()).Str("topic", s.topic).Msg("mqtt unsubscribe failed")
	}
	s.client.Disconnect(quiesceMillis)
	log.Info().Msg("mqtt subscriber stopped")
}

func (s *Subscriber) subscribe(c paho.Client) {
	token := c.Subscribe(s.topic, s.qos, s.onMessage)
	if token.Wait() && token.Error() != nil {
		log.Error().Err(token.Error()).Str("topic", s.topic).Msg("mqtt subscribe failed")
		return
	}
	log.Info().Str("topic", s.topic).Uint8("qos", s.qos).Msg("mqtt subscribed")
}

func (s *Subscriber) onMessage(_ paho.Client, msg paho.Message) {
	ctx, cancel := context.WithTimeout(s.ctx, handleTimeout)
	defer cancel()

	if err := s.Handle(ctx, msg.Topic(), msg.Payload()); err != nil {
		level := zerolog.ErrorLevel
		if errors.Is(err, domain.ErrValidation) {
			level = zerolog.WarnLevel
		}
		log.WithLevel(level).Err(err).Str("topic", msg.Topic()).Msg("dropping mqtt message")
	}
}

// Handle records one message. Malformed topics or payloads return an error
// wrapping domain.ErrValidation.
func (s *Subscriber) Handle(ctx context.Context, topic string, body []byte) error {
	sensorID, err := SensorIDFromTopic(s.topic, topic)
	if err != nil {
		return err
	}

	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return fmt.Errorf("%w: decode payload: %v", domain.ErrValidation, err)
	}

	reading := domain.NewReading(sensorID, p.Value, p.Unit, p.Status, p.CreatedAt)
	if err := s.svc.Add(ctx, sensorID, reading); err != nil {
		return fmt.Errorf("add reading for sensor %d: %w", sensorID, err)
	}

	log.Debug().Int("sensor_id", sensorID).Float64("value", p.Value).Msg("recorded mqtt reading")
	return nil
}

// SensorIDFromTopic extracts the sensor id that a concrete topic carries in
// the '+' position of pattern.
func SensorIDFromTopic(pattern, topic string) (int, error) {
	want := strings.Split(pattern, "/")
	got := strings.Split(topic, "/")
	if len(want) != len(got) {
		return 0, fmt.Errorf("%w: topic %q does not match %q", domain.ErrValidation, topic, pattern)
	}

	raw := ""
	for i := range want {
		switch {
		case want[i] == "+":
			raw = got[i]
		case want[i] != got[i]:
			return 0, fmt.Errorf("%w: topic %q does not match %q", domain.ErrValidation, topic, pattern)
		}
	}

	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid sensor id %q in topic", domain.ErrValidation, raw)
	}
	return int(id), nil
}
