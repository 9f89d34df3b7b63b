package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	coremon "github.com/kristi80/Datakomm-prosjekt-2022/core/monitoring"
	coremqtt "github.com/kristi80/Datakomm-prosjekt-2022/core/mqtt"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/telemetry"
	"github.com/kristi80/Datakomm-prosjekt-2022/infra/logger"
)

// ErrPublishTimeout is returned when the broker does not acknowledge a
// publish in time.
var ErrPublishTimeout = errors.New("publish not acknowledged")

// DefaultInputTopic is the root of every inbound command topic.
const DefaultInputTopic = "esp32/input"

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker     string          `json:"broker"`
	ClientID   string          `json:"client_id"`
	Username   string          `json:"username"`
	Password   string          `json:"password"`
	UseTLS     bool            `json:"use_tls"`
	ClientCert string          `json:"client_cert"`
	ClientKey  string          `json:"client_key"`
	CABundle   string          `json:"ca_bundle"`
	AuthMethod string          `json:"auth_method"`
	QoS        map[string]byte `json:"qos"`
	LWTTopic   string          `json:"lwt_topic"`
	LWTPayload string          `json:"lwt_payload"`
	LWTQoS     byte            `json:"lwt_qos"`
	LWTRetain  bool            `json:"lwt_retain"`
	MaxRetries int             `json:"max_retries"`
	BackoffMS  int             `json:"backoff_ms"`
	// PublishTimeoutMS bounds the wait for a single publish acknowledgement.
	PublishTimeoutMS int `json:"publish_timeout_ms"`
	// ConnectTimeoutMS bounds the initial connection attempts.
	ConnectTimeoutMS int    `json:"connect_timeout_ms"`
	TopicPrefix      string `json:"topic_prefix"`
	InputTopic       string `json:"input_topic"`
	// Retain marks telemetry as retained so late dashboards see the last
	// cycle.
	Retain    bool        `json:"retain"`
	TLSConfig *tls.Config `json:"-"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "bay-" + uuid.NewString()
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = telemetry.DefaultPrefix
	}
	if c.InputTopic == "" {
		c.InputTopic = DefaultInputTopic
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
	if c.PublishTimeoutMS <= 0 {
		c.PublishTimeoutMS = 1000
	}
	if c.ConnectTimeoutMS <= 0 {
		c.ConnectTimeoutMS = 30000
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("mqtt broker is required")
	}
	switch c.AuthMethod {
	case "", "username_password", "certificate", "both":
	default:
		return fmt.Errorf("unknown auth_method %q", c.AuthMethod)
	}
	return nil
}

// Handlers receive inbound commands. Nil handlers are ignored.
type Handlers struct {
	Aux    func(cmd string)
	Toggle func(slot model.SlotID)
	SoC    func(slot model.SlotID, percent float64)
	Demand func(raw int64)
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// PahoClient implements the core mqtt.Client using Eclipse Paho.
type PahoClient struct {
	cli        pahoClient
	qos        map[string]byte
	logger     logger.Logger
	handlers   Handlers
	inputTopic string
	retain     bool
	maxRetries int
	backoff    time.Duration
	timeout    time.Duration

	mu     sync.Mutex
	linkUp bool
}

var _ coremqtt.Client = (*PahoClient)(nil)

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPahoClient connects to the broker, retrying with exponential backoff
// until ConnectTimeoutMS elapses or ctx is done, and subscribes to the input
// topics.
func NewPahoClient(ctx context.Context, cfg Config, h Handlers) (*PahoClient, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_client")
	pc := &PahoClient{
		qos:        cfg.QoS,
		logger:     log,
		handlers:   h,
		inputTopic: strings.TrimSuffix(cfg.InputTopic, "/"),
		retain:     cfg.Retain,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		timeout:    time.Duration(cfg.PublishTimeoutMS) * time.Millisecond,
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		connected.Set(1)
		topic := pc.inputTopic + "/#"
		if token := c.Subscribe(topic, pc.qosFor("input"), pc.onMessage); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe %s: %v", topic, token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		connected.Set(0)
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = pc.backoff
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = time.Duration(cfg.ConnectTimeoutMS) * time.Millisecond
	attempt := 0
	err = backoff.Retry(func() error {
		attempt++
		token := c.Connect()
		token.Wait()
		if err := token.Error(); err != nil {
			log.Warnf("connect attempt %d to %s failed: %v", attempt, cfg.Broker, err)
			return err
		}
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Broker, err)
	}
	pc.cli = c
	pc.linkUp = true
	return pc, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	opts.SetMaxReconnectInterval(5 * time.Second)
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}
	return cfg, nil
}

func (p *PahoClient) qosFor(channel string) byte {
	if q, ok := p.qos[channel]; ok {
		return q
	}
	if q, ok := p.qos["default"]; ok {
		return q
	}
	return 0
}

// onMessage routes inbound commands:
//
//	<input>                     on|off for the aux output
//	<input>/parking/<n>         presence toggle for slot n
//	<input>/parking/<n>/soc     arrival state of charge in percent
//	<input>/pot                 raw demand reading
func (p *PahoClient) onMessage(_ paho.Client, msg paho.Message) {
	rest, ok := strings.CutPrefix(msg.Topic(), p.inputTopic)
	if !ok {
		return
	}
	payload := strings.TrimSpace(string(msg.Payload()))
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	switch {
	case rest == "" || rest == "/":
		inboundTotal.WithLabelValues("aux").Inc()
		if p.handlers.Aux != nil {
			p.handlers.Aux(payload)
		}
	case len(parts) == 1 && parts[0] == "pot":
		raw, err := strconv.ParseInt(payload, 10, 64)
		if err != nil {
			p.logger.Warnf("invalid pot reading %q: %v", payload, err)
			return
		}
		inboundTotal.WithLabelValues("demand").Inc()
		if p.handlers.Demand != nil {
			p.handlers.Demand(raw)
		}
	case parts[0] == "parking" && (len(parts) == 2 || len(parts) == 3):
		n, err := strconv.Atoi(parts[1])
		if err != nil || n < 1 {
			p.logger.Warnf("invalid slot in topic %s", msg.Topic())
			return
		}
		slot := model.SlotFromNumber(n)
		if len(parts) == 2 {
			inboundTotal.WithLabelValues("toggle").Inc()
			if p.handlers.Toggle != nil {
				p.handlers.Toggle(slot)
			}
			return
		}
		if parts[2] != "soc" {
			return
		}
		pct, err := strconv.ParseFloat(payload, 64)
		if err != nil || pct < 0 || pct > 100 {
			p.logger.Warnf("invalid soc %q for %s", payload, slot)
			return
		}
		inboundTotal.WithLabelValues("soc").Inc()
		if p.handlers.SoC != nil {
			p.handlers.SoC(slot, pct)
		}
	default:
		p.logger.Debugf("ignoring message on %s", msg.Topic())
	}
}

// IsConnected reports whether the broker link is up.
func (p *PahoClient) IsConnected() bool {
	return p.cli != nil && p.cli.IsConnected()
}

// Service tracks link state transitions. Paho reconnects on its own, so this
// never blocks.
func (p *PahoClient) Service() {
	up := p.IsConnected()
	p.mu.Lock()
	changed := up != p.linkUp
	p.linkUp = up
	p.mu.Unlock()
	if !changed {
		return
	}
	if up {
		connected.Set(1)
		p.logger.Infof("broker link restored")
	} else {
		connected.Set(0)
		p.logger.Warnf("broker link down, telemetry paused")
	}
}

// Publish sends payload with up to maxRetries retries and exponential
// backoff between attempts. Each attempt waits at most the publish timeout.
func (p *PahoClient) Publish(channel, topic string, payload []byte) (int, error) {
	if !p.IsConnected() {
		return 0, coremqtt.ErrNotConnected
	}
	qos := p.qosFor(channel)
	var publishErr error
	attempts := 0
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		attempts++
		token := p.cli.Publish(topic, qos, p.retain, payload)
		if token.WaitTimeout(p.timeout) {
			publishErr = token.Error()
		} else {
			publishErr = fmt.Errorf("%w after %s", ErrPublishTimeout, p.timeout)
		}
		if publishErr == nil {
			break
		}
		p.logger.Errorf("publish %s attempt %d failed: %v", topic, attempt+1, publishErr)
		if attempt < p.maxRetries {
			time.Sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	if publishErr != nil {
		publishFailure.WithLabelValues(channel).Inc()
		coremon.CaptureException(publishErr, map[string]string{"module": "mqtt", "topic": topic})
		return attempts, publishErr
	}
	publishSuccess.WithLabelValues(channel).Inc()
	return attempts, nil
}

// PublishToggle sends a presence toggle for slot to a running controller.
func (p *PahoClient) PublishToggle(slot model.SlotID) error {
	topic := fmt.Sprintf("%s/parking/%d", p.inputTopic, slot.Number())
	_, err := p.Publish("input", topic, []byte("toggle"))
	return err
}

// PublishAux sends an on/off command for the aux output.
func (p *PahoClient) PublishAux(on bool) error {
	cmd := "off"
	if on {
		cmd = "on"
	}
	_, err := p.Publish("input", p.inputTopic, []byte(cmd))
	return err
}

// PublishPot sends a raw demand reading as the panel potentiometer would.
func (p *PahoClient) PublishPot(raw int64) error {
	_, err := p.Publish("input", p.inputTopic+"/pot", []byte(strconv.FormatInt(raw, 10)))
	return err
}

// PublishSoC reports the arrival state of charge for slot.
func (p *PahoClient) PublishSoC(slot model.SlotID, percent float64) error {
	topic := fmt.Sprintf("%s/parking/%d/soc", p.inputTopic, slot.Number())
	_, err := p.Publish("input", topic, []byte(strconv.FormatFloat(percent, 'f', -1, 64)))
	return err
}

// Disconnect gracefully closes the MQTT connection.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
	connected.Set(0)
}
