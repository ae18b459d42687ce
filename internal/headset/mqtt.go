package headset

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	lookout "quest-lookout/internal/lookout/domain"
)

// MQTTConfig configures the pose subscription. A headset-side bridge
// publishes the fused head pose as JSON quaternion messages.
type MQTTConfig struct {
	Broker   string
	Port     int
	Topic    string
	Username string
	Password string
	UseTLS   bool
	// StaleAfter bounds how old the latest pose may be before Sample
	// reports ErrSensorUnavailable. Zero means 500ms.
	StaleAfter time.Duration
}

type poseMessage struct {
	W  float64 `json:"w"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	Z  float64 `json:"z"`
	TS int64   `json:"timestamp_ms"`
}

// MQTTSampler holds the most recent headset pose received over MQTT and
// serves it to the engine's polling loop. Sample never blocks on the
// network.
type MQTTSampler struct {
	config MQTTConfig
	client mqtt.Client
	logger *log.Logger
	now    func() time.Time

	mu         sync.RWMutex
	latest     lookout.Sample
	receivedAt time.Time
	connected  bool
}

// NewMQTTSampler constructs a sampler; call Start to connect.
func NewMQTTSampler(config MQTTConfig, logger *log.Logger) *MQTTSampler {
	if logger == nil {
		logger = log.New(os.Stdout, "", log.LstdFlags)
	}
	if config.StaleAfter <= 0 {
		config.StaleAfter = 500 * time.Millisecond
	}
	return &MQTTSampler{config: config, logger: logger, now: time.Now}
}

// Start connects to the broker and subscribes to the pose topic. The
// connection is retried automatically by the client; the sampler simply
// reports unavailability while disconnected.
func (s *MQTTSampler) Start() error {
	opts := mqtt.NewClientOptions()
	protocol := "tcp"
	if s.config.UseTLS {
		protocol = "tls"
		opts.SetTLSConfig(&tls.Config{})
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", protocol, s.config.Broker, s.config.Port))
	opts.SetClientID(fmt.Sprintf("quest-lookout-%d", time.Now().Unix()))
	if s.config.Username != "" {
		opts.SetUsername(s.config.Username)
		opts.SetPassword(s.config.Password)
	}
	opts.SetKeepAlive(15 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		s.setConnected(true)
		s.logger.Printf("headset mqtt connected, subscribing to %s", s.config.Topic)
		if token := c.Subscribe(s.config.Topic, 0, s.handleMessage); token.Wait() && token.Error() != nil {
			s.logger.Printf("headset mqtt subscribe error: %v", token.Error())
		}
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.setConnected(false)
		s.logger.Printf("headset mqtt connection lost: %v", err)
	})

	s.client = mqtt.NewClient(opts)
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("headset mqtt connect: %w", token.Error())
	}
	return nil
}

// Close disconnects from the broker.
func (s *MQTTSampler) Close() {
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(250)
	}
}

func (s *MQTTSampler) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	var pose poseMessage
	if err := json.Unmarshal(msg.Payload(), &pose); err != nil {
		s.logger.Printf("headset mqtt bad pose payload: %v", err)
		return
	}
	yaw, pitch := YawPitchFromQuaternion(pose.W, pose.X, pose.Y, pose.Z)
	at := s.now()
	if pose.TS > 0 {
		at = time.UnixMilli(pose.TS)
	}
	s.mu.Lock()
	s.latest = lookout.Sample{At: at, Yaw: yaw, Pitch: pitch}
	s.receivedAt = s.now()
	s.mu.Unlock()
}

// Sample returns the latest pose, or ErrSensorUnavailable when
// disconnected or the latest pose is older than StaleAfter.
func (s *MQTTSampler) Sample(_ context.Context) (lookout.Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.connected || s.receivedAt.IsZero() {
		return lookout.Sample{}, ErrSensorUnavailable
	}
	if s.now().Sub(s.receivedAt) > s.config.StaleAfter {
		return lookout.Sample{}, ErrSensorUnavailable
	}
	return s.latest, nil
}

func (s *MQTTSampler) setConnected(connected bool) {
	s.mu.Lock()
	s.connected = connected
	s.mu.Unlock()
}
