package metrics

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher is the subset of mqtt.Client the MQTT sink needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

var _ Sink = &MQTT{}

// MQTT mirrors every gauge update to a broker as a retained JSON message on
// <prefix>[/<sensor>]/<name>[/<label value>...], extra labels in name order.
type MQTT struct {
	client Publisher
	prefix string
	now    func() time.Time
}

func NewMQTT(client Publisher, prefix string) *MQTT {
	return &MQTT{
		client: client,
		prefix: strings.TrimSuffix(prefix, "/"),
		now:    time.Now,
	}
}

// Message is the payload published for every update.
type Message struct {
	Name      string  `json:"name"`
	Labels    Labels  `json:"labels"`
	Value     float64 `json:"value"`
	Timestamp int64   `json:"ts"`
}

func (m *MQTT) Gauge(name, help string, labels Labels) (Gauge, error) {
	parts := []string{m.prefix}
	if sn := labels["sensor"]; sn != "" {
		parts = append(parts, sn)
	}
	parts = append(parts, name)
	for _, k := range labels.Names() {
		if k == "sensor" {
			continue
		}
		parts = append(parts, labels[k])
	}
	return &mqttGauge{sink: m, topic: strings.Join(parts, "/"), name: name, labels: labels}, nil
}

type mqttGauge struct {
	sink   *MQTT
	topic  string
	name   string
	labels Labels
}

func (g *mqttGauge) Set(v float64) {
	payload, err := json.Marshal(Message{
		Name:      g.name,
		Labels:    g.labels,
		Value:     v,
		Timestamp: g.sink.now().UnixMilli(),
	})
	if err != nil {
		slog.Warn("could not encode mqtt payload", "topic", g.topic, "error", err)
		return
	}
	// never block the poll loop on the broker
	token := g.sink.client.Publish(g.topic, 0, true, payload)
	go func() {
		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			slog.Warn("mqtt publish failed", "topic", g.topic, "error", token.Error())
		}
	}()
}

// DialMQTT connects to broker and returns the connected client.
func DialMQTT(broker, clientID string, timeout time.Duration) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(timeout)
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		slog.Warn("mqtt connection lost", "broker", broker, "error", err)
	}
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("timed out connecting to mqtt broker %s", broker)
	}
	if err := token.Error(); err != nil {
		return nil, err
	}
	return client, nil
}
