// Package notify publishes ingestion run reports over MQTT so dashboards
// can follow the nightly fan-out without polling the API.
package notify

import (
	"encoding/json"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/hppeng/hpp-platform/internal/service"
)

// MQTTPublisher sends each fan-out's reports as one JSON message.
type MQTTPublisher struct {
	client mqtt.Client
	topic  string
}

// NewMQTTPublisher connects to the broker; an empty broker URL disables
// publishing and returns nil.
func NewMQTTPublisher(broker, topic string) (*MQTTPublisher, error) {
	if broker == "" {
		return nil, nil
	}
	opts := mqtt.NewClientOptions().AddBroker(broker).SetClientID("hpp-platform")
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &MQTTPublisher{client: client, topic: topic}, nil
}

// PublishRunReports emits the reports; publish failures are logged, never
// propagated into the ingestion path.
func (p *MQTTPublisher) PublishRunReports(reports []service.RunReport) {
	payload, err := json.Marshal(reports)
	if err != nil {
		log.Error().Err(err).Msg("marshal run reports")
		return
	}
	if token := p.client.Publish(p.topic, 0, false, payload); token.Wait() && token.Error() != nil {
		log.Error().Err(token.Error()).Str("topic", p.topic).Msg("publish run reports")
	}
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
