package mqtt

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/dbinev/lis2mdl-to-mqtt/pkg/config"
	"github.com/dbinev/lis2mdl-to-mqtt/pkg/output"
	"github.com/dbinev/lis2mdl-to-mqtt/pkg/sensor"
)

const (
	DefaultServer     = "tcp://localhost:1883"
	DefaultClientID   = "lis2mdl-client"
	DefaultStateTopic = "lis2mdl"
	// discovery payload keys/values
	keyName                = "name"
	keyStateTopic          = "state_topic"
	keyUnitOfMeasurement   = "unit_of_measurement"
	keyStateClass          = "state_class"
	keyValueTemplate       = "value_template"
	keyJSONAttributesTopic = "json_attributes_topic"
	keyUniqueID            = "unique_id"
	unitMilligauss         = "mG"
	stateClassMeasurement  = "measurement"
	valueTemplateField     = "{{ value_json.x_mg }}"
)

type MQTTOutput struct {
	client     mqtt.Client
	stateTopic string
}

func NewMQTT(cfg config.MQTTConfig) (output.Output, error) {
	server := cfg.Server
	if server == "" {
		server = DefaultServer
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = DefaultClientID
	}
	opts := mqtt.NewClientOptions().AddBroker(server).SetClientID(clientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}

	st := cfg.StateTopic
	if st == "" {
		st = DefaultStateTopic
	}
	m := &MQTTOutput{client: client, stateTopic: st}

	// Publish a Home Assistant discovery payload if requested.
	if cfg.DiscoveryTopic != "" {
		name := cfg.DiscoveryName
		if name == "" {
			name = fmt.Sprintf("LIS2MDL %s", clientID)
		}
		uniqueID := cfg.DiscoveryUniqueID
		if uniqueID == "" {
			uniqueID = clientID
		}
		payload := map[string]interface{}{
			keyName:                name,
			keyStateTopic:          m.stateTopic,
			keyUnitOfMeasurement:   unitMilligauss,
			keyStateClass:          stateClassMeasurement,
			keyValueTemplate:       valueTemplateField,
			keyJSONAttributesTopic: m.stateTopic,
			keyUniqueID:            uniqueID,
		}
		if err := publishJSON(client, cfg.DiscoveryTopic, true, payload); err != nil {
			log.WithError(err).Error("mqtt discovery publish")
		}
	}

	return m, nil
}

func (m *MQTTOutput) Publish(readings []sensor.Reading) error {
	for _, r := range readings {
		b, err := json.Marshal(r)
		if err != nil {
			return err
		}
		token := m.client.Publish(m.stateTopic, 0, false, b)
		token.Wait()
		if token.Error() != nil {
			return token.Error()
		}
	}
	return nil
}

func (m *MQTTOutput) Close() error {
	if m.client != nil {
		m.client.Disconnect(250)
	}
	return nil
}

func publishJSON(client mqtt.Client, topic string, retained bool, payload map[string]interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	token := client.Publish(topic, 0, retained, b)
	token.Wait()
	return token.Error()
}
