package util

import (
	"encoding/json"
	"fmt"

	MQTT "github.com/eclipse/paho.mqtt.golang"
)

type HAAvdvertisementAvailability struct {
	Topic               string `json:"topic"`                 // : "hab/relay01/status"
	PayloadAvailable    string `json:"payload_available"`     // : "online"
	PayloadNotAvailable string `json:"payload_not_available"` // : "offline"
}

type HADeviceSpec struct {
	Name        string   `json:"name"` // : "relay01"
	Identifiers []string `json:"ids"`  // : ["relay_controller_relay01"]
}

type HAAdvertisement struct { //nolint:govet // struct layout optimized for JSON field order
	HAAvdvertisementAvailability []HAAvdvertisementAvailability `json:"availability"`
	Device                       HADeviceSpec                   `json:"device"`
	UniqueID                     string                         `json:"uniq_id"`       // "relay01-relay0"
	Name                         string                         `json:"name"`          // : "relay01 relay 0"
	StateTopic                   string                         `json:"state_topic"`   // : "hab/relay01/relay/0"
	CommandTopic                 string                         `json:"command_topic"` // : "hab/relay01/relay/0/command"
	PayloadOn                    string                         `json:"payload_on"`
	PayloadOff                   string                         `json:"payload_off"`
	StateOn                      string                         `json:"state_on"`
	StateOff                     string                         `json:"state_off"`
	Platform                     string                         `json:"platform"` // "switch"
	Qos                          int                            `json:"qos"`
}

func (ha HAAdvertisement) ToJson() string {
	data, err := json.Marshal(ha)
	if err != nil {
		Logger.Error().Msgf("Error marshalling HAAdvertisement: %v", err)
		return ""
	}
	return string(data)
}

func ConstructHAAdvertisement(m DeviceModel) HAAdvertisement {
	return HAAdvertisement{
		Name:         fmt.Sprintf("%s relay %d", m.DeviceID, m.Relay),
		StateTopic:   m.StatusTopic(),
		CommandTopic: m.CommandTopic(),
		PayloadOn:    PAYLOAD_ON,
		PayloadOff:   PAYLOAD_OFF,
		StateOn:      PAYLOAD_ON,
		StateOff:     PAYLOAD_OFF,
		HAAvdvertisementAvailability: []HAAvdvertisementAvailability{
			{
				Topic:               m.AvailabilityTopic(),
				PayloadAvailable:    PAYLOAD_ONLINE,
				PayloadNotAvailable: PAYLOAD_OFFLINE,
			},
		},
		Qos:      int(QOS_AT_LEAST_ONCE),
		UniqueID: fmt.Sprintf("%s-relay%d", m.DeviceID, m.Relay),
		Platform: "switch",
		Device: HADeviceSpec{
			Name:        m.DeviceID,
			Identifiers: []string{"relay_controller_" + m.DeviceID},
		},
	}
}

// AdvertiseHA publishes the retained discovery document for the relay.
func AdvertiseHA(m DeviceModel, client MQTT.Client) {
	ha := ConstructHAAdvertisement(m)
	if token := client.Publish(m.DiscoveryTopic(), QOS_AT_LEAST_ONCE, true, ha.ToJson()); token.Wait() && token.Error() != nil {
		Logger.Error().Msgf("Error Publishing: %v", fmt.Errorf("%v", token.Error()))
	}
}
