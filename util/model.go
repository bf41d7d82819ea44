package util

import (
	"errors"
	"fmt"
	"strings"
)

const ( // message types
	COMMAND = iota
	STATUS  = iota
)

const ( // payloads
	PAYLOAD_ON      = "on"
	PAYLOAD_OFF     = "off"
	PAYLOAD_ONLINE  = "online"
	PAYLOAD_OFFLINE = "offline"
)

var ErrInvalidModel = errors.New("invalid device model")

// DeviceModel names the topics of one relay channel on one device.
type DeviceModel struct {
	Namespace string `mapstructure:"namespace"`
	DeviceID  string `mapstructure:"device_id"`
	Relay     int    `mapstructure:"relay_index"`
}

func (m DeviceModel) base() string {
	return m.Namespace + "/" + m.DeviceID
}

func (m DeviceModel) StatusTopic() string {
	return fmt.Sprintf("%s/relay/%d", m.base(), m.Relay)
}

func (m DeviceModel) CommandTopic() string {
	return m.StatusTopic() + "/command"
}

func (m DeviceModel) AvailabilityTopic() string {
	return m.base() + "/status"
}

func (m DeviceModel) DiscoveryTopic() string {
	return fmt.Sprintf("homeassistant/switch/%s/relay%d/config", m.DeviceID, m.Relay)
}

func (m DeviceModel) FindTopicType(topic string) int {
	switch topic {
	case m.CommandTopic():
		return COMMAND
	case m.StatusTopic():
		return STATUS
	}
	return -1
}

func (m DeviceModel) Validate() error {
	if m.Namespace == "" || m.DeviceID == "" {
		return fmt.Errorf("%w: namespace and device_id are required", ErrInvalidModel)
	}
	for _, part := range []string{m.Namespace, m.DeviceID} {
		if strings.ContainsAny(part, "+#") {
			return fmt.Errorf("%w: %q contains an MQTT wildcard", ErrInvalidModel, part)
		}
	}
	if strings.Contains(m.DeviceID, "/") {
		return fmt.Errorf("%w: device_id %q contains a topic separator", ErrInvalidModel, m.DeviceID)
	}
	if m.Relay < 0 {
		return fmt.Errorf("%w: relay_index %d is negative", ErrInvalidModel, m.Relay)
	}
	return nil
}

func (m *DeviceModel) BuildModel() error {
	m.Namespace = strings.Trim(Config.GetString("namespace"), "/")
	m.DeviceID = Config.GetString("device_id")
	m.Relay = Config.GetInt("relay_index")
	if err := m.Validate(); err != nil {
		Logger.Error().Err(err).Msg("error building device model")
		return err
	}
	return nil
}
