package util

import (
	"encoding/json"
	"testing"
)

func TestConstructHAAdvertisement(t *testing.T) {
	m := DeviceModel{Namespace: "hab", DeviceID: "relay01"}

	advertisement := ConstructHAAdvertisement(m)

	if advertisement.StateTopic != "hab/relay01/relay/0" {
		t.Errorf("StateTopic = %s, expected hab/relay01/relay/0", advertisement.StateTopic)
	}
	if advertisement.CommandTopic != "hab/relay01/relay/0/command" {
		t.Errorf("CommandTopic = %s, expected hab/relay01/relay/0/command", advertisement.CommandTopic)
	}
	if advertisement.PayloadOn != "on" || advertisement.PayloadOff != "off" {
		t.Errorf("payloads = %s/%s, expected on/off", advertisement.PayloadOn, advertisement.PayloadOff)
	}
	if advertisement.Platform != "switch" {
		t.Errorf("Platform = %s, expected 'switch'", advertisement.Platform)
	}
	if advertisement.UniqueID != "relay01-relay0" {
		t.Errorf("UniqueID = %s, expected relay01-relay0", advertisement.UniqueID)
	}
	if advertisement.Qos != 1 {
		t.Errorf("Qos = %d, expected 1", advertisement.Qos)
	}

	if len(advertisement.HAAvdvertisementAvailability) != 1 {
		t.Fatalf("Expected 1 availability item, got %d", len(advertisement.HAAvdvertisementAvailability))
	}
	avail := advertisement.HAAvdvertisementAvailability[0]
	if avail.Topic != "hab/relay01/status" {
		t.Errorf("Availability topic = %s, expected 'hab/relay01/status'", avail.Topic)
	}
}

func TestHAAdvertisementToJson(t *testing.T) {
	advertisement := ConstructHAAdvertisement(DeviceModel{Namespace: "hab", DeviceID: "relay01"})

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(advertisement.ToJson()), &decoded); err != nil {
		t.Fatalf("ToJson() produced invalid JSON: %v", err)
	}

	for _, key := range []string{"uniq_id", "command_topic", "state_topic", "availability", "device"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("JSON missing key %s", key)
		}
	}
}

func TestAdvertiseHA(t *testing.T) {
	m := DeviceModel{Namespace: "hab", DeviceID: "relay01"}
	mockClient := &MockMQTTClient{connected: true}

	AdvertiseHA(m, mockClient)

	if len(mockClient.publishCalls) != 1 {
		t.Fatalf("Expected 1 publish call, got %d", len(mockClient.publishCalls))
	}
	call := mockClient.publishCalls[0]
	if call.Topic != "homeassistant/switch/relay01/relay0/config" {
		t.Errorf("Published to %s, expected the discovery topic", call.Topic)
	}
	if !call.Retained {
		t.Error("discovery document should be retained")
	}
}
