package util

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/viper"
)

// Mock MQTT client for testing
type MockMQTTClient struct {
	publishCalls   []PublishCall
	subscribeCalls []SubscribeCall
	connected      bool
	connectErr     error
	publishErr     error
	subscribeErr   error
	mu             sync.RWMutex
}

type PublishCall struct {
	Payload  interface{}
	Topic    string
	QoS      byte
	Retained bool
}

type SubscribeCall struct {
	Handler MQTT.MessageHandler
	Topic   string
	QoS     byte
}

func (m *MockMQTTClient) IsConnected() bool      { return m.connected }
func (m *MockMQTTClient) IsConnectionOpen() bool { return m.connected }
func (m *MockMQTTClient) Connect() MQTT.Token {
	if m.connectErr != nil {
		return &MockToken{err: m.connectErr}
	}
	m.connected = true
	return &MockToken{}
}
func (m *MockMQTTClient) Disconnect(quiesce uint) { m.connected = false }

func (m *MockMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) MQTT.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishCalls = append(m.publishCalls, PublishCall{
		Topic:    topic,
		QoS:      qos,
		Retained: retained,
		Payload:  payload,
	})
	return &MockToken{err: m.publishErr}
}

func (m *MockMQTTClient) Subscribe(topic string, qos byte, callback MQTT.MessageHandler) MQTT.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribeCalls = append(m.subscribeCalls, SubscribeCall{
		Topic:   topic,
		QoS:     qos,
		Handler: callback,
	})
	return &MockToken{err: m.subscribeErr}
}

func (m *MockMQTTClient) SubscribeMultiple(filters map[string]byte, callback MQTT.MessageHandler) MQTT.Token {
	return &MockToken{}
}
func (m *MockMQTTClient) Unsubscribe(topics ...string) MQTT.Token             { return &MockToken{} }
func (m *MockMQTTClient) AddRoute(topic string, callback MQTT.MessageHandler) {}
func (m *MockMQTTClient) OptionsReader() MQTT.ClientOptionsReader             { return MQTT.ClientOptionsReader{} }

// Mock MQTT token
type MockToken struct {
	err error
}

func (m *MockToken) Wait() bool                     { return true }
func (m *MockToken) WaitTimeout(time.Duration) bool { return true }
func (m *MockToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (m *MockToken) Error() error { return m.err }

// Mock MQTT message
type MockMessage struct {
	topic   string
	payload []byte
}

func (m *MockMessage) Duplicate() bool   { return false }
func (m *MockMessage) Qos() byte         { return 1 }
func (m *MockMessage) Retained() bool    { return false }
func (m *MockMessage) Topic() string     { return m.topic }
func (m *MockMessage) MessageID() uint16 { return 0 }
func (m *MockMessage) Payload() []byte   { return m.payload }
func (m *MockMessage) Ack()              {}

var testModel = DeviceModel{Namespace: "hab", DeviceID: "relay01"}

func TestRegisterMQTTConnectHook(t *testing.T) {
	link := newLink(testModel, &MockMQTTClient{})

	called := false
	link.RegisterMQTTConnectHook("test_handler", func(client MQTT.Client) {
		called = true
	})

	if len(link.connectHandlers) != 1 {
		t.Errorf("Expected 1 connect handler, got %d", len(link.connectHandlers))
	}

	if err := link.Connect(); err != nil {
		t.Fatalf("Connect() returned error: %v", err)
	}
	if !called {
		t.Error("Connect handler should have been called")
	}

	link.RegisterMQTTConnectHook("test_handler", nil)
	if len(link.connectHandlers) != 0 {
		t.Errorf("Expected 0 connect handlers after removal, got %d", len(link.connectHandlers))
	}
}

func TestRegisterMQTTSubscription(t *testing.T) {
	link := newLink(testModel, &MockMQTTClient{})

	// the command topic is always subscribed
	if len(link.subscriptions) != 1 {
		t.Errorf("Expected 1 default subscription, got %d", len(link.subscriptions))
	}
	if link.subscriptions[testModel.CommandTopic()] == nil {
		t.Error("command topic should be subscribed by default")
	}

	link.RegisterMQTTSubscription("test/topic", func(client MQTT.Client, message MQTT.Message) {})
	if len(link.subscriptions) != 2 {
		t.Errorf("Expected 2 subscriptions, got %d", len(link.subscriptions))
	}

	link.RegisterMQTTSubscription("test/topic", nil)
	if len(link.subscriptions) != 1 {
		t.Errorf("Expected 1 subscription after removal, got %d", len(link.subscriptions))
	}
}

func TestConnectAnnouncesAndSubscribes(t *testing.T) {
	mockClient := &MockMQTTClient{}
	link := newLink(testModel, mockClient)

	if err := link.Connect(); err != nil {
		t.Fatalf("Connect() returned error: %v", err)
	}

	if len(mockClient.publishCalls) < 1 {
		t.Fatal("Connect should publish the online message")
	}
	call := mockClient.publishCalls[0]
	if call.Topic != "hab/relay01/status" || call.Payload != PAYLOAD_ONLINE || !call.Retained {
		t.Errorf("Expected retained online message to hab/relay01/status, got %v to %s (retained %v)", call.Payload, call.Topic, call.Retained)
	}

	if len(mockClient.subscribeCalls) != 1 {
		t.Fatalf("Expected 1 subscribe call, got %d", len(mockClient.subscribeCalls))
	}
	sub := mockClient.subscribeCalls[0]
	if sub.Topic != "hab/relay01/relay/0/command" {
		t.Errorf("Subscribed to %s, expected hab/relay01/relay/0/command", sub.Topic)
	}
	if sub.QoS != QOS_AT_LEAST_ONCE {
		t.Errorf("Subscribe QoS = %d, expected %d", sub.QoS, QOS_AT_LEAST_ONCE)
	}

	if !link.IsConnected() {
		t.Error("link should report connected after Connect")
	}
}

func TestConnectResubscribesEveryTime(t *testing.T) {
	mockClient := &MockMQTTClient{}
	link := newLink(testModel, mockClient)

	for i := 0; i < 3; i++ {
		if err := link.Connect(); err != nil {
			t.Fatalf("Connect() #%d returned error: %v", i, err)
		}
		mockClient.Disconnect(0)
	}

	if len(mockClient.subscribeCalls) != 3 {
		t.Errorf("Expected 3 subscribe calls across reconnects, got %d", len(mockClient.subscribeCalls))
	}
}

func TestConnectFailure(t *testing.T) {
	mockClient := &MockMQTTClient{connectErr: errors.New("connection refused")}
	link := newLink(testModel, mockClient)

	err := link.Connect()
	if err == nil {
		t.Fatal("Connect() should fail when the broker refuses")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("error %q should wrap the broker error", err)
	}
	if len(mockClient.subscribeCalls) != 0 {
		t.Errorf("Expected no subscribe calls after failed connect, got %d", len(mockClient.subscribeCalls))
	}
}

func TestConnectSubscribeFailureDisconnects(t *testing.T) {
	mockClient := &MockMQTTClient{subscribeErr: errors.New("not authorized")}
	link := newLink(testModel, mockClient)

	if err := link.Connect(); err == nil {
		t.Fatal("Connect() should fail when subscribing fails")
	}
	if link.IsConnected() {
		t.Error("link should disconnect when it cannot subscribe")
	}
}

func TestPollDrainsQueue(t *testing.T) {
	link := newLink(testModel, &MockMQTTClient{})

	link.enqueue(nil, &MockMessage{topic: testModel.CommandTopic(), payload: []byte("on")})
	link.enqueue(nil, &MockMessage{topic: testModel.CommandTopic(), payload: []byte("off")})

	messages := link.Poll()
	if len(messages) != 2 {
		t.Fatalf("Poll() returned %d messages, expected 2", len(messages))
	}
	if string(messages[0].Payload) != "on" || string(messages[1].Payload) != "off" {
		t.Errorf("Poll() returned payloads %q, %q; expected on, off", messages[0].Payload, messages[1].Payload)
	}

	if again := link.Poll(); len(again) != 0 {
		t.Errorf("second Poll() returned %d messages, expected 0", len(again))
	}
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	link := newLink(testModel, &MockMQTTClient{})

	for i := 0; i < inboundQueueSize+5; i++ {
		link.enqueue(nil, &MockMessage{topic: testModel.CommandTopic(), payload: []byte("on")})
	}

	if got := len(link.Poll()); got != inboundQueueSize {
		t.Errorf("Poll() returned %d messages, expected queue size %d", got, inboundQueueSize)
	}
}

func TestPublishStatus(t *testing.T) {
	mockClient := &MockMQTTClient{connected: true}
	link := newLink(testModel, mockClient)

	if err := link.PublishStatus(PAYLOAD_ON); err != nil {
		t.Fatalf("PublishStatus() returned error: %v", err)
	}

	if len(mockClient.publishCalls) != 1 {
		t.Fatalf("Expected 1 publish call, got %d", len(mockClient.publishCalls))
	}
	call := mockClient.publishCalls[0]
	if call.Topic != "hab/relay01/relay/0" {
		t.Errorf("Published to %s, expected hab/relay01/relay/0", call.Topic)
	}
	if call.QoS != QOS_AT_LEAST_ONCE {
		t.Errorf("Publish QoS = %d, expected %d", call.QoS, QOS_AT_LEAST_ONCE)
	}
	if call.Payload != "on" {
		t.Errorf("Payload = %v, expected on", call.Payload)
	}
}

func TestPublishStatusErrors(t *testing.T) {
	link := newLink(testModel, &MockMQTTClient{})
	if err := link.PublishStatus(PAYLOAD_OFF); !errors.Is(err, ErrNotConnected) {
		t.Errorf("PublishStatus() while disconnected = %v, expected ErrNotConnected", err)
	}

	tokenErr := errors.New("broker gone")
	link = newLink(testModel, &MockMQTTClient{connected: true, publishErr: tokenErr})
	if err := link.PublishStatus(PAYLOAD_OFF); !errors.Is(err, tokenErr) {
		t.Errorf("PublishStatus() = %v, expected wrapped token error", err)
	}
}

func TestDisconnectAnnouncesOffline(t *testing.T) {
	mockClient := &MockMQTTClient{connected: true}
	link := newLink(testModel, mockClient)

	link.Disconnect()

	if mockClient.connected {
		t.Error("Disconnect should close the client")
	}
	if len(mockClient.publishCalls) != 1 || mockClient.publishCalls[0].Payload != PAYLOAD_OFFLINE {
		t.Errorf("Disconnect should publish offline, got %+v", mockClient.publishCalls)
	}
}

func TestNewMQTTLinkOptions(t *testing.T) {
	Config = viper.New()
	Config.Set("broker_uri", "tcp://test.mqtt.broker:1883")
	Config.Set("username", "test_user")
	Config.Set("password", "test_pass")
	Config.Set("cleansess", true)

	link := NewMQTTLink(testModel)
	opts := link.client.OptionsReader()

	if !strings.HasPrefix(opts.ClientID(), "relay01_") {
		t.Errorf("ClientID = %s, expected relay01_ prefix", opts.ClientID())
	}
	if opts.Username() != "test_user" {
		t.Errorf("Username = %s, expected test_user", opts.Username())
	}
	if opts.AutoReconnect() {
		t.Error("paho auto reconnect must be off, the main loop reconnects")
	}
	if opts.WillTopic() != "hab/relay01/status" {
		t.Errorf("WillTopic = %s, expected hab/relay01/status", opts.WillTopic())
	}
	if link.IsConnected() {
		t.Error("NewMQTTLink should not connect")
	}
}

func TestGetRandString(t *testing.T) {
	lengths := []int{1, 5, 10, 20}

	for _, length := range lengths {
		result := GetRandString(length)

		if len(result) != length {
			t.Errorf("GetRandString(%d) returned string of length %d", length, len(result))
		}

		for _, char := range result {
			if !((char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z')) {
				t.Errorf("GetRandString(%d) contains invalid character: %c", length, char)
			}
		}
	}
}

func TestReceiverFunction(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("receiver function should not panic: %v", r)
		}
	}()

	receiver(&MockMQTTClient{}, &MockMessage{topic: "unknown/topic", payload: []byte("test payload")})
}
