package util

import (
	"errors"
	"fmt"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
)

const (
	QOS_AT_LEAST_ONCE byte = 1
	inboundQueueSize       = 16
	publishTimeout         = 5 * time.Second
)

var ErrNotConnected = errors.New("mqtt link not connected")

// Message is an inbound MQTT message handed from paho's delivery goroutine to
// the main loop.
type Message struct {
	Topic   string
	Payload []byte
}

// MQTTLink is the remote side of the device. paho runs its own goroutines;
// everything they hand over goes through the inbound channel, which the main
// loop drains with Poll. Reconnecting is left to the main loop.
type MQTTLink struct {
	client          MQTT.Client
	model           DeviceModel
	inbound         chan Message
	subscriptions   map[string]MQTT.MessageHandler
	connectHandlers map[string]func(MQTT.Client)
}

func newLink(model DeviceModel, client MQTT.Client) *MQTTLink {
	l := &MQTTLink{
		client:          client,
		model:           model,
		inbound:         make(chan Message, inboundQueueSize),
		subscriptions:   make(map[string]MQTT.MessageHandler),
		connectHandlers: make(map[string]func(MQTT.Client)),
	}
	l.RegisterMQTTSubscription(model.CommandTopic(), l.enqueue)
	return l
}

// NewMQTTLink builds the paho client from Config. It does not connect.
func NewMQTTLink(model DeviceModel) *MQTTLink {
	opts := MQTT.NewClientOptions()
	opts.AddBroker(Config.GetString("broker_uri"))
	opts.SetClientID(model.DeviceID + "_" + GetRandString(6))
	opts.SetUsername(Config.GetString("username"))
	opts.SetPassword(Config.GetString("password"))
	opts.SetCleanSession(Config.GetBool("cleansess"))
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetWill(model.AvailabilityTopic(), PAYLOAD_OFFLINE, QOS_AT_LEAST_ONCE, true)
	opts.OnConnectionLost = connectLostHandler
	opts.SetDefaultPublishHandler(receiver)

	return newLink(model, MQTT.NewClient(opts))
}

func (l *MQTTLink) Model() DeviceModel {
	return l.model
}

func (l *MQTTLink) RegisterMQTTConnectHook(name string, handler func(MQTT.Client)) {
	if handler == nil {
		delete(l.connectHandlers, name)
	} else {
		l.connectHandlers[name] = handler
	}
}

func (l *MQTTLink) RegisterMQTTSubscription(topic string, handler MQTT.MessageHandler) {
	if handler == nil {
		delete(l.subscriptions, topic)
	} else {
		l.subscriptions[topic] = handler
	}
}

// Connect makes one connection attempt. On success it announces the device
// online, re-subscribes every registered topic and runs the connect hooks
// before returning.
func (l *MQTTLink) Connect() error {
	if token := l.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connecting to broker: %w", token.Error())
	}
	Logger.Info().Msg("Connected")
	if err := l.publish(l.model.AvailabilityTopic(), true, PAYLOAD_ONLINE); err != nil {
		Logger.Warn().Err(err).Msg("unable to publish availability")
	}
	if err := l.subscribe(); err != nil {
		l.client.Disconnect(250)
		return err
	}
	for _, handler := range l.connectHandlers {
		handler(l.client)
	}
	return nil
}

func (l *MQTTLink) subscribe() error {
	for topic, handler := range l.subscriptions {
		if token := l.client.Subscribe(topic, QOS_AT_LEAST_ONCE, handler); token.Wait() && token.Error() != nil {
			return fmt.Errorf("subscribing to %v: %w", topic, token.Error())
		}
		Logger.Debug().Msgf("subscribed to %v", topic)
	}
	return nil
}

func (l *MQTTLink) IsConnected() bool {
	return l.client.IsConnectionOpen()
}

// Poll returns every message queued since the last call without blocking.
func (l *MQTTLink) Poll() []Message {
	var messages []Message
	for {
		select {
		case m := <-l.inbound:
			messages = append(messages, m)
		default:
			return messages
		}
	}
}

func (l *MQTTLink) PublishStatus(payload string) error {
	return l.publish(l.model.StatusTopic(), false, payload)
}

func (l *MQTTLink) publish(topic string, retained bool, payload string) error {
	if !l.client.IsConnectionOpen() {
		return ErrNotConnected
	}
	token := l.client.Publish(topic, QOS_AT_LEAST_ONCE, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publishing to %v: timed out after %v", topic, publishTimeout)
	}
	if token.Error() != nil {
		return fmt.Errorf("publishing to %v: %w", topic, token.Error())
	}
	Logger.Trace().Msgf("published %q to %v", payload, topic)
	return nil
}

// Disconnect marks the device offline and closes the connection.
func (l *MQTTLink) Disconnect() {
	if !l.client.IsConnected() {
		return
	}
	if err := l.publish(l.model.AvailabilityTopic(), true, PAYLOAD_OFFLINE); err != nil {
		Logger.Warn().Err(err).Msg("unable to publish offline availability")
	}
	l.client.Disconnect(250)
}

func (l *MQTTLink) enqueue(client MQTT.Client, message MQTT.Message) {
	m := Message{Topic: message.Topic(), Payload: message.Payload()}
	select {
	case l.inbound <- m:
	default:
		Logger.Warn().Msgf("inbound queue full, dropping message on %v", m.Topic)
	}
}

func receiver(client MQTT.Client, message MQTT.Message) {
	Logger.Warn().Msgf("Received message on %v but no handler", message.Topic())
}

var connectLostHandler MQTT.ConnectionLostHandler = func(client MQTT.Client, err error) {
	Logger.Warn().Msgf("Connect lost: %v", err)
}
