package alertbot

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/tphakala/sentinel-go/internal/errors"
	"github.com/tphakala/sentinel-go/internal/mqtt"
)

// MQTTTransport carries the command conversation over MQTT topics, the
// usual bridge for home automation frontends. Commands arrive as JSON on
// <topic>/commands, replies go to <topic>/out/<recipient>, media is
// announced on <topic>/media/<recipient> as a file reference.
type MQTTTransport struct {
	client  mqtt.Client
	topic   string
	inbound chan Message

	// mu guards closed. The subscription callback stays registered with
	// the broker after Close, so the send must be fenced off before the
	// channel is closed.
	mu     sync.Mutex
	closed bool
}

// inboundCommand is the wire format of one command message.
type inboundCommand struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// mediaAnnouncement is the wire format of one delivered media file.
type mediaAnnouncement struct {
	File    string `json:"file"`
	Caption string `json:"caption"`
}

// NewMQTTTransport subscribes to the command topic and returns the
// transport. The client must already be connected.
func NewMQTTTransport(client mqtt.Client, topic string) (*MQTTTransport, error) {
	t := &MQTTTransport{
		client:  client,
		topic:   topic,
		inbound: make(chan Message, 16),
	}

	err := client.Subscribe(topic+"/commands", func(_, payload string) {
		var cmd inboundCommand
		if err := json.Unmarshal([]byte(payload), &cmd); err != nil {
			botLogger.Warn("Discarding malformed command payload", "error", err)
			return
		}
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.closed {
			botLogger.Debug("Transport closed, dropping inbound command")
			return
		}
		select {
		case t.inbound <- Message{Sender: cmd.Sender, Text: cmd.Text}:
		default:
			botLogger.Warn("Inbound command queue full, dropping message")
		}
	})
	if err != nil {
		return nil, errors.Newf("subscribing to command topic: %w", err).
			Component("alertbot").
			Category(errors.CategoryMQTTConn).
			Build()
	}
	return t, nil
}

func (t *MQTTTransport) Messages() <-chan Message { return t.inbound }

func (t *MQTTTransport) SendText(ctx context.Context, recipient, text string) error {
	return t.client.Publish(ctx, t.topic+"/out/"+recipient, text)
}

func (t *MQTTTransport) SendMedia(ctx context.Context, recipient, path, caption string) error {
	payload, err := json.Marshal(mediaAnnouncement{File: path, Caption: caption})
	if err != nil {
		return err
	}
	return t.client.Publish(ctx, t.topic+"/media/"+recipient, string(payload))
}

func (t *MQTTTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.inbound)
	return nil
}
