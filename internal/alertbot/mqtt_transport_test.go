package alertbot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/sentinel-go/internal/mqtt"
)

func TestMQTTTransportRoundTrip(t *testing.T) {
	client := mqtt.NewMockClient()
	require.NoError(t, client.Connect(context.Background()))

	transport, err := NewMQTTTransport(client, "sentinel")
	require.NoError(t, err)

	client.Inject("sentinel/commands", `{"sender":"owner@chat","text":"/status"}`)

	select {
	case msg := <-transport.Messages():
		assert.Equal(t, "owner@chat", msg.Sender)
		assert.Equal(t, "/status", msg.Text)
	case <-time.After(time.Second):
		t.Fatal("inbound command not delivered")
	}

	require.NoError(t, transport.SendText(context.Background(), "owner@chat", "Armed"))
	require.NoError(t, transport.SendMedia(context.Background(), "owner@chat", "/tmp/a.jpg", "(Webcam 1)"))

	published := client.Published()
	require.Len(t, published, 2)
	assert.Equal(t, "sentinel/out/owner@chat", published[0].Topic)
	assert.Equal(t, "Armed", published[0].Payload)
	assert.Equal(t, "sentinel/media/owner@chat", published[1].Topic)
	assert.Contains(t, published[1].Payload, `"caption":"(Webcam 1)"`)
}

func TestMQTTTransportDropsCommandsAfterClose(t *testing.T) {
	client := mqtt.NewMockClient()
	require.NoError(t, client.Connect(context.Background()))

	transport, err := NewMQTTTransport(client, "sentinel")
	require.NoError(t, err)

	require.NoError(t, transport.Close())
	require.NoError(t, transport.Close())

	// The broker subscription outlives Close; a late command must be
	// dropped instead of panicking on the closed inbound channel.
	assert.NotPanics(t, func() {
		client.Inject("sentinel/commands", `{"sender":"owner@chat","text":"/status"}`)
	})

	_, open := <-transport.Messages()
	assert.False(t, open)
}

func TestMQTTTransportDropsMalformedPayloads(t *testing.T) {
	client := mqtt.NewMockClient()
	require.NoError(t, client.Connect(context.Background()))

	transport, err := NewMQTTTransport(client, "sentinel")
	require.NoError(t, err)

	client.Inject("sentinel/commands", "not json")

	select {
	case msg := <-transport.Messages():
		t.Fatalf("unexpected message: %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}
