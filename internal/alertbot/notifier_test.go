package alertbot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/sentinel-go/internal/capture"
	"github.com/tphakala/sentinel-go/internal/conf"
)

func TestNotifyRequiresBoundOwner(t *testing.T) {
	settings := &conf.Settings{}
	transport := newFakeTransport()

	notifier, err := NewNotifier(settings, transport, nil)
	require.NoError(t, err)

	err = notifier.Notify(context.Background(), "Door has been opened")
	require.Error(t, err, "unpaired notify must fail loudly")
	assert.Empty(t, transport.texts)
}

func TestNotifyDeliversToOwner(t *testing.T) {
	settings := &conf.Settings{}
	settings.Security.OwnerAddress = ownerAddress
	transport := newFakeTransport()

	notifier, err := NewNotifier(settings, transport, nil)
	require.NoError(t, err)

	require.NoError(t, notifier.Notify(context.Background(), "A break-in has been detected!"))
	require.Len(t, transport.texts, 1)
	assert.Equal(t, ownerAddress, transport.texts[0].Recipient)
	assert.Equal(t, "A break-in has been detected!", transport.texts[0].Text)
}

func TestSendMediaDeliversAllFiles(t *testing.T) {
	settings := &conf.Settings{}
	settings.Security.OwnerAddress = ownerAddress
	transport := newFakeTransport()

	notifier, err := NewNotifier(settings, transport, nil)
	require.NoError(t, err)

	media := []capture.Media{
		{Path: "/tmp/a-raspicam.mp4", Caption: "(Raspberry Pi Camera)"},
		{Path: "/tmp/a-webcam1.avi", Caption: "(Webcam 1)"},
	}
	require.NoError(t, notifier.SendMedia(context.Background(), media))
	require.Len(t, transport.media, 2)
	assert.Equal(t, "(Webcam 1)", transport.media[1].Caption)
}

func TestNewNotifierRejectsBadMirrorURL(t *testing.T) {
	settings := &conf.Settings{}
	settings.Notification.Enabled = true
	settings.Notification.URLs = []string{"not-a-shoutrrr-url"}

	_, err := NewNotifier(settings, newFakeTransport(), nil)
	require.Error(t, err)
}
