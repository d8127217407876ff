package discord

import (
	"context"
	"fmt"

	"github.com/riverfjs/chatstream-go"
)

// Channel binds a Client to one channel. It is a chatstream.Sink.
type Channel struct {
	client *Client
	id     string
}

// Channel returns a handle for channelID.
func (c *Client) Channel(channelID string) *Channel {
	return &Channel{client: c, id: channelID}
}

// ID returns the channel ID.
func (ch *Channel) ID() string {
	return ch.id
}

// Deliver posts one text message.
func (ch *Channel) Deliver(ctx context.Context, message string) error {
	_, err := ch.client.SendMessage(ctx, ch.id, message)
	return err
}

// Post sends a text message or a single attachment.
func (ch *Channel) Post(ctx context.Context, content chatstream.Content) error {
	switch v := content.(type) {
	case *chatstream.Text:
		return ch.Deliver(ctx, v.Text)
	case chatstream.Upload:
		name, data, caption := v.Upload()
		_, err := ch.client.SendFiles(ctx, ch.id, caption, []File{{Name: name, Data: data}})
		if err != nil {
			return fmt.Errorf("posting %s from %s: %w", content.Kind(), content.Origin().Source, err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported content kind %s", content.Kind())
	}
}
