package spotify

import (
	"context"
	"fmt"
	"net/http"
)

// Transport commands. Each is a one-shot write through the wrapper; the
// sync engine reconciles authoritative state with a delayed re-poll.

func (c *Client) Play(ctx context.Context) error {
	_, err := c.Request(ctx, http.MethodPut, "/me/player/play", nil)
	return err
}

func (c *Client) Pause(ctx context.Context) error {
	_, err := c.Request(ctx, http.MethodPut, "/me/player/pause", nil)
	return err
}

func (c *Client) SeekTo(ctx context.Context, positionMs int) error {
	endpoint := fmt.Sprintf("/me/player/seek?position_ms=%d", positionMs)
	_, err := c.Request(ctx, http.MethodPut, endpoint, nil)
	return err
}

func (c *Client) Next(ctx context.Context) error {
	_, err := c.Request(ctx, http.MethodPost, "/me/player/next", nil)
	return err
}

func (c *Client) Previous(ctx context.Context) error {
	_, err := c.Request(ctx, http.MethodPost, "/me/player/previous", nil)
	return err
}

func (c *Client) SetVolume(ctx context.Context, percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("volume out of range: %d", percent)
	}
	endpoint := fmt.Sprintf("/me/player/volume?volume_percent=%d", percent)
	_, err := c.Request(ctx, http.MethodPut, endpoint, nil)
	return err
}
