package action

import (
	"context"

	"github.com/corvidbot/gateway/internal/wire"
)

// GetStatus retrieves the upstream implementation's online/good status.
func (c *Client) GetStatus(ctx context.Context) (*wire.ResponseEvent, error) {
	return c.call(ctx, "get_status", struct{}{})
}

// GetVersionInfo retrieves the upstream implementation's name and version.
func (c *Client) GetVersionInfo(ctx context.Context) (*wire.ResponseEvent, error) {
	return c.call(ctx, "get_version_info", struct{}{})
}

// CleanCache asks the upstream implementation to clear its local media cache.
func (c *Client) CleanCache(ctx context.Context) error {
	_, err := c.call(ctx, "clean_cache", struct{}{})
	return err
}

// CanSendImage reports whether the upstream can currently send images.
func (c *Client) CanSendImage(ctx context.Context) (*wire.ResponseEvent, error) {
	return c.call(ctx, "can_send_image", struct{}{})
}

// CanSendRecord reports whether the upstream can currently send voice records.
func (c *Client) CanSendRecord(ctx context.Context) (*wire.ResponseEvent, error) {
	return c.call(ctx, "can_send_record", struct{}{})
}
