package action

import (
	"context"
	"fmt"
)

type loginInfo struct {
	UserID   int64  `json:"user_id"`
	Nickname string `json:"nickname"`
}

// Bootstrap issues get_login_info and, on success, updates SelfID from
// the response. Call once at session start; until it resolves SelfID
// returns the sentinel value.
func (c *Client) Bootstrap(ctx context.Context) (int64, error) {
	resp, err := c.call(ctx, "get_login_info", struct{}{})
	if err != nil {
		return 0, fmt.Errorf("bootstrap: %w", err)
	}
	var info loginInfo
	if err := resp.DecodeData(&info); err != nil {
		return 0, fmt.Errorf("bootstrap: decode response data: %w", err)
	}
	c.SetSelfID(info.UserID)
	return info.UserID, nil
}
