package action

import (
	"context"

	"github.com/corvidbot/gateway/internal/wire"
)

// GetStrangerInfo retrieves profile info for a user the bot is not
// necessarily friends with.
func (c *Client) GetStrangerInfo(ctx context.Context, userID int64, noCache bool) (*wire.ResponseEvent, error) {
	return c.call(ctx, "get_stranger_info", struct {
		UserID  int64 `json:"user_id"`
		NoCache bool  `json:"no_cache,omitempty"`
	}{userID, noCache})
}

// GetFriendList retrieves the bot's friend list.
func (c *Client) GetFriendList(ctx context.Context) (*wire.ResponseEvent, error) {
	return c.call(ctx, "get_friend_list", struct{}{})
}

type setProfileParams struct {
	Nickname string `json:"nickname,omitempty"`
	Company  string `json:"company,omitempty"`
	Email    string `json:"email,omitempty"`
	College  string `json:"college,omitempty"`
	PersonalNote string `json:"personal_note,omitempty"`
}

// SetQQProfile updates the bot account's profile fields; empty fields
// are left unchanged.
func (c *Client) SetQQProfile(ctx context.Context, opt setProfileParams) error {
	_, err := c.call(ctx, "set_qq_profile", opt)
	return err
}

// SetOnlineStatus sets the bot account's presence status.
func (c *Client) SetOnlineStatus(ctx context.Context, status, extStatus, batteryStatus int) error {
	_, err := c.call(ctx, "set_online_status", struct {
		Status        int `json:"status"`
		ExtStatus     int `json:"ext_status"`
		BatteryStatus int `json:"battery_status"`
	}{status, extStatus, batteryStatus})
	return err
}
