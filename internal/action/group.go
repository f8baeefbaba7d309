package action

import (
	"context"

	"github.com/corvidbot/gateway/internal/wire"
)

type pokeParams struct {
	GroupID int64 `json:"group_id,omitempty"`
	UserID  int64 `json:"user_id"`
}

// SendPoke sends a poke to a user, optionally scoped to a group.
func (c *Client) SendPoke(ctx context.Context, groupID, userID int64) error {
	_, err := c.call(ctx, "send_poke", pokeParams{GroupID: groupID, UserID: userID})
	return err
}

type groupTargetParams struct {
	GroupID int64 `json:"group_id"`
	UserID  int64 `json:"user_id,omitempty"`
	Enable  bool  `json:"enable,omitempty"`
	Duration int64 `json:"duration,omitempty"`
	Reject  bool  `json:"reject_add_request,omitempty"`
}

// SetGroupBan mutes userID in groupID for duration seconds (0 to lift).
func (c *Client) SetGroupBan(ctx context.Context, groupID, userID, duration int64) error {
	_, err := c.call(ctx, "set_group_ban", groupTargetParams{GroupID: groupID, UserID: userID, Duration: duration})
	return err
}

// SetGroupWholeBan mutes or unmutes the entire group.
func (c *Client) SetGroupWholeBan(ctx context.Context, groupID int64, enable bool) error {
	_, err := c.call(ctx, "set_group_whole_ban", groupTargetParams{GroupID: groupID, Enable: enable})
	return err
}

// SetGroupAdmin grants or revokes admin for userID in groupID.
func (c *Client) SetGroupAdmin(ctx context.Context, groupID, userID int64, enable bool) error {
	_, err := c.call(ctx, "set_group_admin", groupTargetParams{GroupID: groupID, UserID: userID, Enable: enable})
	return err
}

// SetGroupCard sets userID's group-local display card (empty to clear).
func (c *Client) SetGroupCard(ctx context.Context, groupID, userID int64, card string) error {
	_, err := c.call(ctx, "set_group_card", struct {
		GroupID int64  `json:"group_id"`
		UserID  int64  `json:"user_id"`
		Card    string `json:"card"`
	}{groupID, userID, card})
	return err
}

// SetGroupKick removes userID from groupID.
func (c *Client) SetGroupKick(ctx context.Context, groupID, userID int64, rejectAddRequest bool) error {
	_, err := c.call(ctx, "set_group_kick", groupTargetParams{GroupID: groupID, UserID: userID, Reject: rejectAddRequest})
	return err
}

// SetGroupLeave leaves groupID.
func (c *Client) SetGroupLeave(ctx context.Context, groupID int64) error {
	_, err := c.call(ctx, "set_group_leave", struct {
		GroupID int64 `json:"group_id"`
	}{groupID})
	return err
}

type groupRequestParams struct {
	Flag    string `json:"flag"`
	SubType string `json:"sub_type"`
	Approve bool   `json:"approve"`
	Reason  string `json:"reason,omitempty"`
}

// SetGroupAddRequest approves or rejects a pending join/invite request.
func (c *Client) SetGroupAddRequest(ctx context.Context, flag, subType string, approve bool, reason string) error {
	_, err := c.call(ctx, "set_group_add_request", groupRequestParams{Flag: flag, SubType: subType, Approve: approve, Reason: reason})
	return err
}

// SetFriendAddRequest approves or rejects a pending friend request.
func (c *Client) SetFriendAddRequest(ctx context.Context, flag string, approve bool, remark string) error {
	_, err := c.call(ctx, "set_friend_add_request", struct {
		Flag    string `json:"flag"`
		Approve bool   `json:"approve"`
		Remark  string `json:"remark,omitempty"`
	}{flag, approve, remark})
	return err
}

// GetGroupList retrieves every group the bot belongs to.
func (c *Client) GetGroupList(ctx context.Context) (*wire.ResponseEvent, error) {
	return c.call(ctx, "get_group_list", struct{}{})
}

// GetGroupMemberList retrieves every member of groupID.
func (c *Client) GetGroupMemberList(ctx context.Context, groupID int64) (*wire.ResponseEvent, error) {
	return c.call(ctx, "get_group_member_list", struct {
		GroupID int64 `json:"group_id"`
	}{groupID})
}

// GetGroupMemberInfo retrieves a single member's info, bypassing cache
// if noCache is set.
func (c *Client) GetGroupMemberInfo(ctx context.Context, groupID, userID int64, noCache bool) (*wire.ResponseEvent, error) {
	return c.call(ctx, "get_group_member_info", struct {
		GroupID int64 `json:"group_id"`
		UserID  int64 `json:"user_id"`
		NoCache bool  `json:"no_cache,omitempty"`
	}{groupID, userID, noCache})
}
