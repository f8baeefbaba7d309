package action

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/corvidbot/gateway/internal/journal"
	"github.com/corvidbot/gateway/internal/wire"
)

// ErrPrivateWithAt is returned locally, before any frame is sent, when a
// private message's segments contain an At.
var ErrPrivateWithAt = errors.New("action: private message cannot contain an at segment")

// ErrNoTarget is returned when neither GroupID nor UserID is set.
var ErrNoTarget = errors.New("action: send_message requires group_id or user_id")

// SendMessageOptions assembles either a pre-built Segments list or a set
// of convenience fields, mutually usable but never combined: if Segments
// is non-empty it is used as-is; otherwise convenience fields are
// assembled in the fixed order text, at, image, reply, face, dice, rps,
// file, video, record.
type SendMessageOptions struct {
	GroupID int64
	UserID  int64

	Segments []wire.Segment

	Text  string
	At    string // target QQ id
	Image string // url or local path
	Reply string // message id being replied to
	Face  string // face id
	Dice  bool
	RPS   bool
	File  string
	Video string
	Record string
}

func (o SendMessageOptions) assembleSegments() []wire.Segment {
	if len(o.Segments) > 0 {
		return o.Segments
	}
	var segs []wire.Segment
	if o.Text != "" {
		segs = append(segs, wire.Text(o.Text))
	}
	if o.At != "" {
		segs = append(segs, wire.At(o.At))
	}
	if o.Image != "" {
		segs = append(segs, wire.Image(o.Image))
	}
	if o.Reply != "" {
		segs = append(segs, wire.Reply(o.Reply))
	}
	if o.Face != "" {
		segs = append(segs, wire.Face(o.Face))
	}
	if o.Dice {
		segs = append(segs, wire.Dice())
	}
	if o.RPS {
		segs = append(segs, wire.RPS())
	}
	if o.File != "" {
		segs = append(segs, wire.File(o.File))
	}
	if o.Video != "" {
		segs = append(segs, wire.Video(o.Video))
	}
	if o.Record != "" {
		segs = append(segs, wire.Record(o.Record))
	}
	return segs
}

func hasAt(segs []wire.Segment) bool {
	for _, s := range segs {
		if s.Type == wire.SegAt {
			return true
		}
	}
	return false
}

type sendMsgParams struct {
	GroupID int64         `json:"group_id,omitempty"`
	UserID  int64         `json:"user_id,omitempty"`
	Message []wire.Segment `json:"message"`
}

type sendMsgResult struct {
	MessageID int64 `json:"message_id"`
}

// SendMessage builds and sends a group or private message, then
// synthesizes and journals the corresponding SelfMessage on success.
func (c *Client) SendMessage(ctx context.Context, opt SendMessageOptions) (*journal.SelfMessage, error) {
	if opt.GroupID == 0 && opt.UserID == 0 {
		return nil, ErrNoTarget
	}
	segs := opt.assembleSegments()

	isPrivate := opt.GroupID == 0
	if isPrivate && hasAt(segs) {
		return nil, ErrPrivateWithAt
	}

	wireSegs := make([]wire.Segment, len(segs))
	for i, s := range segs {
		wireSegs[i] = s.StripForWire()
	}

	action := "send_group_msg"
	params := sendMsgParams{GroupID: opt.GroupID, Message: wireSegs}
	if isPrivate {
		action = "send_private_msg"
		params = sendMsgParams{UserID: opt.UserID, Message: wireSegs}
	}

	resp, err := c.call(ctx, action, params)
	if err != nil {
		return nil, err
	}

	var result sendMsgResult
	if err := resp.DecodeData(&result); err != nil {
		return nil, fmt.Errorf("send_message: decode response data: %w", err)
	}

	msg := journal.SelfMessage{
		SelfID:    c.SelfID(),
		GroupID:   opt.GroupID,
		UserID:    opt.UserID,
		MessageID: result.MessageID,
		Timestamp: time.Now().Unix(),
		Segments:  segs,
	}

	if c.journal != nil {
		if err := c.journal.Append(ctx, journal.FromSelfMessage(msg)); err != nil {
			return &msg, fmt.Errorf("send_message: journal append: %w", err)
		}
	}
	return &msg, nil
}

type deleteMsgParams struct {
	MessageID int64 `json:"message_id"`
}

// DeleteMsg recalls a previously sent message.
func (c *Client) DeleteMsg(ctx context.Context, messageID int64) error {
	_, err := c.call(ctx, "delete_msg", deleteMsgParams{MessageID: messageID})
	return err
}

type getMsgParams struct {
	MessageID int64 `json:"message_id"`
}

// GetMsg retrieves a single message's upstream record by id.
func (c *Client) GetMsg(ctx context.Context, messageID int64) (*wire.ResponseEvent, error) {
	return c.call(ctx, "get_msg", getMsgParams{MessageID: messageID})
}

// GetForwardMsg retrieves a forwarded message bundle by its forward id.
func (c *Client) GetForwardMsg(ctx context.Context, forwardID string) (*wire.ResponseEvent, error) {
	return c.call(ctx, "get_forward_msg", map[string]string{"id": forwardID})
}

type msgEmojiLikeParams struct {
	MessageID int64 `json:"message_id"`
	EmojiID   string `json:"emoji_id"`
	Set       bool  `json:"set"`
}

// SetMsgEmojiLike adds or removes an emoji reaction on a message.
func (c *Client) SetMsgEmojiLike(ctx context.Context, messageID int64, emojiID string, set bool) error {
	_, err := c.call(ctx, "set_msg_emoji_like", msgEmojiLikeParams{MessageID: messageID, EmojiID: emojiID, Set: set})
	return err
}

type msgHistoryParams struct {
	GroupID   int64 `json:"group_id,omitempty"`
	UserID    int64 `json:"user_id,omitempty"`
	MessageID int64 `json:"message_seq,omitempty"`
	Count     int   `json:"count,omitempty"`
}

// GetGroupMsgHistory retrieves up to count prior messages for a group
// conversation, starting before messageSeq (0 for "most recent").
func (c *Client) GetGroupMsgHistory(ctx context.Context, groupID, messageSeq int64, count int) (*wire.ResponseEvent, error) {
	return c.call(ctx, "get_group_msg_history", msgHistoryParams{GroupID: groupID, MessageID: messageSeq, Count: count})
}

// GetFriendMsgHistory retrieves up to count prior messages for a
// private conversation.
func (c *Client) GetFriendMsgHistory(ctx context.Context, userID, messageSeq int64, count int) (*wire.ResponseEvent, error) {
	return c.call(ctx, "get_friend_msg_history", msgHistoryParams{UserID: userID, MessageID: messageSeq, Count: count})
}

// GetRecord fetches a voice record's file reference, optionally
// transcoded to outFormat (e.g. "mp3").
func (c *Client) GetRecord(ctx context.Context, fileID, outFormat string) (*wire.ResponseEvent, error) {
	return c.call(ctx, "get_record", map[string]string{"file_id": fileID, "out_format": outFormat})
}

// GetImage fetches an image's file reference by file id.
func (c *Client) GetImage(ctx context.Context, fileID string) (*wire.ResponseEvent, error) {
	return c.call(ctx, "get_image", map[string]string{"file_id": fileID})
}
