// Package wire models the upstream chat protocol's wire format: tagged
// inbound events, segment content, and the outbound action envelope.
// Decoding is table-driven over the discriminator fields the protocol
// defines; unknown discriminators are a typed, non-fatal outcome.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// PostType is the top-level inbound event discriminator.
type PostType string

const (
	PostMessage   PostType = "message"
	PostMetaEvent PostType = "meta_event"
	PostNotice    PostType = "notice"
	PostRequest   PostType = "request"
)

// Variant identifies a specific event shape for dispatcher routing. A
// plugin's declared interest is one or more Variants.
type Variant string

const (
	VariantMessageGroup   Variant = "message.group"
	VariantMessagePrivate Variant = "message.private"

	VariantMetaLifecycle Variant = "meta.lifecycle"
	VariantMetaHeartbeat Variant = "meta.heartbeat"

	VariantNoticeGroupRecall      Variant = "notice.group_recall"
	VariantNoticeGroupDecrease    Variant = "notice.group_decrease"
	VariantNoticeGroupIncrease    Variant = "notice.group_increase"
	VariantNoticeGroupAdmin       Variant = "notice.group_admin"
	VariantNoticeGroupBan         Variant = "notice.group_ban"
	VariantNoticeGroupUpload      Variant = "notice.group_upload"
	VariantNoticeGroupCard        Variant = "notice.group_card"
	VariantNoticeGroupMsgEmojiLike Variant = "notice.group_msg_emoji_like"
	VariantNoticeFriendAdd        Variant = "notice.friend_add"
	VariantNoticeFriendRecall     Variant = "notice.friend_recall"
	VariantNoticeBotOffline       Variant = "notice.bot_offline"
	VariantNoticeEssence          Variant = "notice.essence"
	VariantNoticeNotify           Variant = "notice.notify"

	VariantRequestFriend Variant = "request.friend"
	VariantRequestGroup  Variant = "request.group"

	VariantResponse Variant = "response"
)

// ErrUnknownDiscriminator is returned by DecodeEvent when a frame's
// discriminator values name a variant not in the protocol's known set.
// The upstream protocol is versioned and additive, so this is expected
// during normal operation and must not be treated as a decode error.
var ErrUnknownDiscriminator = errors.New("wire: unknown event discriminator")

// Event is satisfied by every decoded inbound event shape, including
// Response (which rides the same frame channel as everything else).
type Event interface {
	Variant() Variant
	EventSelfID() int64
}

// Sender describes the originator of a message.
type Sender struct {
	UserID   int64  `json:"user_id"`
	Nickname string `json:"nickname,omitempty"`
	Card     string `json:"card,omitempty"`
	Role     string `json:"role,omitempty"`
}

// MessageEvent is an inbound group or private message.
type MessageEvent struct {
	SelfID      int64     `json:"self_id"`
	MessageType string    `json:"message_type"` // group | private
	Time        int64     `json:"time"`
	MessageID   int64     `json:"message_id"`
	GroupID     int64     `json:"group_id,omitempty"`
	UserID      int64     `json:"user_id,omitempty"`
	Sender      Sender    `json:"sender"`
	Message     []Segment `json:"message"`
}

func (e *MessageEvent) EventSelfID() int64 { return e.SelfID }

func (e *MessageEvent) Variant() Variant {
	if e.MessageType == "private" {
		return VariantMessagePrivate
	}
	return VariantMessageGroup
}

// MetaEvent covers lifecycle and heartbeat frames.
type MetaEvent struct {
	SelfID        int64  `json:"self_id"`
	Time          int64  `json:"time"`
	MetaEventType string `json:"meta_event_type"` // lifecycle | heartbeat
	SubType       string `json:"sub_type,omitempty"`
	Interval      int64  `json:"interval,omitempty"`
}

func (e *MetaEvent) EventSelfID() int64 { return e.SelfID }

func (e *MetaEvent) Variant() Variant {
	if e.MetaEventType == "heartbeat" {
		return VariantMetaHeartbeat
	}
	return VariantMetaLifecycle
}

// NoticeEvent covers the notice family. notice_type and (for notify)
// sub_type carry the sub-discrimination; variant-specific fields that
// the core doesn't interpret are preserved in Raw for plugins to parse.
type NoticeEvent struct {
	SelfID     int64           `json:"self_id"`
	Time       int64           `json:"time"`
	NoticeType string          `json:"notice_type"`
	SubType    string          `json:"sub_type,omitempty"`
	GroupID    int64           `json:"group_id,omitempty"`
	UserID     int64           `json:"user_id,omitempty"`
	MessageID  int64           `json:"message_id,omitempty"`
	Raw        json.RawMessage `json:"-"`
}

func (e *NoticeEvent) EventSelfID() int64 { return e.SelfID }

func (e *NoticeEvent) Variant() Variant {
	switch e.NoticeType {
	case "group_recall":
		return VariantNoticeGroupRecall
	case "group_decrease":
		return VariantNoticeGroupDecrease
	case "group_increase":
		return VariantNoticeGroupIncrease
	case "group_admin":
		return VariantNoticeGroupAdmin
	case "group_ban":
		return VariantNoticeGroupBan
	case "group_upload":
		return VariantNoticeGroupUpload
	case "group_card":
		return VariantNoticeGroupCard
	case "group_msg_emoji_like":
		return VariantNoticeGroupMsgEmojiLike
	case "friend_add":
		return VariantNoticeFriendAdd
	case "friend_recall":
		return VariantNoticeFriendRecall
	case "bot_offline":
		return VariantNoticeBotOffline
	case "essence":
		return VariantNoticeEssence
	case "notify":
		return VariantNoticeNotify
	default:
		return Variant("notice." + e.NoticeType)
	}
}

// RequestEvent covers friend and group join/invite requests.
type RequestEvent struct {
	SelfID      int64  `json:"self_id"`
	Time        int64  `json:"time"`
	RequestType string `json:"request_type"` // friend | group
	SubType     string `json:"sub_type,omitempty"`
	UserID      int64  `json:"user_id,omitempty"`
	GroupID     int64  `json:"group_id,omitempty"`
	Flag        string `json:"flag"`
	Comment     string `json:"comment,omitempty"`
}

func (e *RequestEvent) EventSelfID() int64 { return e.SelfID }

func (e *RequestEvent) Variant() Variant {
	if e.RequestType == "group" {
		return VariantRequestGroup
	}
	return VariantRequestFriend
}

// StreamData is the inner payload of a stream-action response frame.
type StreamData struct {
	Type     string          `json:"type"`      // stream | response | error
	DataType string          `json:"data_type"` // data_chunk, file_chunk, data_complete, file_complete, file_info, error
	Data     json.RawMessage `json:"data,omitempty"`
}

// ResponseEvent is the reply to a correlated outbound action. It may be
// a plain response or one frame of a stream, distinguished by Stream.
type ResponseEvent struct {
	Status  string          `json:"status"`
	RetCode int             `json:"retcode"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Echo    string          `json:"echo"`
	Wording string          `json:"wording,omitempty"`
	Stream  string          `json:"stream,omitempty"` // "stream-action" | "normal-action" | ""
	Inner   *StreamData     `json:"-"`
}

func (e *ResponseEvent) EventSelfID() int64 { return 0 }
func (e *ResponseEvent) Variant() Variant   { return VariantResponse }

// DecodeData unmarshals the response's data payload into dst.
func (e *ResponseEvent) DecodeData(dst any) error {
	if len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, dst)
}

// StreamFrameKind classifies a stream-action response frame.
type StreamFrameKind int

const (
	StreamChunk StreamFrameKind = iota
	StreamSentinel
	StreamError
)

// Classify applies §4.2/§6's stream-frame classification rules: sentinel
// when data_type is data_complete/file_complete, error when data_type is
// "error" or the envelope status is non-ok, chunk otherwise.
func (e *ResponseEvent) Classify() StreamFrameKind {
	if e.Status != "ok" {
		return StreamError
	}
	if e.Inner == nil {
		return StreamChunk
	}
	switch e.Inner.DataType {
	case "data_complete", "file_complete":
		return StreamSentinel
	case "error":
		return StreamError
	default:
		return StreamChunk
	}
}

// unknownDiscriminatorError wraps ErrUnknownDiscriminator with the
// offending post_type/sub-discriminator for logging.
func unknownDiscriminatorError(postType, subType string) error {
	return fmt.Errorf("%w: post_type=%q discriminator=%q", ErrUnknownDiscriminator, postType, subType)
}
