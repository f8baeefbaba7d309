package journal

import (
	"encoding/json"
	"strconv"

	"github.com/corvidbot/gateway/internal/wire"
)

// Record is the canonical journaled representation of any message,
// notice, meta, or request event, or a locally synthesized self-message.
// Segments carries media content for message-shaped records; Extra
// carries the variant-specific fields for notice/meta/request.
type Record struct {
	Kind           Kind            `json:"kind"`
	SelfID         int64           `json:"self_id"`
	ConversationID string          `json:"conversation_id,omitempty"`
	MessageID      string          `json:"message_id"`
	Timestamp      int64           `json:"time"`
	Sender         *wire.Sender    `json:"sender,omitempty"`
	Segments       []wire.Segment  `json:"message,omitempty"`
	Extra          json.RawMessage `json:"extra,omitempty"`
}

// FromMessageEvent builds the journal record for an inbound group or
// private message.
func FromMessageEvent(e *wire.MessageEvent) Record {
	kind := KindGroup
	conv := fmtID(e.GroupID)
	if e.MessageType == "private" {
		kind = KindPrivate
		conv = fmtID(e.UserID)
	}
	sender := e.Sender
	return Record{
		Kind:           kind,
		SelfID:         e.SelfID,
		ConversationID: conv,
		MessageID:      fmtID(e.MessageID),
		Timestamp:      e.Time,
		Sender:         &sender,
		// Copied, not aliased: the background consumer mutates
		// Segments[i].Data.LocalPath, and the same event is handed to
		// plugin dispatch concurrently.
		Segments: append([]wire.Segment(nil), e.Message...),
	}
}

// SelfMessage is the locally synthesized counterpart to an inbound
// Message, produced when the bot sends a message.
type SelfMessage struct {
	SelfID    int64
	GroupID   int64 // zero for private
	UserID    int64 // zero for group
	MessageID int64
	Timestamp int64
	Segments  []wire.Segment
}

// FromSelfMessage builds the journal record for a bot-sent message,
// journaled under the same conversation key as inbound messages to it.
func FromSelfMessage(m SelfMessage) Record {
	kind := KindGroup
	conv := fmtID(m.GroupID)
	if m.GroupID == 0 {
		kind = KindPrivate
		conv = fmtID(m.UserID)
	}
	return Record{
		Kind:           kind,
		SelfID:         m.SelfID,
		ConversationID: conv,
		MessageID:      fmtID(m.MessageID),
		Timestamp:      m.Timestamp,
		Segments:       m.Segments,
	}
}

// FromNoticeEvent builds the unkeyed journal record for a notice frame.
func FromNoticeEvent(e *wire.NoticeEvent) Record {
	return Record{Kind: KindNotice, SelfID: e.SelfID, Timestamp: e.Time, Extra: e.Raw}
}

// FromMetaEvent builds the unkeyed journal record for a meta frame.
func FromMetaEvent(e *wire.MetaEvent) Record {
	raw, _ := json.Marshal(e)
	return Record{Kind: KindMeta, SelfID: e.SelfID, Timestamp: e.Time, Extra: raw}
}

// FromRequestEvent builds the unkeyed journal record for a request frame.
func FromRequestEvent(e *wire.RequestEvent) Record {
	raw, _ := json.Marshal(e)
	return Record{Kind: KindRequest, SelfID: e.SelfID, Timestamp: e.Time, Extra: raw}
}

func fmtID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
