package wire

import (
	"encoding/json"
	"fmt"
)

// envelope captures every field needed to discriminate a frame before
// committing to a concrete type. Re-decoding the raw bytes into the
// concrete type after discrimination keeps each variant's struct tags
// authoritative instead of duplicating fields here.
type envelope struct {
	PostType      string `json:"post_type"`
	MessageType   string `json:"message_type"`
	MetaEventType string `json:"meta_event_type"`
	NoticeType    string `json:"notice_type"`
	RequestType   string `json:"request_type"`
	Echo          string `json:"echo"`
	Status        string `json:"status"`
}

// DecodeEvent discriminates and decodes a single JSON frame into its
// concrete Event type. A frame lacking post_type but bearing an echo (or
// a status, for echo-less notifications the upstream never emits) is
// classified as a Response. Unknown discriminator combinations return
// ErrUnknownDiscriminator wrapped with the offending values — callers
// must treat this as "log and skip", not a fatal decode error.
func DecodeEvent(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("wire: malformed frame: %w", err)
	}

	if env.PostType == "" {
		if env.Echo == "" && env.Status == "" {
			return nil, unknownDiscriminatorError("", "")
		}
		return decodeResponse(raw)
	}

	switch PostType(env.PostType) {
	case PostMessage:
		switch env.MessageType {
		case "group", "private":
			var e MessageEvent
			if err := json.Unmarshal(raw, &e); err != nil {
				return nil, fmt.Errorf("wire: decode message event: %w", err)
			}
			return &e, nil
		default:
			return nil, unknownDiscriminatorError(env.PostType, env.MessageType)
		}

	case PostMetaEvent:
		switch env.MetaEventType {
		case "lifecycle", "heartbeat":
			var e MetaEvent
			if err := json.Unmarshal(raw, &e); err != nil {
				return nil, fmt.Errorf("wire: decode meta event: %w", err)
			}
			return &e, nil
		default:
			return nil, unknownDiscriminatorError(env.PostType, env.MetaEventType)
		}

	case PostNotice:
		switch env.NoticeType {
		case "group_recall", "group_decrease", "group_increase", "group_admin",
			"group_ban", "group_upload", "group_card", "group_msg_emoji_like",
			"friend_add", "friend_recall", "bot_offline", "essence", "notify":
		default:
			return nil, unknownDiscriminatorError(env.PostType, env.NoticeType)
		}
		var e NoticeEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("wire: decode notice event: %w", err)
		}
		e.Raw = raw
		return &e, nil

	case PostRequest:
		switch env.RequestType {
		case "friend", "group":
			var e RequestEvent
			if err := json.Unmarshal(raw, &e); err != nil {
				return nil, fmt.Errorf("wire: decode request event: %w", err)
			}
			return &e, nil
		default:
			return nil, unknownDiscriminatorError(env.PostType, env.RequestType)
		}

	default:
		return nil, unknownDiscriminatorError(env.PostType, "")
	}
}

func decodeResponse(raw []byte) (Event, error) {
	var e ResponseEvent
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("wire: decode response: %w", err)
	}

	if e.Stream == "stream-action" {
		var withData struct {
			Data StreamData `json:"data"`
		}
		if err := json.Unmarshal(raw, &withData); err == nil {
			e.Inner = &withData.Data
		}
	}

	return &e, nil
}
