package journal

import "fmt"

// Kind enumerates the root segment of a journal key: the two keyed
// conversation kinds plus the three unkeyed event categories.
type Kind string

const (
	KindGroup   Kind = "group"
	KindPrivate Kind = "private"
	KindNotice  Kind = "notice"
	KindMeta    Kind = "meta"
	KindRequest Kind = "request"
)

// BuildKeys returns the hash and sorted-set keys for a record, per the
// bit-exact Redis layout: keyed conversations get a per-conversation
// pair, unkeyed categories (notice/meta/request) share one pair per
// self_id+kind.
func BuildKeys(selfID int64, kind Kind, conversationID string) (hashKey, zsetKey string) {
	if conversationID != "" {
		hashKey = fmt.Sprintf("bot:%d:%s:%s:msg_data", selfID, kind, conversationID)
		zsetKey = fmt.Sprintf("bot:%d:%s:%s:time_map", selfID, kind, conversationID)
		return
	}
	hashKey = fmt.Sprintf("bot:%d:%s:msg_data", selfID, kind)
	zsetKey = fmt.Sprintf("bot:%d:%s:time_map", selfID, kind)
	return
}
