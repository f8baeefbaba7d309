package journal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Get retrieves a single record by message id, or nil if not present.
func (j *Journal) Get(ctx context.Context, selfID int64, kind Kind, conversationID, messageID string) (*Record, error) {
	hashKey, _ := BuildKeys(selfID, kind, conversationID)
	raw, err := j.rdb.HGet(ctx, hashKey, messageID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("hget: %w", err)
	}
	return decodeRecord(raw)
}

// Page retrieves up to count records starting at offset, newest first.
func (j *Journal) Page(ctx context.Context, selfID int64, kind Kind, conversationID string, offset, count int64) ([]*Record, error) {
	hashKey, zsetKey := BuildKeys(selfID, kind, conversationID)

	ids, err := j.rdb.ZRevRange(ctx, zsetKey, offset, offset+count-1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrevrange: %w", err)
	}
	return j.hmget(ctx, hashKey, ids)
}

// TimeRange retrieves records scored between minTS and maxTS inclusive,
// newest first.
func (j *Journal) TimeRange(ctx context.Context, selfID int64, kind Kind, conversationID string, minTS, maxTS int64) ([]*Record, error) {
	hashKey, zsetKey := BuildKeys(selfID, kind, conversationID)

	ids, err := j.rdb.ZRevRangeByScore(ctx, zsetKey, &redis.ZRangeBy{
		Min: fmt.Sprintf("%d", minTS),
		Max: fmt.Sprintf("%d", maxTS),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("zrevrangebyscore: %w", err)
	}
	return j.hmget(ctx, hashKey, ids)
}

func (j *Journal) hmget(ctx context.Context, hashKey string, ids []string) ([]*Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	vals, err := j.rdb.HMGet(ctx, hashKey, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("hmget: %w", err)
	}

	records := make([]*Record, 0, len(vals))
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue // member was removed between ZREVRANGE and HMGET
		}
		rec, err := decodeRecord([]byte(s))
		if err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Delete removes a record from both the hash and the sorted set in one
// transactional pipeline.
func (j *Journal) Delete(ctx context.Context, selfID int64, kind Kind, conversationID, messageID string) error {
	hashKey, zsetKey := BuildKeys(selfID, kind, conversationID)

	pipe := j.rdb.TxPipeline()
	pipe.HDel(ctx, hashKey, messageID)
	pipe.ZRem(ctx, zsetKey, messageID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("hdel/zrem: %w", err)
	}
	return nil
}

func decodeRecord(raw []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &rec, nil
}
