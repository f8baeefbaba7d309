// Package journal implements the Redis-backed message store: a bounded
// background consumer pool drains an in-process queue into a
// per-conversation hash + time-sorted-set pair, triggering media
// side-loading for message-shaped records and repairing dangling
// local_path entries via optimistic locking on download failure.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/corvidbot/gateway/internal/media"
	"github.com/corvidbot/gateway/internal/wire"
)

// Config controls the background consumer pool.
type Config struct {
	// QueueSize bounds the in-process append queue. Producers block
	// once full — journal loss is worse than read-loop latency.
	QueueSize int
	// Consumers is the number of background workers draining the
	// queue. Default 1, for in-order journaling per conversation.
	Consumers int
}

// Journal owns the Redis connection, the append queue, and the
// background consumer pool.
type Journal struct {
	rdb    *redis.Client
	media  *media.Client
	logger *slog.Logger

	queue chan Record
	wg    sync.WaitGroup
	stop  chan struct{}
}

// New creates a Journal backed by rdb. mediaClient may be nil, which
// disables side-loading: segments keep whatever local_path they already
// had (none, for freshly received events).
func New(rdb *redis.Client, mediaClient *media.Client, cfg Config, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Consumers <= 0 {
		cfg.Consumers = 1
	}

	j := &Journal{
		rdb:    rdb,
		media:  mediaClient,
		logger: logger,
		queue:  make(chan Record, cfg.QueueSize),
		stop:   make(chan struct{}),
	}

	for i := 0; i < cfg.Consumers; i++ {
		j.wg.Add(1)
		go j.consume()
	}

	return j
}

// Append enqueues rec for background storage. Blocks if the queue is
// full (deliberate backpressure); returns ctx.Err() if ctx is cancelled
// first.
func (j *Journal) Append(ctx context.Context, rec Record) error {
	select {
	case j.queue <- rec:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-j.stop:
		return fmt.Errorf("journal: stopped")
	}
}

// Stop drains in-flight consumers and stops accepting new work.
// Pending queued records are abandoned (best-effort journaling).
func (j *Journal) Stop() {
	close(j.stop)
	j.wg.Wait()
}

func (j *Journal) consume() {
	defer j.wg.Done()
	for {
		select {
		case rec := <-j.queue:
			if err := j.store(context.Background(), rec); err != nil {
				j.logger.Error("journal: store failed", "error", err, "kind", rec.Kind)
			}
		case <-j.stop:
			return
		}
	}
}

func (j *Journal) store(ctx context.Context, rec Record) error {
	if rec.MessageID == "" {
		rec.MessageID = uuid.NewString()
	}

	j.prepareMedia(&rec)

	hashKey, zsetKey := BuildKeys(rec.SelfID, rec.Kind, rec.ConversationID)
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	pipe := j.rdb.Pipeline()
	pipe.HSet(ctx, hashKey, rec.MessageID, data)
	pipe.ZAdd(ctx, zsetKey, redis.Z{Score: float64(rec.Timestamp), Member: rec.MessageID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pipeline hset/zadd: %w", err)
	}

	j.dispatchMedia(rec)
	return nil
}

// prepareMedia optimistically sets local_path on every media segment
// before the journal write lands, so the journal record points at the
// intended file whether or not the download has completed yet.
func (j *Journal) prepareMedia(rec *Record) {
	if j.media == nil || !j.media.Enabled() {
		return
	}
	for i := range rec.Segments {
		seg := &rec.Segments[i]
		if !seg.Type.IsMedia() {
			continue
		}
		if seg.Data.URL == "" && seg.Data.File == "" {
			continue
		}

		ext := defaultExt(seg.Type)
		if seg.Data.URL != "" {
			ext = media.ExtensionFromURL(seg.Data.URL, ext)
		}
		path, err := j.media.LocalPath(rec.MessageID, i, ext)
		if err != nil {
			j.logger.Warn("journal: could not allocate media path", "error", err)
			continue
		}
		seg.Data.LocalPath = &path
	}
}

// dispatchMedia spawns background downloads/decodes for the segments
// prepareMedia staged local_path onto, using the Go runtime's native
// goroutine lifetime instead of a task-reference set: nothing here
// needs Python's GC-prevention trick.
func (j *Journal) dispatchMedia(rec Record) {
	if j.media == nil || !j.media.Enabled() {
		return
	}
	for i := range rec.Segments {
		seg := rec.Segments[i]
		if seg.Data.LocalPath == nil {
			continue
		}
		index := i
		localPath := *seg.Data.LocalPath

		switch {
		case seg.Data.URL != "":
			go func() {
				ctx := context.Background()
				if err := j.media.Download(ctx, seg.Data.URL, localPath); err != nil {
					j.logger.Warn("journal: media download failed", "error", err, "url", seg.Data.URL)
					if rerr := j.ClearLocalPath(ctx, rec.SelfID, rec.Kind, rec.ConversationID, rec.MessageID, index); rerr != nil {
						j.logger.Error("journal: local_path repair failed", "error", rerr)
					}
				}
			}()
		case seg.Data.File != "":
			go func() {
				ctx := context.Background()
				if _, err := j.media.DecodeInline(ctx, seg.Data.File, localPath); err != nil {
					j.logger.Warn("journal: inline media decode failed", "error", err)
					if rerr := j.ClearLocalPath(ctx, rec.SelfID, rec.Kind, rec.ConversationID, rec.MessageID, index); rerr != nil {
						j.logger.Error("journal: local_path repair failed", "error", rerr)
					}
				}
			}()
		}
	}
}

func defaultExt(t wire.SegmentType) string {
	switch t {
	case wire.SegImage:
		return ".jpg"
	case wire.SegVideo:
		return ".mp4"
	default:
		return ".bin"
	}
}

// ClearLocalPath implements media.Repairer: it watches the hash entry,
// re-reads the current record, nulls the segment's local_path, and
// writes it back inside a MULTI/EXEC transaction, retrying on
// WATCH-detected conflict.
func (j *Journal) ClearLocalPath(ctx context.Context, selfID int64, kind, conversationID, msgID string, segmentIndex int) error {
	hashKey, _ := BuildKeys(selfID, Kind(kind), conversationID)

	const maxRetries = 10
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := j.rdb.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.HGet(ctx, hashKey, msgID).Bytes()
			if err == redis.Nil {
				return nil // already gone; nothing to repair
			}
			if err != nil {
				return err
			}

			var rec Record
			if err := json.Unmarshal(raw, &rec); err != nil {
				return fmt.Errorf("unmarshal record for repair: %w", err)
			}
			if segmentIndex < 0 || segmentIndex >= len(rec.Segments) {
				return nil
			}
			rec.Segments[segmentIndex].Data.LocalPath = nil

			updated, err := json.Marshal(rec)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, hashKey, msgID, updated)
				return nil
			})
			return err
		}, hashKey)

		if err == nil {
			return nil
		}
		if err == redis.TxFailedErr {
			continue // another writer raced us; retry
		}
		return err
	}
	return fmt.Errorf("journal: local_path repair exhausted retries for %s/%s", hashKey, msgID)
}
