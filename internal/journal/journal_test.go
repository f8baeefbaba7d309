package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/corvidbot/gateway/internal/media"
	"github.com/corvidbot/gateway/internal/wire"
)

func newTestJournal(t *testing.T) (*Journal, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	j := New(rdb, nil, Config{Consumers: 1}, nil)
	t.Cleanup(j.Stop)
	return j, mr
}

func TestBuildKeys(t *testing.T) {
	tests := []struct {
		name           string
		kind           Kind
		conversationID string
		wantHash       string
		wantZset       string
	}{
		{"group", KindGroup, "7", "bot:42:group:7:msg_data", "bot:42:group:7:time_map"},
		{"private", KindPrivate, "9", "bot:42:private:9:msg_data", "bot:42:private:9:time_map"},
		{"notice unkeyed", KindNotice, "", "bot:42:notice:msg_data", "bot:42:notice:time_map"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, zset := BuildKeys(42, tt.kind, tt.conversationID)
			if hash != tt.wantHash || zset != tt.wantZset {
				t.Errorf("BuildKeys() = (%q, %q), want (%q, %q)", hash, zset, tt.wantHash, tt.wantZset)
			}
		})
	}
}

func TestAppendAndGet_GroupMessage(t *testing.T) {
	j, mr := newTestJournal(t)

	ev := &wire.MessageEvent{
		SelfID: 42, MessageType: "group", GroupID: 7, MessageID: 100, Time: 1700,
		Message: []wire.Segment{wire.Text("hi")},
	}
	rec := FromMessageEvent(ev)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := j.Append(ctx, rec); err != nil {
		t.Fatalf("Append: %v", err)
	}

	waitForHash(t, mr, "bot:42:group:7:msg_data", "100")

	got, err := j.Get(ctx, 42, KindGroup, "7", "100")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("Get returned nil")
	}
	if len(got.Segments) != 1 || got.Segments[0].Data.Text != "hi" {
		t.Errorf("segments = %+v", got.Segments)
	}

	score, err := mr.ZScore("bot:42:group:7:time_map", "100")
	if err != nil {
		t.Fatalf("ZScore: %v", err)
	}
	if score != 1700 {
		t.Errorf("score = %v, want 1700", score)
	}
}

func TestAppend_IdempotentOnReplay(t *testing.T) {
	j, mr := newTestJournal(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ev := &wire.MessageEvent{SelfID: 42, MessageType: "group", GroupID: 7, MessageID: 100, Time: 1700}
	rec := FromMessageEvent(ev)

	j.Append(ctx, rec)
	waitForHash(t, mr, "bot:42:group:7:msg_data", "100")
	j.Append(ctx, rec)
	waitForHash(t, mr, "bot:42:group:7:msg_data", "100")

	n, err := mr.HLen("bot:42:group:7:msg_data")
	if err != nil {
		t.Fatalf("HLen: %v", err)
	}
	if n != 1 {
		t.Errorf("hash has %d entries, want 1", n)
	}

	card, err := mr.ZCard("bot:42:group:7:time_map")
	if err != nil {
		t.Fatalf("ZCard: %v", err)
	}
	if card != 1 {
		t.Errorf("zset has %d entries, want 1", card)
	}
}

func TestDelete_RemovesBothKeys(t *testing.T) {
	j, mr := newTestJournal(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ev := &wire.MessageEvent{SelfID: 42, MessageType: "group", GroupID: 7, MessageID: 101, Time: 1701}
	j.Append(ctx, FromMessageEvent(ev))
	waitForHash(t, mr, "bot:42:group:7:msg_data", "101")

	if err := j.Delete(ctx, 42, KindGroup, "7", "101"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	got, err := j.Get(ctx, 42, KindGroup, "7", "101")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil after delete, got %+v", got)
	}
	if _, err := mr.ZScore("bot:42:group:7:time_map", "101"); err == nil {
		t.Error("expected zset member removed")
	}
}

func TestPage_NewestFirst(t *testing.T) {
	j, mr := newTestJournal(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i, ts := range []int64{100, 200, 300} {
		ev := &wire.MessageEvent{SelfID: 42, MessageType: "group", GroupID: 7, MessageID: int64(i + 1), Time: ts}
		j.Append(ctx, FromMessageEvent(ev))
	}
	waitForHash(t, mr, "bot:42:group:7:msg_data", "3")

	page, err := j.Page(ctx, 42, KindGroup, "7", 0, 2)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("got %d records, want 2", len(page))
	}
	if page[0].Timestamp != 300 || page[1].Timestamp != 200 {
		t.Errorf("page not newest-first: %+v", page)
	}
}

func TestUnkeyedNotice_UsesSharedKey(t *testing.T) {
	j, mr := newTestJournal(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	n1 := &wire.NoticeEvent{SelfID: 42, NoticeType: "group_recall", Time: 1}
	n2 := &wire.NoticeEvent{SelfID: 42, NoticeType: "friend_add", Time: 2}
	j.Append(ctx, FromNoticeEvent(n1))
	j.Append(ctx, FromNoticeEvent(n2))

	waitForCard(t, mr, "bot:42:notice:time_map", 2)
}

// TestPrepareMedia_LocalPathNamingConvention pins local_path to
// "{message_id}_{index}{ext}" under the configured media root, matching
// the naming rule for message_id=100, segment index 1 (the image follows
// a text segment, which gets no local_path).
func TestPrepareMedia_LocalPathNamingConvention(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	mediaDir := t.TempDir()
	mediaClient := media.New(media.Config{Root: mediaDir}, nil)
	j := New(rdb, mediaClient, Config{Consumers: 1}, nil)
	t.Cleanup(j.Stop)

	rec := Record{
		MessageID: "100",
		Segments: []wire.Segment{
			wire.Text("hi"),
			{Type: wire.SegImage, Data: wire.SegmentData{URL: "https://example.com/photo.png"}},
		},
	}

	j.prepareMedia(&rec)

	if rec.Segments[0].Data.LocalPath != nil {
		t.Errorf("text segment should not get a local_path, got %v", *rec.Segments[0].Data.LocalPath)
	}

	got := rec.Segments[1].Data.LocalPath
	if got == nil {
		t.Fatal("image segment local_path not set")
	}
	want := filepath.Join(mediaDir, "100_1.png")
	if *got != want {
		t.Errorf("local_path = %q, want %q", *got, want)
	}
}

func waitForHash(t *testing.T, mr *miniredis.Miniredis, key, field string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if mr.Exists(key) {
			if _, err := mr.HGet(key, field); err == nil {
				return
			}
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s[%s]", key, field)
}

func waitForCard(t *testing.T, mr *miniredis.Miniredis, key string, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if n, _ := mr.ZCard(key); n == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s to reach cardinality %d", key, want)
}
