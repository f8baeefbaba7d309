package correlator

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/corvidbot/gateway/internal/wire"
)

// fakeSender records every sent frame so tests can read the echo token
// back and drive Deliver without a real WebSocket.
type fakeSender struct {
	mu     sync.Mutex
	frames [][]byte
}

func (f *fakeSender) Send(ctx context.Context, frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeSender) lastEcho(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) == 0 {
		t.Fatal("no frame sent")
	}
	var a wire.Action
	if err := json.Unmarshal(f.frames[len(f.frames)-1], &a); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	return a.Echo
}

func encodeLoginInfo(echo string) ([]byte, error) {
	return wire.EncodeAction("get_login_info", struct{}{}, echo)
}

func TestCall_EchoedResponse(t *testing.T) {
	sender := &fakeSender{}
	c := New(sender, time.Second)

	done := make(chan struct{})
	var resp *wire.ResponseEvent
	var callErr error
	go func() {
		resp, callErr = c.Call(context.Background(), encodeLoginInfo)
		close(done)
	}()

	waitForSend(t, sender)
	echo := sender.lastEcho(t)

	c.Deliver(wire.ResponseEvent{Echo: echo, Status: "ok", RetCode: 0, Data: json.RawMessage(`{"user_id":42}`)})

	<-done
	if callErr != nil {
		t.Fatalf("Call error: %v", callErr)
	}
	var data struct {
		UserID int64 `json:"user_id"`
	}
	json.Unmarshal(resp.Data, &data)
	if data.UserID != 42 {
		t.Errorf("user_id = %d, want 42", data.UserID)
	}
	if c.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0 after return", c.Pending())
	}
}

func TestCall_Timeout(t *testing.T) {
	sender := &fakeSender{}
	c := New(sender, 10*time.Millisecond)

	_, err := c.Call(context.Background(), encodeLoginInfo)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if c.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0 after timeout", c.Pending())
	}

	// A late response for the now-removed token must be dropped, not panic.
	c.Deliver(wire.ResponseEvent{Echo: sender.lastEcho(t), Status: "ok"})
}

func TestCall_TokensAreUnique(t *testing.T) {
	sender := &fakeSender{}
	c := New(sender, time.Second)

	var wg sync.WaitGroup
	echoes := make(chan string, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Call(context.Background(), func(echo string) ([]byte, error) {
				echoes <- echo
				return wire.EncodeAction("get_login_info", struct{}{}, echo)
			})
		}()
	}

	e1 := <-echoes
	e2 := <-echoes
	if e1 == e2 {
		t.Errorf("expected distinct tokens, got %q twice", e1)
	}

	c.Close()
	wg.Wait()
}

func TestStream_YieldsChunksUntilSentinel(t *testing.T) {
	sender := &fakeSender{}
	c := New(sender, time.Second)

	ch, err := c.Stream(context.Background(), func(echo string) ([]byte, error) {
		return wire.EncodeAction("download_file_stream", struct{}{}, echo)
	})
	if err != nil {
		t.Fatalf("Stream error: %v", err)
	}
	echo := sender.lastEcho(t)

	go func() {
		for i := 0; i < 3; i++ {
			c.Deliver(wire.ResponseEvent{
				Echo: echo, Status: "ok", Stream: "stream-action",
				Inner: &wire.StreamData{Type: "stream", DataType: "data_chunk", Data: json.RawMessage(`"A"`)},
			})
		}
		c.Deliver(wire.ResponseEvent{
			Echo: echo, Status: "ok", Stream: "stream-action",
			Inner: &wire.StreamData{Type: "response", DataType: "data_complete"},
		})
	}()

	var got []wire.ResponseEvent
	for frame := range ch {
		got = append(got, frame)
	}
	if len(got) != 4 {
		t.Fatalf("got %d frames, want 4 (3 chunks + sentinel)", len(got))
	}
	if got[3].Classify() != wire.StreamSentinel {
		t.Errorf("last frame classify = %v, want sentinel", got[3].Classify())
	}
	if c.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0 after stream ends", c.Pending())
	}
}

func TestClose_CompletesOutstandingWaiters(t *testing.T) {
	sender := &fakeSender{}
	c := New(sender, 5*time.Second)

	done := make(chan error, 1)
	go func() {
		_, err := c.Call(context.Background(), encodeLoginInfo)
		done <- err
	}()

	waitForSend(t, sender)
	c.Close()

	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Call did not return after Close")
	}
}

func TestCall_RejectedAfterClose(t *testing.T) {
	sender := &fakeSender{}
	c := New(sender, time.Second)
	c.Close()

	_, err := c.Call(context.Background(), encodeLoginInfo)
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func waitForSend(t *testing.T, sender *fakeSender) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		sender.mu.Lock()
		n := len(sender.frames)
		sender.mu.Unlock()
		if n > 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for Send")
}
