package media

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLocalPath(t *testing.T) {
	tmpDir := t.TempDir()
	c := New(Config{Root: tmpDir}, nil)

	tests := []struct {
		ext     string
		wantExt string
	}{
		{"", ".bin"},
		{"jpg", ".jpg"},
		{".png", ".png"},
	}

	for _, tt := range tests {
		path, err := c.LocalPath("100", 0, tt.ext)
		if err != nil {
			t.Fatalf("LocalPath(%q): %v", tt.ext, err)
		}
		if got := filepath.Ext(path); got != tt.wantExt {
			t.Errorf("LocalPath(%q) ext = %q, want %q", tt.ext, got, tt.wantExt)
		}
		if filepath.Dir(path) != tmpDir {
			t.Errorf("LocalPath(%q) dir = %q, want %q", tt.ext, filepath.Dir(path), tmpDir)
		}
	}
}

// TestLocalPath_NamingConvention pins the "{message_id}_{index}{ext}"
// filename contract a downstream client relies on to locate a message's
// Nth media segment on disk without consulting the journal.
func TestLocalPath_NamingConvention(t *testing.T) {
	tmpDir := t.TempDir()
	c := New(Config{Root: tmpDir}, nil)

	path, err := c.LocalPath("100", 0, ".png")
	if err != nil {
		t.Fatalf("LocalPath: %v", err)
	}
	want := filepath.Join(tmpDir, "100_0.png")
	if path != want {
		t.Errorf("LocalPath(100, 0, .png) = %q, want %q", path, want)
	}

	path, err = c.LocalPath("100", 2, "jpg")
	if err != nil {
		t.Fatalf("LocalPath: %v", err)
	}
	want = filepath.Join(tmpDir, "100_2.jpg")
	if path != want {
		t.Errorf("LocalPath(100, 2, jpg) = %q, want %q", path, want)
	}
}

func TestLocalPath_NoRootConfigured(t *testing.T) {
	c := New(Config{}, nil)
	if _, err := c.LocalPath("100", 0, ".jpg"); err == nil {
		t.Error("expected error with no root configured")
	}
}

func TestExtensionFromURL(t *testing.T) {
	tests := []struct {
		url  string
		def  string
		want string
	}{
		{"https://example.com/a/b/photo.jpg", ".bin", ".jpg"},
		{"https://example.com/a/b/photo.jpg?x=1", ".bin", ".jpg"},
		{"https://example.com/noext", ".bin", ".bin"},
		{"://not a url", ".bin", ".bin"},
	}

	for _, tt := range tests {
		got := ExtensionFromURL(tt.url, tt.def)
		if got != tt.want {
			t.Errorf("ExtensionFromURL(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestDownload_WritesFileToLocalPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("file contents"))
	}))
	defer srv.Close()

	tmpDir := t.TempDir()
	c := New(Config{Root: tmpDir, MaxAttempts: 1}, nil)
	dest := filepath.Join(tmpDir, "out.bin")

	if err := c.Download(context.Background(), srv.URL, dest); err != nil {
		t.Fatalf("Download: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "file contents" {
		t.Errorf("content = %q, want %q", got, "file contents")
	}
}

func TestDownload_PermanentErrorRemovesPartialFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	tmpDir := t.TempDir()
	c := New(Config{Root: tmpDir, MaxAttempts: 1}, nil)
	dest := filepath.Join(tmpDir, "out.bin")

	// A near-expired deadline lets Download's post-failure settle delay
	// return via ctx.Done() instead of the full 5s wait.
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := c.Download(ctx, srv.URL, dest)
	if err == nil {
		t.Fatal("expected error on 404")
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("expected partial file to be removed")
	}
}

func TestDecodeInline_DecodesAndSniffsMime(t *testing.T) {
	tmpDir := t.TempDir()
	c := New(Config{Root: tmpDir}, nil)
	dest := filepath.Join(tmpDir, "decoded.png")

	// Minimal PNG signature bytes followed by filler so the sniffer has
	// enough to classify as image/png.
	raw := append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, make([]byte, 64)...)
	payload := base64.StdEncoding.EncodeToString(raw)

	mime, err := c.DecodeInline(context.Background(), payload, dest)
	if err != nil {
		t.Fatalf("DecodeInline: %v", err)
	}
	if mime != "image/png" {
		t.Errorf("mime = %q, want image/png", mime)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(got) != len(raw) {
		t.Errorf("decoded length = %d, want %d", len(got), len(raw))
	}
}

func TestDecodeInline_StripsDataURIPrefix(t *testing.T) {
	tmpDir := t.TempDir()
	c := New(Config{Root: tmpDir}, nil)
	dest := filepath.Join(tmpDir, "decoded.bin")

	raw := []byte("hello world")
	payload := "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(raw)

	if _, err := c.DecodeInline(context.Background(), payload, dest); err != nil {
		t.Fatalf("DecodeInline: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "hello world" {
		t.Errorf("content = %q, want %q", got, "hello world")
	}
}

func TestDecodeInline_InvalidBase64RemovesPartialFile(t *testing.T) {
	tmpDir := t.TempDir()
	c := New(Config{Root: tmpDir}, nil)
	dest := filepath.Join(tmpDir, "decoded.bin")

	if _, err := c.DecodeInline(context.Background(), "not-valid-base64!!!", dest); err == nil {
		t.Fatal("expected decode error")
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("expected partial file to be removed")
	}
}

func TestEnabled(t *testing.T) {
	if (&Client{}).Enabled() {
		t.Error("Enabled() with zero Config should be false")
	}
	c := New(Config{Root: t.TempDir()}, nil)
	if !c.Enabled() {
		t.Error("Enabled() with Root set should be true")
	}
}
