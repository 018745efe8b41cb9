package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDirStorePut(t *testing.T) {
	root := t.TempDir()
	fixed := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	store := &DirStore{Root: root, PublicBase: "/files", Now: func() time.Time { return fixed }}

	url, err := store.Put(context.Background(), "cust-1", "shot one.png", strings.NewReader("pixels"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	want := "/files/cust-1/" + "1717243200000_shot_one.png"
	if url != want {
		t.Fatalf("url = %q, want %q", url, want)
	}
	data, err := os.ReadFile(filepath.Join(root, "cust-1", "1717243200000_shot_one.png"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "pixels" {
		t.Fatalf("content = %q", data)
	}
}

func TestDirStoreRequiresCustomer(t *testing.T) {
	store := &DirStore{Root: t.TempDir(), PublicBase: "/files"}
	if _, err := store.Put(context.Background(), "", "a.png", strings.NewReader("x")); err == nil {
		t.Fatal("expected error for missing customer id")
	}
}

func TestMemStoreRoundTrip(t *testing.T) {
	store := NewMemStore()
	url, err := store.Put(context.Background(), "cust-1", "a.png", strings.NewReader("bytes"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if !strings.HasPrefix(url, "mem://") {
		t.Fatalf("url = %q, want mem:// scheme", url)
	}
	data, ok := store.Get(url)
	if !ok || string(data) != "bytes" {
		t.Fatalf("get = %q, %v", data, ok)
	}
}

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"../../etc/passwd": "passwd",
		"invoice (1).png":  "invoice__1_.png",
		"":                 "upload",
	}
	for in, want := range cases {
		if got := sanitize(in); got != want {
			t.Errorf("sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}
