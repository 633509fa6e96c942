package sessionstore

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zalando/go-keyring"
)

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	if _, err := store.Read(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Read() on missing file error = %v, want ErrNotFound", err)
	}

	if err := store.Write(ctx, "  session-data \n"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %04o, want 0600", perm)
	}

	got, err := store.Read(ctx)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got != "session-data" {
		t.Errorf("Read() = %q, want %q", got, "session-data")
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries, want only the session file", len(entries))
	}
}

func TestFileStoreRejectsInsecurePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	_, err = store.Read(context.Background())
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Read() error = %v, want permission error", err)
	}
}

func TestFileStoreEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("\n"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	store, _ := NewFileStore(path)

	if _, err := store.Read(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read() error = %v, want ErrNotFound", err)
	}
}

func TestFileStoreCancelledContext(t *testing.T) {
	store, _ := NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Write(ctx, "data"); !errors.Is(err, context.Canceled) {
		t.Errorf("Write() error = %v, want context.Canceled", err)
	}
}

func TestEnvStore(t *testing.T) {
	ctx := context.Background()

	if _, err := NewEnvStore(""); err == nil {
		t.Error("NewEnvStore(\"\") error = nil, want error")
	}

	store, err := NewEnvStore("DASHCTL_TEST_SESSION")
	if err != nil {
		t.Fatalf("NewEnvStore() error = %v", err)
	}

	t.Setenv("DASHCTL_TEST_SESSION", "")
	if _, err := store.Read(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read() on empty variable error = %v, want ErrNotFound", err)
	}

	t.Setenv("DASHCTL_TEST_SESSION", "sessionid=abc")
	got, err := store.Read(ctx)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got != "sessionid=abc" {
		t.Errorf("Read() = %q", got)
	}

	if err := store.Write(ctx, "x"); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Write() error = %v, want ErrReadOnly", err)
	}
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()

	store, err := NewKeyringStore("dashctl-test", "alice")
	if err != nil {
		t.Fatalf("NewKeyringStore() error = %v", err)
	}

	if _, err := store.Read(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read() before write error = %v, want ErrNotFound", err)
	}
	if err := store.Write(ctx, "secret"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, err := store.Read(ctx)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got != "secret" {
		t.Errorf("Read() = %q, want %q", got, "secret")
	}

	if _, err := NewKeyringStore("", "alice"); err == nil {
		t.Error("NewKeyringStore with empty service: error = nil")
	}
}

func TestKeyringStoreSessionTooLarge(t *testing.T) {
	keyring.MockInitWithError(keyring.ErrSetDataTooBig)
	t.Cleanup(keyring.MockInit)

	store, err := NewKeyringStore("dashctl-test", "alice")
	if err != nil {
		t.Fatalf("NewKeyringStore() error = %v", err)
	}
	if err := store.Write(context.Background(), strings.Repeat("c", 4096)); !errors.Is(err, ErrSessionTooLarge) {
		t.Errorf("Write() error = %v, want ErrSessionTooLarge", err)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.Read(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read() error = %v, want ErrNotFound", err)
	}
	if err := store.Write(ctx, "s"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if got, _ := store.Read(ctx); got != "s" {
		t.Errorf("Read() = %q, want %q", got, "s")
	}
}

func TestDecode(t *testing.T) {
	future := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

	encoded, err := Encode([]*http.Cookie{
		{Name: "sessionid", Value: "abc", Path: "/", HttpOnly: true, Expires: future},
		{Name: "csrftoken", Value: "def", Path: "/"},
		{Name: "stale", Value: "old", Path: "/", Expires: time.Now().Add(-time.Hour)},
	})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	tests := []struct {
		name    string
		input   string
		want    map[string]string
		wantErr bool
	}{
		{
			name:  "encoded form drops expired cookies",
			input: encoded,
			want:  map[string]string{"sessionid": "abc", "csrftoken": "def"},
		},
		{
			name:  "cookie header form",
			input: "sessionid=abc; csrftoken=def",
			want:  map[string]string{"sessionid": "abc", "csrftoken": "def"},
		},
		{
			name:  "empty",
			input: "  ",
			want:  map[string]string{},
		},
		{
			name:    "broken json",
			input:   `[{"name":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cookies, err := Decode(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			got := make(map[string]string, len(cookies))
			for _, c := range cookies {
				got[c.Name] = c.Value
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Decode() = %v, want %v", got, tt.want)
			}
			for name, value := range tt.want {
				if got[name] != value {
					t.Errorf("cookie %s = %q, want %q", name, got[name], value)
				}
			}
		})
	}
}

func TestDecodeKeepsAttributes(t *testing.T) {
	future := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	encoded, _ := Encode([]*http.Cookie{
		{Name: "sessionid", Value: "abc", Path: "/", Secure: true, HttpOnly: true, Expires: future},
	})

	cookies, err := Decode(encoded)
	if err != nil || len(cookies) != 1 {
		t.Fatalf("Decode() = %v, %v", cookies, err)
	}
	c := cookies[0]
	if !c.Secure || !c.HttpOnly || c.Path != "/" || !c.Expires.Equal(future) {
		t.Errorf("attributes lost: %+v", c)
	}
}
