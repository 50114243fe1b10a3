package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// fakeRedis answers the handful of REST commands UpstashStore issues.
type fakeRedis struct {
	mu       sync.Mutex
	data     map[string]string
	commands [][]any
}

func newFakeRedis(t *testing.T) (*fakeRedis, *httptest.Server) {
	t.Helper()
	fr := &fakeRedis{data: map[string]string{}}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if r.Header.Get("Authorization") != "Bearer token" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":"unauthorized"}`)
			return
		}
		var cmd []any
		if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
			t.Errorf("decode command: %v", err)
			return
		}
		fr.mu.Lock()
		defer fr.mu.Unlock()
		fr.commands = append(fr.commands, cmd)

		var result any
		switch cmd[0] {
		case "GET":
			if v, ok := fr.data[cmd[1].(string)]; ok {
				result = v
			}
		case "SET":
			fr.data[cmd[1].(string)] = cmd[2].(string)
			result = "OK"
		case "DEL":
			n := 0
			for _, k := range cmd[1:] {
				if _, ok := fr.data[k.(string)]; ok {
					delete(fr.data, k.(string))
					n++
				}
			}
			result = n
		case "KEYS":
			prefix := strings.TrimSuffix(cmd[1].(string), "*")
			keys := []string{}
			for k := range fr.data {
				if strings.HasPrefix(k, prefix) {
					keys = append(keys, k)
				}
			}
			result = keys
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": result})
	}))
	t.Cleanup(server.Close)
	return fr, server
}

func TestUpstashStoreRoundTrip(t *testing.T) {
	t.Parallel()

	fr, server := newFakeRedis(t)
	store, err := NewUpstashStore(UpstashConfig{URL: server.URL, Token: "token"}, WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("NewUpstashStore() error = %v", err)
	}

	ctx := context.Background()
	if _, err := store.Load(ctx, "abc"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load() on empty store error = %v, want ErrNotFound", err)
	}

	rec := Record{WrittenAt: 1700000000.5, Data: json.RawMessage(`{"name":"acme"}`)}
	if err := store.Store(ctx, "abc", rec); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	got, err := store.Load(ctx, "abc")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.WrittenAt != rec.WrittenAt || string(got.Data) != string(rec.Data) {
		t.Fatalf("Load() = %+v, want %+v", got, rec)
	}

	fr.mu.Lock()
	setCmd := fr.commands[1]
	fr.mu.Unlock()
	if setCmd[0] != "SET" || setCmd[1] != "research:cache:abc" {
		t.Fatalf("unexpected SET command: %#v", setCmd)
	}
	if len(setCmd) != 3 {
		t.Fatalf("SET must not carry a redis expiry: %#v", setCmd)
	}
}

func TestUpstashStorePurgeOnlyOwnPrefix(t *testing.T) {
	t.Parallel()

	fr, server := newFakeRedis(t)
	fr.data["unrelated:key"] = "keep"

	store, err := NewUpstashStore(UpstashConfig{URL: server.URL, Token: "token"}, WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("NewUpstashStore() error = %v", err)
	}
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		if err := store.Store(ctx, id, Record{WrittenAt: 1, Data: json.RawMessage(`1`)}); err != nil {
			t.Fatalf("Store(%s) error = %v", id, err)
		}
	}

	if err := store.Purge(ctx); err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	fr.mu.Lock()
	defer fr.mu.Unlock()
	if len(fr.data) != 1 || fr.data["unrelated:key"] != "keep" {
		t.Fatalf("unexpected data after purge: %#v", fr.data)
	}
}

func TestUpstashStoreCorruptPayload(t *testing.T) {
	t.Parallel()

	fr, server := newFakeRedis(t)
	fr.data["research:cache:bad"] = "not-json"

	store, err := NewUpstashStore(UpstashConfig{URL: server.URL, Token: "token"}, WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("NewUpstashStore() error = %v", err)
	}
	if _, err := store.Load(context.Background(), "bad"); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Load() error = %v, want ErrCorrupt", err)
	}
}

func TestUpstashStoreHTTPError(t *testing.T) {
	t.Parallel()

	_, server := newFakeRedis(t)
	store, err := NewUpstashStore(UpstashConfig{URL: server.URL, Token: "wrong"}, WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("NewUpstashStore() error = %v", err)
	}
	err = store.Store(context.Background(), "abc", Record{WrittenAt: 1, Data: json.RawMessage(`1`)})
	if err == nil || !strings.Contains(err.Error(), "status=401") {
		t.Fatalf("expected 401 error, got %v", err)
	}
}

func TestNewUpstashStoreValidatesConfig(t *testing.T) {
	t.Parallel()

	if _, err := NewUpstashStore(UpstashConfig{Token: "token"}); err == nil {
		t.Fatal("expected error for missing url")
	}
	if _, err := NewUpstashStore(UpstashConfig{URL: "http://localhost"}); err == nil {
		t.Fatal("expected error for missing token")
	}
}
