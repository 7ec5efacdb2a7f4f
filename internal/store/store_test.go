package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/nao1215/blockphrase/internal/model"
)

// kvContract runs the behaviour every KV backend must share.
func kvContract(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	if err := kv.Set(ctx, map[string]string{"a": "1", "b": "2"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := kv.Set(ctx, map[string]string{"a": "3"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := kv.Get(ctx, "a", "b", "missing")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got) != 2 || got["a"] != "3" || got["b"] != "2" {
		t.Errorf("unexpected values: %v", got)
	}
	if _, ok := got["missing"]; ok {
		t.Error("missing key should not be returned")
	}

	if err := kv.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	got, err = kv.Get(ctx, "a", "b")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if _, ok := got["a"]; ok {
		t.Error("deleted key should not be returned")
	}

	empty, err := kv.Get(ctx)
	if err != nil {
		t.Fatalf("Get with no keys failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty result, got %v", empty)
	}
}

// TestMemoryKV tests the in-memory backend.
func TestMemoryKV(t *testing.T) {
	t.Parallel()

	kv := NewMemoryKV()
	kvContract(t, kv)

	if err := kv.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := kv.Get(context.Background(), "b"); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

// TestSQLiteKV tests the SQLite backend.
func TestSQLiteKV(t *testing.T) {
	t.Parallel()

	t.Run("key value contract", func(t *testing.T) {
		t.Parallel()

		kv, err := OpenSQLite(t.TempDir(), DefaultSQLiteOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer kv.Close()

		kvContract(t, kv)
	})

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "newdir", "subdir")
		kv, err := OpenSQLite(dir, DefaultSQLiteOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer kv.Close()

		if _, err := os.Stat(filepath.Join(dir, DatabaseFile)); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
	})

	t.Run("CreateIfNotExists=false requires existing file", func(t *testing.T) {
		t.Parallel()

		opts := DefaultSQLiteOptions()
		opts.CreateIfNotExists = false
		if _, err := OpenSQLite(t.TempDir(), opts); err == nil {
			t.Error("expected error for missing database")
		}
	})

	t.Run("values survive reopen", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		ctx := context.Background()

		kv, err := OpenSQLite(dir, DefaultSQLiteOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		if err := kv.Set(ctx, map[string]string{KeyBlockedPhrase: "discount offers"}); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		_ = kv.Close()

		kv, err = OpenSQLite(dir, DefaultSQLiteOptions())
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer kv.Close()

		got, err := kv.Get(ctx, KeyBlockedPhrase)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got[KeyBlockedPhrase] != "discount offers" {
			t.Errorf("expected stored phrase, got %q", got[KeyBlockedPhrase])
		}
	})
}

// TestRedisKV runs against a real server when BLOCKPHRASE_TEST_REDIS_URL is set.
func TestRedisKV(t *testing.T) {
	url := os.Getenv("BLOCKPHRASE_TEST_REDIS_URL")
	if url == "" {
		t.Skip("BLOCKPHRASE_TEST_REDIS_URL not set")
	}

	kv, err := OpenRedis(context.Background(), url)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	kv.key = "blockphrase:test:" + t.Name()
	defer func() {
		_ = kv.client.Del(context.Background(), kv.key).Err()
		_ = kv.Close()
	}()

	kvContract(t, kv)
}

// TestOpen tests backend selection.
func TestOpen(t *testing.T) {
	t.Parallel()

	kv, err := Open(context.Background(), OpenOptions{Backend: BackendMemory})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, ok := kv.(*MemoryKV); !ok {
		t.Errorf("expected *MemoryKV, got %T", kv)
	}

	kv, err = Open(context.Background(), OpenOptions{DBDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer kv.Close()
	if _, ok := kv.(*SQLiteKV); !ok {
		t.Errorf("expected *SQLiteKV by default, got %T", kv)
	}

	if _, err := Open(context.Background(), OpenOptions{Backend: "etcd"}); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("expected ErrUnknownBackend, got %v", err)
	}
}

// TestStorage tests the typed settings layer.
func TestStorage(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		s := New(NewMemoryKV())
		settings, err := s.Settings(context.Background())
		if err != nil {
			t.Fatalf("Settings failed: %v", err)
		}
		if !settings.ExtensionEnabled {
			t.Error("extension should be enabled by default")
		}
		if settings.BlockedPhrase != "" || settings.APIKey != "" || settings.BlockedWords != nil {
			t.Errorf("unexpected settings: %+v", settings)
		}
	})

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		s := New(NewMemoryKV())

		if err := s.SetBlockedPhrase(ctx, "discount offers"); err != nil {
			t.Fatal(err)
		}
		if err := s.SetAPIKey(ctx, "sk-test"); err != nil {
			t.Fatal(err)
		}
		if err := s.SetExtensionEnabled(ctx, false); err != nil {
			t.Fatal(err)
		}
		if err := s.SetBlockedWords(ctx, []string{"sale", "coupon"}); err != nil {
			t.Fatal(err)
		}

		settings, err := s.Settings(ctx)
		if err != nil {
			t.Fatalf("Settings failed: %v", err)
		}
		if settings.BlockedPhrase != "discount offers" || settings.APIKey != "sk-test" {
			t.Errorf("unexpected settings: %+v", settings)
		}
		if settings.ExtensionEnabled {
			t.Error("extension should be disabled")
		}
		if !slices.Equal(settings.BlockedWords, []string{"sale", "coupon"}) {
			t.Errorf("unexpected words: %v", settings.BlockedWords)
		}
	})

	t.Run("corrupt values", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		kv := NewMemoryKV()
		s := New(kv)

		_ = kv.Set(ctx, map[string]string{KeyExtensionEnabled: "maybe"})
		if _, err := s.Settings(ctx); !errors.Is(err, ErrCorruptValue) {
			t.Errorf("expected ErrCorruptValue, got %v", err)
		}

		_ = kv.Set(ctx, map[string]string{KeyExtensionEnabled: "true", KeyBlockedWords: "{"})
		if _, err := s.Settings(ctx); !errors.Is(err, ErrCorruptValue) {
			t.Errorf("expected ErrCorruptValue, got %v", err)
		}
	})

	t.Run("cached embedding", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		kv := NewMemoryKV()
		s := New(kv)

		cache, err := s.CachedEmbedding(ctx)
		if err != nil || cache != nil {
			t.Fatalf("expected no cache, got %v, %v", cache, err)
		}

		want := model.CachedEmbedding{Phrase: "discount offers", Model: "openai/text-embedding-3-small", Vector: []float64{0.25, -0.5, 1}}
		if err := s.SaveCachedEmbedding(ctx, want); err != nil {
			t.Fatalf("SaveCachedEmbedding failed: %v", err)
		}

		snapshot := kv.Snapshot()
		if snapshot[KeyEmbeddedBlockedPhrase] != "discount offers" {
			t.Errorf("phrase stored under wrong key: %v", snapshot)
		}
		if snapshot[KeyEmbeddingModel] != want.Model {
			t.Errorf("model stored under wrong key: %v", snapshot)
		}

		got, err := s.CachedEmbedding(ctx)
		if err != nil {
			t.Fatalf("CachedEmbedding failed: %v", err)
		}
		if got == nil || got.Phrase != want.Phrase || got.Model != want.Model || !slices.Equal(got.Vector, want.Vector) {
			t.Errorf("CachedEmbedding() = %+v, want %+v", got, want)
		}
		if got.Stale("discount offers", want.Model) {
			t.Error("cache should be fresh for its own phrase")
		}

		if err := s.ClearCachedEmbedding(ctx); err != nil {
			t.Fatalf("ClearCachedEmbedding failed: %v", err)
		}
		if got, _ := s.CachedEmbedding(ctx); got != nil {
			t.Error("cache should be gone after clearing")
		}
	})

	t.Run("vector without phrase is no cache", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		kv := NewMemoryKV()
		_ = kv.Set(ctx, map[string]string{KeyBlockedPhraseEmbedding: "[1,2]"})

		got, err := New(kv).CachedEmbedding(ctx)
		if err != nil || got != nil {
			t.Errorf("expected no cache, got %v, %v", got, err)
		}
	})
}
