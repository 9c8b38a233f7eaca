/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/luizarrieira/radio-lrr-iv/internal/config"
)

func TestFilesystemStoreRoundTrip(t *testing.T) {
	root := t.TempDir()
	store := NewFilesystemStore(root, zerolog.Nop())
	ctx := context.Background()

	if err := store.Put(ctx, "narracoes/ID_01.wav", []byte("RIFF")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "narracoes", "ID_01.wav")); err != nil {
		t.Fatalf("expected file on disk: %v", err)
	}

	data, err := store.Get(ctx, "narracoes/ID_01.wav")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != "RIFF" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestFilesystemStoreMissingKey(t *testing.T) {
	store := NewFilesystemStore(t.TempDir(), zerolog.Nop())
	if _, err := store.Get(context.Background(), "nope.wav"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFilesystemStoreConfinesKeysToRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "media")
	if err := os.MkdirAll(root, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(parent, "secret.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	store := NewFilesystemStore(root, zerolog.Nop())
	if _, err := store.Get(context.Background(), "../secret.txt"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected traversal to stay inside root, got %v", err)
	}
}

func TestFilesystemStoreCheckAccess(t *testing.T) {
	if err := NewFilesystemStore(t.TempDir(), zerolog.Nop()).CheckAccess(context.Background()); err != nil {
		t.Fatalf("CheckAccess on temp dir: %v", err)
	}
	missing := filepath.Join(t.TempDir(), "missing")
	if err := NewFilesystemStore(missing, zerolog.Nop()).CheckAccess(context.Background()); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestNewSelectsBackend(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.Config
		wantErr bool
	}{
		{"filesystem", &config.Config{StorageBackend: config.StorageFilesystem, MediaRoot: "/tmp/media"}, false},
		{"s3 without bucket", &config.Config{StorageBackend: config.StorageS3}, true},
		{"unknown backend", &config.Config{StorageBackend: "ftp"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := New(context.Background(), tt.cfg, zerolog.Nop())
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if _, ok := store.(*FilesystemStore); !ok {
				t.Errorf("New() store type = %T, want *FilesystemStore", store)
			}
		})
	}
}
