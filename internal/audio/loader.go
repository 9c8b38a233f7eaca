/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
	"github.com/rs/zerolog"

	"github.com/luizarrieira/radio-lrr-iv/internal/storage"
)

// Clip is a fully decoded buffer.
type Clip struct {
	buffer *beep.Buffer
	format beep.Format
}

// NewClip wraps a decoded beep buffer.
func NewClip(buf *beep.Buffer) *Clip {
	return &Clip{buffer: buf, format: buf.Format()}
}

// Duration returns the clip length.
func (c *Clip) Duration() time.Duration {
	return c.format.SampleRate.D(c.buffer.Len())
}

// Format returns the clip's sample format.
func (c *Clip) Format() beep.Format {
	return c.format
}

// Streamer returns a fresh streamer over the whole clip.
func (c *Clip) Streamer() beep.StreamSeeker {
	return c.buffer.Streamer(0, c.buffer.Len())
}

// StoreLoader decodes content fetched from an object store.
type StoreLoader struct {
	store  storage.ObjectStore
	logger zerolog.Logger
}

// NewStoreLoader creates a loader over store.
func NewStoreLoader(store storage.ObjectStore, logger zerolog.Logger) *StoreLoader {
	return &StoreLoader{
		store:  store,
		logger: logger.With().Str("component", "loader").Logger(),
	}
}

// Load fetches path and decodes it into memory.
func (l *StoreLoader) Load(ctx context.Context, p string) (Buffer, error) {
	data, err := l.store.Get(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", p, err)
	}

	clip, err := Decode(p, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	l.logger.Debug().
		Str("path", p).
		Int("bytes", len(data)).
		Dur("duration", clip.Duration()).
		Msg("decoded")
	return clip, nil
}

// Decode decodes r according to the extension of name.
func Decode(name string, r io.Reader) (*Clip, error) {
	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
		err      error
	)
	switch strings.ToLower(path.Ext(name)) {
	case ".wav":
		streamer, format, err = wav.Decode(r)
	case ".mp3":
		streamer, format, err = mp3.Decode(io.NopCloser(r))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	defer streamer.Close()

	buf := beep.NewBuffer(format)
	buf.Append(streamer)
	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return NewClip(buf), nil
}
