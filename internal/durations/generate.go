/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package durations

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gopxl/beep/v2/wav"
	"github.com/rs/zerolog"
)

// Generate reads every .wav file directly inside dir and returns a table of
// their durations. Files that fail to decode are logged and left out.
func Generate(dir string, logger zerolog.Logger) (*Table, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	entries := make(map[string]int64)
	for _, de := range dirEntries {
		if de.IsDir() || !strings.EqualFold(filepath.Ext(de.Name()), ".wav") {
			continue
		}
		ms, err := wavDuration(filepath.Join(dir, de.Name()))
		if err != nil {
			logger.Warn().Err(err).Str("file", de.Name()).Msg("failed to read duration")
			continue
		}
		entries[de.Name()] = ms
		logger.Debug().Str("file", de.Name()).Int64("ms", ms).Msg("duration read")
	}

	logger.Info().Str("dir", dir).Int("files", len(entries)).Msg("duration table generated")
	return NewTable(entries), nil
}

func wavDuration(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	return decodeDuration(f)
}

func decodeDuration(rc io.ReadCloser) (int64, error) {
	streamer, format, err := wav.Decode(rc)
	if err != nil {
		rc.Close()
		return 0, fmt.Errorf("decode wav: %w", err)
	}
	defer streamer.Close()

	d := format.SampleRate.D(streamer.Len())
	return d.Round(time.Millisecond).Milliseconds(), nil
}
