/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package weather

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

type family struct {
	prefix  string
	count   int
	match   []string
	daytime bool
}

// Checked in order; the first family whose keyword appears in the condition wins.
var families = []family{
	{prefix: "CLOUD", count: 11, match: []string{"cloud"}},
	{prefix: "FOG", count: 12, match: []string{"fog", "mist"}},
	{prefix: "RAIN", count: 11, match: []string{"rain"}},
	{prefix: "SUN", count: 12, match: []string{"clear", "sun"}, daytime: true},
	{prefix: "WIND", count: 11, match: []string{"wind", "breeze"}},
}

// PickFile maps a weather condition and wall-clock hour to one weather report
// clip. Sunny reports are only used between 05:00 and 18:59. It reports false
// when no family matches.
func PickFile(condition string, hour int, rnd *rand.Rand) (string, bool) {
	c := strings.ToLower(condition)
	if c == "" {
		return "", false
	}
	for _, f := range families {
		if !containsAny(c, f.match) {
			continue
		}
		if f.daytime && (hour < 5 || hour > 18) {
			continue
		}
		return fmt.Sprintf("weather/%s_%02d.wav", f.prefix, rnd.IntN(f.count)+1), true
	}
	return "", false
}

// Files lists every clip PickFile can return.
func Files() []string {
	var out []string
	for _, f := range families {
		for i := 1; i <= f.count; i++ {
			out = append(out, fmt.Sprintf("weather/%s_%02d.wav", f.prefix, i))
		}
	}
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
