/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type fileCatalog struct {
	Programs []fileProgram `yaml:"programs"`
}

type fileProgram struct {
	ID          string              `yaml:"id"`
	Include     []string            `yaml:"include"`
	Tracks      []Track             `yaml:"tracks"`
	IDs         poolSpec            `yaml:"ids"`
	Solo        poolSpec            `yaml:"solo"`
	Ads         poolSpec            `yaml:"ads"`
	News        poolSpec            `yaml:"news"`
	General     poolSpec            `yaml:"general"`
	TimeOfDay   map[string]poolSpec `yaml:"time_of_day"`
	Transitions map[string]poolSpec `yaml:"transitions"`
	TrackIntros map[string]poolSpec `yaml:"track_intros"`
}

// poolSpec is a list of paths where an entry may also be a numbered series:
//
//	- narracoes/ID_01.wav
//	- {series: "narracoes/GENERAL_%02d.wav", from: 1, count: 25}
type poolSpec []poolEntry

type poolEntry struct {
	Path   string
	Series string `yaml:"series"`
	From   int    `yaml:"from"`
	Count  int    `yaml:"count"`
}

func (e *poolEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&e.Path)
	}
	type plain poolEntry
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	if p.Series == "" || p.Count <= 0 {
		return fmt.Errorf("line %d: series entry needs series and a positive count", node.Line)
	}
	*e = poolEntry(p)
	return nil
}

func (s poolSpec) expand() []string {
	var out []string
	for _, e := range s {
		if e.Series == "" {
			if e.Path != "" {
				out = append(out, e.Path)
			}
			continue
		}
		for i := 0; i < e.Count; i++ {
			out = append(out, fmt.Sprintf(e.Series, e.From+i))
		}
	}
	return out
}

// LoadFile reads a YAML catalog from disk.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes a YAML catalog. A program may include earlier programs, which
// prepends their tracks and track intro pools to its own.
func Load(r io.Reader) (*Catalog, error) {
	var doc fileCatalog
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	built := make(map[string]*Program, len(doc.Programs))
	programs := make([]*Program, 0, len(doc.Programs))
	for _, fp := range doc.Programs {
		p := &Program{
			ID: fp.ID,
			Filler: map[PoolKind][]string{
				PoolIDs:  fp.IDs.expand(),
				PoolSolo: fp.Solo.expand(),
				PoolAds:  fp.Ads.expand(),
				PoolNews: fp.News.expand(),
			},
			General:     fp.General.expand(),
			TimeOfDay:   make(map[TimeOfDay][]string),
			Transitions: make(map[Transition][]string),
			TrackIntros: make(map[string][]string),
		}

		for _, inc := range fp.Include {
			base, ok := built[inc]
			if !ok {
				return nil, fmt.Errorf("program %s includes %q which is not defined before it", fp.ID, inc)
			}
			p.Tracks = append(p.Tracks, base.Tracks...)
			for name, pool := range base.TrackIntros {
				p.TrackIntros[name] = append([]string(nil), pool...)
			}
		}
		p.Tracks = append(p.Tracks, fp.Tracks...)
		for i := range p.Tracks {
			if p.Tracks[i].Name == "" {
				p.Tracks[i].Name = p.Tracks[i].ID
			}
		}

		for name, spec := range fp.TimeOfDay {
			tod := TimeOfDay(name)
			switch tod {
			case Morning, Afternoon, Evening, Night:
			default:
				return nil, fmt.Errorf("program %s: unknown time of day %q", fp.ID, name)
			}
			p.TimeOfDay[tod] = spec.expand()
		}
		for name, spec := range fp.Transitions {
			t := Transition(name)
			if !t.Valid() {
				return nil, fmt.Errorf("program %s: unknown transition %q", fp.ID, name)
			}
			p.Transitions[t] = spec.expand()
		}
		for name, spec := range fp.TrackIntros {
			p.TrackIntros[name] = spec.expand()
		}

		built[p.ID] = p
		programs = append(programs, p)
	}

	return New(programs...)
}
