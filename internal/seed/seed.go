// Package seed loads the default catalog into a fresh store.
package seed

import (
	"context"
	"fmt"

	"github.com/okian/critic/internal/adapters/repository"
	"github.com/okian/critic/internal/domain/model"
	"github.com/okian/critic/pkg/logger"
)

// General is the group every seeded title belongs to.
const General = "general"

// Criteria are created in every seeded group.
var Criteria = []string{
	"gameplay",
	"replayability",
	"difficulty",
	"story",
	"world-building",
	"writing/voice-acting",
	"graphics",
	"art-style",
	"ux",
	"sound-effects",
	"music",
}

// Entry is a seeded title and the genre groups it joins besides General.
type Entry struct {
	Name   string
	Genres []string
}

var (
	zelda     = []string{"action-adventure", "arpg"}
	zeldaOpen = []string{"action-adventure", "arpg", "open-world"}
	jrpg      = []string{"jrpg"}
	jrpgMMO   = []string{"jrpg", "mmo"}
)

// Entries is the default title list.
var Entries = []Entry{
	{"Legend of Zelda", zelda},
	{"Legend of Zelda 2: The Adventure of Link", []string{"action-adventure", "arpg", "platformer"}},
	{"Legend of Zelda: A Link to the Past", zelda},
	{"Legend of Zelda: Link's Awakening", zelda},
	{"Legend of Zelda: Ocarina of Time", zeldaOpen},
	{"Legend of Zelda: Majora's Mask", zeldaOpen},
	{"Legend of Zelda: Oracle of Seasons", zelda},
	{"Legend of Zelda: Oracle of Ages", zelda},
	{"Legend of Zelda: Four Swords", zelda},
	{"Legend of Zelda: The Wind Waker", zeldaOpen},
	{"Legend of Zelda: The Minish Cap", zelda},
	{"Legend of Zelda: Twilight Princess", zeldaOpen},
	{"Legend of Zelda: Phantom Hourglass", zelda},
	{"Legend of Zelda: Spirit Tracks", zelda},
	{"Legend of Zelda: Skyward Sword", zelda},
	{"Legend of Zelda: A Link Between Worlds", zelda},
	{"Legend of Zelda: Breath of the Wild", zeldaOpen},
	{"Legend of Zelda: Tears of the Kingdom", zeldaOpen},
	{"Legend of Zelda: Echoes of Wisdom", zelda},
	{"Final Fantasy", jrpg},
	{"Final Fantasy II", jrpg},
	{"Final Fantasy III", jrpg},
	{"Final Fantasy IV", jrpg},
	{"Final Fantasy V", jrpg},
	{"Final Fantasy VI", jrpg},
	{"Final Fantasy VII", jrpg},
	{"Final Fantasy VIII", jrpg},
	{"Final Fantasy IX", jrpg},
	{"Final Fantasy X", jrpg},
	{"Final Fantasy XI", jrpgMMO},
	{"Final Fantasy XII", jrpg},
	{"Final Fantasy XIII", jrpg},
	{"Final Fantasy XIV", jrpgMMO},
	{"Final Fantasy XV", jrpg},
	{"Final Fantasy XVI", jrpg},
}

// Target is a catalog that can report whether it holds anything yet.
type Target interface {
	repository.Catalog
	Stats(ctx context.Context) (model.Stats, error)
}

// IfEmpty loads Entries into t unless it already has titles or groups.
// It reports whether anything was written.
func IfEmpty(ctx context.Context, t Target) (bool, error) {
	st, err := t.Stats(ctx)
	if err != nil {
		return false, fmt.Errorf("seed: stats: %w", err)
	}
	if st.Titles > 0 || st.Groups > 0 {
		return false, nil
	}
	if err := Load(ctx, t, Entries); err != nil {
		return false, err
	}
	logger.Get().Info(ctx, "catalog seeded",
		logger.Int("titles", len(entries(Entries))),
		logger.Int("criteria_per_group", len(Criteria)),
	)
	return true, nil
}

// Load creates the General group, one group per genre, the default criteria
// in each group and every entry with its associations. Groups are created
// in first-seen order.
func Load(ctx context.Context, t repository.Catalog, list []Entry) error {
	groups := make(map[string]int64)
	group := func(name string) (int64, error) {
		if id, ok := groups[name]; ok {
			return id, nil
		}
		g, err := t.CreateGroup(ctx, name)
		if err != nil {
			return 0, fmt.Errorf("seed: group %q: %w", name, err)
		}
		for _, c := range Criteria {
			if _, err := t.CreateCriterion(ctx, g.ID, c); err != nil {
				return 0, fmt.Errorf("seed: criterion %q in %q: %w", c, name, err)
			}
		}
		groups[name] = g.ID
		return g.ID, nil
	}

	if _, err := group(General); err != nil {
		return err
	}
	for _, e := range entries(list) {
		title, err := t.CreateTitle(ctx, e.Name)
		if err != nil {
			return fmt.Errorf("seed: title %q: %w", e.Name, err)
		}
		for _, name := range append([]string{General}, e.Genres...) {
			gid, err := group(name)
			if err != nil {
				return err
			}
			if err := t.AssignGroup(ctx, title.ID, gid); err != nil {
				return fmt.Errorf("seed: assign %q to %q: %w", e.Name, name, err)
			}
		}
	}
	return nil
}

// entries drops repeated names, keeping the first.
func entries(list []Entry) []Entry {
	seen := make(map[string]struct{}, len(list))
	out := make([]Entry, 0, len(list))
	for _, e := range list {
		if _, ok := seen[e.Name]; ok {
			continue
		}
		seen[e.Name] = struct{}{}
		out = append(out, e)
	}
	return out
}
