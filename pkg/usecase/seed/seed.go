// Package seed embeds the sample risk entries loaded into a freshly created store.
package seed

import (
	_ "embed"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/riskmatrix/pkg/domain/model"
	"github.com/secmon-lab/riskmatrix/pkg/domain/types"
)

//go:embed risks.toml
var risksTOML []byte

type file struct {
	Version string  `toml:"version"`
	Risks   []entry `toml:"risk"`
}

type entry struct {
	ID          string `toml:"id"`
	Description string `toml:"description"`
	Category    string `toml:"category"`
	Probability int    `toml:"probability"`
	Impact      int    `toml:"impact"`
}

// Set is a validated seed set
type Set struct {
	Version string
	Entries []*model.RiskEntry
}

// Default returns the embedded seed set
func Default() (*Set, error) {
	return Parse(risksTOML)
}

// Parse decodes and validates a seed set
func Parse(data []byte) (*Set, error) {
	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, goerr.Wrap(err, "failed to parse seed data")
	}
	if f.Version == "" {
		return nil, goerr.New("seed version is required")
	}

	set := &Set{Version: f.Version}
	seen := make(map[types.RiskID]struct{}, len(f.Risks))
	for i, r := range f.Risks {
		e := &model.RiskEntry{
			ID:          types.RiskID(r.ID),
			Description: r.Description,
			Category:    types.CategoryID(r.Category),
			Probability: types.Probability(r.Probability),
			Impact:      types.Impact(r.Impact),
		}
		if err := e.ID.Validate(); err != nil {
			return nil, goerr.Wrap(err, "invalid seed risk ID", goerr.V("index", i))
		}
		if err := e.Validate(); err != nil {
			return nil, goerr.Wrap(err, "invalid seed risk", goerr.V("index", i), goerr.V("id", r.ID))
		}
		if _, dup := seen[e.ID]; dup {
			return nil, goerr.New("duplicate seed risk ID", goerr.V("id", r.ID))
		}
		seen[e.ID] = struct{}{}
		set.Entries = append(set.Entries, e)
	}

	if len(set.Entries) == 0 {
		return nil, goerr.New("seed data has no risks")
	}
	return set, nil
}

// Copy returns fresh copies of the entries so callers may hand them to a repository
func (s *Set) Copy() []*model.RiskEntry {
	entries := make([]*model.RiskEntry, len(s.Entries))
	for i, e := range s.Entries {
		entries[i] = e.Copy()
	}
	return entries
}
