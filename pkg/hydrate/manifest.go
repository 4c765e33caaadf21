package hydrate

import (
	"encoding/json"

	"github.com/vango-dev/terse/internal/errors"
	"github.com/vango-dev/terse/pkg/spec"
)

// ManifestVersion is the manifest format version.
const ManifestVersion = 1

// Manifest is what the bootstrap needs to hydrate a page.
type Manifest struct {
	Version int             `json:"version"`
	State   json.RawMessage `json:"state"`
	Islands []Entry         `json:"islands"`
}

// Entry describes one island. Static islands carry no spec.
type Entry struct {
	ID       string          `json:"id"`
	Strategy string          `json:"strategy"`
	Media    string          `json:"media,omitempty"`
	Spec     json.RawMessage `json:"spec,omitempty"`
}

// NewManifest builds the manifest for islands over a state snapshot as
// produced by serial.Serialize. Islands holding Go handlers cannot be
// shipped and fail with E107.
func NewManifest(islands []Island, snapshot string) (*Manifest, error) {
	if !json.Valid([]byte(snapshot)) {
		return nil, errors.Newf("E401", "state snapshot is not valid JSON")
	}
	m := &Manifest{
		Version: ManifestVersion,
		State:   json.RawMessage(snapshot),
		Islands: make([]Entry, 0, len(islands)),
	}
	for _, is := range islands {
		e := Entry{ID: is.ID, Strategy: is.Strategy.String(), Media: is.Media}
		if is.Strategy != Static {
			v, dropped := spec.EncodeNode(is.Node)
			if len(dropped) > 0 {
				return nil, errors.Newf("E107", "island %q has Go handlers that cannot be hydrated", is.ID).
					WithDetailf("at %v", dropped)
			}
			data, err := json.Marshal(v)
			if err != nil {
				return nil, errors.New("E107").WithDetailf("island %q", is.ID).Wrap(err)
			}
			e.Spec = data
		}
		m.Islands = append(m.Islands, e)
	}
	return m, nil
}

// ParseManifest decodes and checks a manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.New("E401").WithDetail("invalid manifest").Wrap(err)
	}
	if m.Version != ManifestVersion {
		return nil, errors.Newf("E401", "unsupported manifest version %d", m.Version)
	}
	if len(m.State) == 0 {
		return nil, errors.Newf("E401", "manifest has no state")
	}
	seen := make(map[string]bool, len(m.Islands))
	for _, e := range m.Islands {
		st, err := ParseStrategy(e.Strategy)
		if err != nil {
			return nil, err
		}
		switch {
		case seen[e.ID]:
			return nil, errors.Newf("E107", "duplicate island id %q", e.ID)
		case st == Media && e.Media == "":
			return nil, errors.Newf("E107", "media island %q has no media query", e.ID)
		case st != Static && len(e.Spec) == 0:
			return nil, errors.Newf("E107", "island %q has no spec", e.ID)
		}
		seen[e.ID] = true
	}
	return &m, nil
}

// Node parses the entry's spec.
func (e Entry) Node() (spec.Node, error) {
	var v any
	if err := json.Unmarshal(e.Spec, &v); err != nil {
		return nil, errors.New("E109").WithDetailf("island %q", e.ID).Wrap(err)
	}
	return spec.ParseNode(v)
}
