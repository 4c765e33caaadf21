package hydrate

import (
	"github.com/vango-dev/terse/internal/errors"
	"github.com/vango-dev/terse/pkg/spec"
)

// Strategy decides when an island is mounted on the client.
type Strategy uint8

const (
	Immediate Strategy = iota
	Idle
	Visible
	Media
	Static
)

var strategyNames = [...]string{
	Immediate: "load",
	Idle:      "idle",
	Visible:   "visible",
	Media:     "media",
	Static:    "static",
}

func (s Strategy) String() string {
	if int(s) < len(strategyNames) {
		return strategyNames[s]
	}
	return "unknown"
}

// ParseStrategy maps a hydrate attribute to its strategy. The empty string
// is Immediate.
func ParseStrategy(s string) (Strategy, error) {
	if s == "" {
		return Immediate, nil
	}
	for i, name := range strategyNames {
		if name == s {
			return Strategy(i), nil
		}
	}
	return 0, errors.Newf("E107", "unknown hydrate strategy %q", s)
}

// Island is one independently hydrated subtree.
type Island struct {
	ID       string
	Strategy Strategy
	Media    string
	Node     spec.Node
}

// FromNode converts an island node.
func FromNode(is *spec.Island) (Island, error) {
	st, err := ParseStrategy(is.Hydrate)
	if err != nil {
		return Island{}, err
	}
	if st == Media && is.Media == "" {
		return Island{}, errors.Newf("E107", "media island %q has no media query", is.ID)
	}
	return Island{ID: is.ID, Strategy: st, Media: is.Media, Node: is.Child}, nil
}

// Collect returns the outermost islands of root in document order. An
// island nested in another is hydrated as part of it.
func Collect(root spec.Node) ([]Island, error) {
	var (
		out  []Island
		seen = make(map[string]bool)
		err  error
	)
	spec.Walk(root, func(n spec.Node) bool {
		if err != nil {
			return false
		}
		is, ok := n.(*spec.Island)
		if !ok {
			return true
		}
		if seen[is.ID] {
			err = errors.Newf("E107", "duplicate island id %q", is.ID)
			return false
		}
		var island Island
		if island, err = FromNode(is); err != nil {
			return false
		}
		seen[is.ID] = true
		out = append(out, island)
		spec.Walk(is.Child, func(inner spec.Node) bool {
			if x, ok := inner.(*spec.Island); ok {
				if seen[x.ID] {
					err = errors.Newf("E107", "duplicate island id %q", x.ID)
					return false
				}
				seen[x.ID] = true
			}
			return err == nil
		})
		return false
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
