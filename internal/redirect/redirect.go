// Package redirect turns a snapshot delta into the ordered redirect rules
// consumed by the external redirect collaborator.
package redirect

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/location"
	"github.com/starford/raido/internal/snapshot"
)

// Rule maps an old location to its new one: requests for From must resolve
// to To.
type Rule struct {
	From location.Location `json:"from"`
	To   location.Location `json:"to"`
}

// Rules emits one rule per moved identifier, sorted by old location.
// Removed identifiers have no destination and produce no rule; they are
// the caller's warnings. Two rules sharing a source location cannot happen
// under the snapshot bijection, so finding one is a fatal consistency
// error rather than something to silently drop.
func Rules(delta snapshot.Delta) ([]Rule, error) {
	bySource := make(map[location.Location]string, len(delta.Moved))
	rules := make([]Rule, 0, len(delta.Moved))

	for _, m := range delta.Moved {
		if m.From == m.To {
			continue
		}
		if prev, dup := bySource[m.From]; dup {
			return nil, fmt.Errorf("redirect: %w: %s redirected by both %q and %q",
				apperr.ErrInconsistent, m.From, prev, m.ID)
		}
		bySource[m.From] = m.ID
		rules = append(rules, Rule{From: m.From, To: m.To})
	}

	sort.Slice(rules, func(i, j int) bool { return rules[i].From < rules[j].From })
	return rules, nil
}

// EncodeYAML renders rules as an ordered old→new mapping, the shape the
// redirect collaborator's configuration consumes.
func EncodeYAML(rules []Rule) ([]byte, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, r := range rules {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(r.From)},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(r.To)},
		)
	}
	out, err := yaml.Marshal(node)
	if err != nil {
		return nil, fmt.Errorf("redirect: encode: %w", err)
	}
	return out, nil
}
