package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/grcplane/grcplane-core/internal/models"
)

// EscalationPolicy is a named, reusable escalation ladder loaded from the
// policies YAML file. The ladder is what gets stamped onto a chain when an
// alert escalation is created from a policy name.
type EscalationPolicy struct {
	Name        string                       `yaml:"name"`
	Description string                       `yaml:"description"`
	Levels      []models.EscalationLevelRule `yaml:"levels"`
}

type policyFile struct {
	Policies []EscalationPolicy `yaml:"policies"`
}

// LoadEscalationPolicies reads the named ladders from the given YAML file.
// Levels within each policy are sorted ascending; a policy with gaps or
// duplicates in its level numbering is rejected at load time rather than at
// chain creation.
func LoadEscalationPolicies(path string) (map[string]EscalationPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read escalation policies: %w", err)
	}

	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse escalation policies: %w", err)
	}

	policies := make(map[string]EscalationPolicy, len(file.Policies))
	for _, p := range file.Policies {
		if p.Name == "" {
			return nil, fmt.Errorf("escalation policy without a name")
		}
		if _, dup := policies[p.Name]; dup {
			return nil, fmt.Errorf("duplicate escalation policy %q", p.Name)
		}
		if len(p.Levels) == 0 {
			return nil, fmt.Errorf("escalation policy %q has no levels", p.Name)
		}

		sort.Slice(p.Levels, func(i, j int) bool { return p.Levels[i].Level < p.Levels[j].Level })
		for i, lvl := range p.Levels {
			if lvl.Level != i+1 {
				return nil, fmt.Errorf("escalation policy %q: levels must be contiguous starting at 1, got level %d at position %d", p.Name, lvl.Level, i+1)
			}
			if lvl.DelayMinutes < 0 {
				return nil, fmt.Errorf("escalation policy %q level %d: negative delay", p.Name, lvl.Level)
			}
			if len(lvl.Roles) == 0 {
				return nil, fmt.Errorf("escalation policy %q level %d: at least one role is required", p.Name, lvl.Level)
			}
		}

		policies[p.Name] = p
	}

	return policies, nil
}
