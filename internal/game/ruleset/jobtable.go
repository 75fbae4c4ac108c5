// Package ruleset loads balance data that overrides the built-in job and rank table.
package ruleset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/guildmaster/internal/game/unit"
)

// ErrUnknownAbility is returned when an override names an ability the job does not own.
var ErrUnknownAbility = errors.New("unknown ability")

// tableFile is the on-disk shape of a job table override.
//
//	ranks:
//	  legendary: 2.0
//	jobs:
//	  warrior:
//	    max_health: {base: 110}
//	    abilities:
//	      rage_strike:
//	        value: {base: 0.35}
type tableFile struct {
	Ranks map[string]float64   `yaml:"ranks"`
	Jobs  map[string]yaml.Node `yaml:"jobs"`
}

// jobOverride decodes on top of an existing formula so absent keys keep their value.
type jobOverride struct {
	unit.JobFormula `yaml:",inline"`
	Abilities       map[string]yaml.Node `yaml:"abilities"`
}

// LoadJobTable reads the override file at path, or every .yaml file in path when it
// is a directory, and applies them in name order over the built-in table.
//
// Precondition: path must name a readable file or directory.
// Postcondition: Returns a validated table or a non-nil error naming the offending file.
func LoadJobTable(path string) (*unit.Table, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading job table %s: %w", path, err)
	}
	files := []string{path}
	if info.IsDir() {
		if files, err = yamlFiles(path); err != nil {
			return nil, err
		}
	}

	table := unit.DefaultTable()
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}
		if table, err = ApplyOverrides(table, data); err != nil {
			return nil, fmt.Errorf("parsing job table file %s: %w", f, err)
		}
	}
	return table, nil
}

// ApplyOverrides decodes one YAML document and returns base with its overrides applied.
// base itself is never modified.
//
// Postcondition: Returns a table that passes Validate, or an error. Unknown job, rank or
// ability keys are errors.
func ApplyOverrides(base *unit.Table, data []byte) (*unit.Table, error) {
	var tf tableFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, err
	}

	table := base
	for key, m := range tf.Ranks {
		r, err := unit.ParseRank(key)
		if err != nil {
			return nil, err
		}
		table = table.WithRankMultiplier(r, m)
	}

	for key, node := range tf.Jobs {
		job, err := unit.ParseJob(key)
		if err != nil {
			return nil, err
		}
		f, ok := table.Formula(job)
		if !ok {
			return nil, fmt.Errorf("%s: %w", key, unit.ErrUnknownJob)
		}
		f.Abilities = append([]unit.AbilityFormula(nil), f.Abilities...)

		o := jobOverride{JobFormula: f}
		if err := node.Decode(&o); err != nil {
			return nil, fmt.Errorf("job %s: %w", key, err)
		}
		for name, an := range o.Abilities {
			i := abilityIndex(o.JobFormula.Abilities, name)
			if i < 0 {
				return nil, fmt.Errorf("job %s: ability %q: %w", key, name, ErrUnknownAbility)
			}
			if err := an.Decode(&o.JobFormula.Abilities[i]); err != nil {
				return nil, fmt.Errorf("job %s: ability %s: %w", key, name, err)
			}
		}
		table = table.WithFormula(job, o.JobFormula)
	}

	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// AbilityKey returns the override key for an ability kind, e.g. "guardians_oath".
func AbilityKey(k unit.AbilityKind) string {
	s := strings.ToLower(k.String())
	s = strings.ReplaceAll(s, "'", "")
	return strings.ReplaceAll(s, " ", "_")
}

func abilityIndex(abilities []unit.AbilityFormula, key string) int {
	key = strings.ToLower(strings.TrimSpace(key))
	for i, a := range abilities {
		if AbilityKey(a.Kind) == key {
			return i
		}
	}
	return -1
}

func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	return paths, nil
}
