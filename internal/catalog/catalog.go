// Package catalog ships the default challenge items. They back the static
// loader when no database is configured and feed the seed command.
package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"secaware-training-service/internal/domain"
)

//go:embed seed.yaml
var seedYAML []byte

type document struct {
	Items []domain.Item `yaml:"items"`
}

// Load returns the embedded catalog.
func Load() ([]domain.Item, error) {
	return Parse(seedYAML)
}

// Parse decodes and validates a catalog document. Ids must be unique.
func Parse(data []byte) ([]domain.Item, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	seen := make(map[string]struct{}, len(doc.Items))
	for _, it := range doc.Items {
		if err := it.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[it.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate item id %q", it.ID)
		}
		seen[it.ID] = struct{}{}
		if it.Kind == domain.KindPhishing && it.Phishing.RedFlags == nil {
			it.Phishing.RedFlags = []domain.RedFlag{}
		}
	}
	return doc.Items, nil
}
