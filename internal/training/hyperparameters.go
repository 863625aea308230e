package training

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v2"
)

//go:embed hyperparameters.yaml
var hyperparametersYAML []byte

// DefaultHyperparameters returns the baked-in hyperparameter set for the
// ip-insights algorithm. Callers may override individual keys before
// submission.
func DefaultHyperparameters() (map[string]string, error) {
	var doc struct {
		Hyperparameters map[string]string `yaml:"hyperparameters"`
	}

	if err := yaml.Unmarshal(hyperparametersYAML, &doc); err != nil {
		return nil, fmt.Errorf("error parsing default hyperparameters: %w", err)
	}

	params := make(map[string]string, len(doc.Hyperparameters))
	for key, value := range doc.Hyperparameters {
		params[key] = value
	}
	return params, nil
}
