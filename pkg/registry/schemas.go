package registry

import (
	"fmt"
	"strings"

	"github.com/weftwork/weft/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// ValidateParameters checks a node's parameters against the registered
// schema for its kind. Interpolation templates are string-typed, so schemas
// only constrain shape, not resolved values.
func (r *Registry) ValidateParameters(kind models.NodeKind, parameters map[string]any) error {
	schema, err := r.Schema(kind)
	if err != nil {
		return err
	}

	if parameters == nil {
		parameters = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(parameters)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("failed to validate parameters for kind %s: %w", kind, err)
	}

	if !result.Valid() {
		descriptions := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			descriptions = append(descriptions, desc.String())
		}

		return fmt.Errorf("invalid parameters for kind %s: %s", kind, strings.Join(descriptions, "; "))
	}

	return nil
}
