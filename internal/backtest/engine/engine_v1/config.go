package engine

import (
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/rxtech-lab/argo-quant/internal/types"
	"github.com/rxtech-lab/argo-quant/pkg/errors"
	"gopkg.in/yaml.v2"
)

// ParseConfig parses and validates a BacktestConfig from YAML content.
// Omitted execution fields fall back to the neutral defaults.
func ParseConfig(content []byte) (types.BacktestConfig, error) {
	var config types.BacktestConfig

	if err := yaml.Unmarshal(content, &config); err != nil {
		return types.BacktestConfig{}, errors.Wrap(errors.ErrCodeInvalidConfiguration,
			"failed to parse backtest config YAML", err)
	}

	if config.Tactics.Sizing.Mode == "" {
		config.Tactics.Sizing = types.EntrySizing{Mode: types.SizingModePercent, Value: 100}
	}

	if config.Leverage == 0 {
		config.Leverage = 1
	}

	if config.MarginMode == "" {
		config.MarginMode = types.MarginModeIsolated
	}

	if config.MaxOpenPositions == 0 {
		config.MaxOpenPositions = 1
	}

	if err := config.Validate(); err != nil {
		return types.BacktestConfig{}, err
	}

	return config, nil
}

// GenerateConfigSchema generates the JSON schema for BacktestConfig so
// editors can validate and autocomplete config files.
func GenerateConfigSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}
			if strings.HasPrefix(t.String(), "optional.Option[float64]") {
				return &jsonschema.Schema{
					Type: "number",
				}
			}
			if strings.HasPrefix(t.String(), "optional.Option[int]") {
				return &jsonschema.Schema{
					Type: "integer",
				}
			}
			return nil
		},
	}

	schema := reflector.Reflect(&types.BacktestConfig{})

	schema.Title = "backtest-config"
	schema.Description = "Configuration schema for the v1 backtest engine"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema
}
