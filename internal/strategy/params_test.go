package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/rxtech-lab/argo-quant/pkg/errors"
)

func TestResolveParamsDefaults(t *testing.T) {
	specs := []ParamSpec{
		{Name: "period", Type: ParamInt, Default: 14},
		{Name: "threshold", Type: ParamFloat, Default: 30.0},
		{Name: "enabled", Type: ParamBool, Default: true},
	}

	resolved, err := ResolveParams(specs, nil)
	require.NoError(t, err)
	assert.Equal(t, 14, IntParam(resolved, "period"))
	assert.Equal(t, 30.0, FloatParam(resolved, "threshold"))
	assert.True(t, BoolParam(resolved, "enabled"))
}

func TestResolveParamsUnknownKey(t *testing.T) {
	specs := []ParamSpec{{Name: "period", Type: ParamInt, Default: 14}}

	_, err := ResolveParams(specs, map[string]any{"perod": 10})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func TestResolveParamsMissingRequired(t *testing.T) {
	specs := []ParamSpec{{Name: "symbol", Type: ParamString, Required: true}}

	_, err := ResolveParams(specs, map[string]any{})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMissingParameter))
}

func TestResolveParamsNumericCoercion(t *testing.T) {
	specs := []ParamSpec{
		{Name: "period", Type: ParamInt, Default: 14},
		{Name: "threshold", Type: ParamFloat, Default: 30.0},
	}

	// YAML decodes whole numbers as int and may hand floats for int fields.
	resolved, err := ResolveParams(specs, map[string]any{
		"period":    float64(20),
		"threshold": 25,
	})
	require.NoError(t, err)
	assert.Equal(t, 20, IntParam(resolved, "period"))
	assert.Equal(t, 25.0, FloatParam(resolved, "threshold"))
}

func TestResolveParamsTypeMismatch(t *testing.T) {
	specs := []ParamSpec{{Name: "period", Type: ParamInt, Default: 14}}

	_, err := ResolveParams(specs, map[string]any{"period": "fourteen"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidType))

	_, err = ResolveParams(specs, map[string]any{"period": 14.5})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidType))
}
