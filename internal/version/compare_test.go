package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/rxtech-lab/argo-quant/pkg/errors"
)

func TestCheckCompatibility(t *testing.T) {
	tests := []struct {
		name     string
		engine   string
		strategy string
		wantErr  bool
		wantCode errors.ErrorCode
	}{
		{name: "exact match", engine: "1.2.0", strategy: "1.2.0", wantErr: false},
		{name: "patch differs", engine: "1.2.1", strategy: "1.2.0", wantErr: false},
		{name: "v prefix handled", engine: "v1.2.0", strategy: "1.2.3", wantErr: false},
		{name: "minor differs", engine: "1.3.0", strategy: "1.2.0", wantErr: true, wantCode: errors.ErrCodeVersionMismatch},
		{name: "major differs", engine: "2.0.0", strategy: "1.2.0", wantErr: true, wantCode: errors.ErrCodeVersionMismatch},
		{name: "engine dev build skips check", engine: "main", strategy: "1.2.0", wantErr: false},
		{name: "strategy dev build skips check", engine: "1.2.0", strategy: "main", wantErr: false},
		{name: "garbage engine version", engine: "not-a-version", strategy: "1.2.0", wantErr: true, wantCode: errors.ErrCodeInvalidVersion},
		{name: "garbage strategy version", engine: "1.2.0", strategy: "nope", wantErr: true, wantCode: errors.ErrCodeInvalidVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckCompatibility(tt.engine, tt.strategy)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.wantCode))
		})
	}
}
