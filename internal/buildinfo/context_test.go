package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContext_Getters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		ctx         *Context
		wantVersion string
		wantDate    string
	}{
		{"nil context", nil, UnknownValue, UnknownValue},
		{"empty context", &Context{}, UnknownValue, UnknownValue},
		{"populated", &Context{Version: "v1.2.0", BuildDate: "2026-01-02T15:04:05Z"}, "v1.2.0", "2026-01-02T15:04:05Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantVersion, tt.ctx.GetVersion())
			assert.Equal(t, tt.wantDate, tt.ctx.GetBuildDate())
			assert.Equal(t, ProjectName, tt.ctx.GetProject())
		})
	}
}
