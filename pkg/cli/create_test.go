package cli

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/extpoint/pkg/plugins"
)

func TestCreateCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    []string
		wantErr error
	}{
		{
			name: "first extension",
			args: []string{"-point", shapePoint},
			want: []string{"cli.circle\tcircle"},
		},
		{
			name: "all extensions",
			args: []string{"-point", shapePoint, "-all"},
			want: []string{"cli.circle\tcircle", "cli.square"},
		},
		{
			name: "class suffix",
			args: []string{"-point", shapePoint, "-class", "SQUARE"},
			want: []string{"cli.square"},
		},
		{
			name:    "unknown class",
			args:    []string{"-point", shapePoint, "-class", "hexagon"},
			wantErr: plugins.ErrNoClassMatch,
		},
		{
			name:    "unknown point",
			args:    []string{"-point", "shapes.Solid"},
			wantErr: plugins.ErrNoExtensionsCreated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, out := testApp(testConfig(t))

			err := run(app, append([]string{"create"}, tt.args...)...)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, strings.Split(strings.TrimSpace(out.String()), "\n"))
		})
	}
}

func TestCreateCommand_RequiresPoint(t *testing.T) {
	app, _ := testApp(testConfig(t))

	assert.EqualError(t, run(app, "create"), "-point is required")
}
