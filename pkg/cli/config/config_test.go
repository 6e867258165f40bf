package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskmatrix/pkg/cli/config"
	"github.com/secmon-lab/riskmatrix/pkg/domain/types"
)

const validConfig = `
[app]
name = "Matriz de Risco - Obra Teste"
contact = "obras@example.com"

[[probability]]
id = "p1"
name = "Muito baixa"
score = 1

[[probability]]
id = "p2"
name = "Baixa"
score = 2

[[probability]]
id = "p3"
name = "Média"
score = 3

[[probability]]
id = "p4"
name = "Alta"
score = 4

[[probability]]
id = "p5"
name = "Muito alta"
score = 5

[[severity]]
id = "low"
name = "Baixo"
max_score = 3
color = "#38A169"

[[severity]]
id = "medium"
name = "Médio"
max_score = 8
color = "#D69E2E"

[[severity]]
id = "high"
name = "Alto"
max_score = 15
color = "#DD6B20"

[[severity]]
id = "critical"
name = "Crítico"
max_score = 25
color = "#E53E3E"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	gt.NoError(t, os.WriteFile(path, []byte(content), 0o600)).Required()
	return path
}

func TestLoadAppConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name:    "valid configuration",
			content: validConfig,
		},
		{
			name:    "empty file uses defaults",
			content: "",
		},
		{
			name:    "invalid TOML",
			content: "[[probability]\nid=",
			wantErr: config.ErrInvalidConfig,
		},
		{
			name: "incomplete axis",
			content: `
[[impact]]
id = "minor"
name = "Menor"
score = 1
`,
			wantErr: config.ErrInvalidConfig,
		},
		{
			name: "score out of range",
			content: `
[[severity]]
id = "low"
name = "Baixo"
max_score = 0
`,
			wantErr: config.ErrInvalidScore,
		},
		{
			name: "severity bands do not cover the maximum score",
			content: `
[[severity]]
id = "low"
name = "Baixo"
max_score = 10

[[severity]]
id = "high"
name = "Alto"
max_score = 20
`,
			wantErr: config.ErrInvalidScore,
		},
		{
			name: "duplicate severity",
			content: `
[[severity]]
id = "low"
name = "Baixo"
max_score = 10

[[severity]]
id = "low"
name = "Baixo 2"
max_score = 25
`,
			wantErr: config.ErrDuplicateID,
		},
		{
			name: "missing severity name",
			content: `
[[severity]]
id = "critical"
max_score = 25
`,
			wantErr: config.ErrMissingName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.LoadAppConfiguration(writeConfig(t, tt.content))
			if tt.wantErr != nil {
				gt.Value(t, err).NotNil()
				gt.Bool(t, errors.Is(err, tt.wantErr)).True()
				return
			}
			gt.NoError(t, err).Required()
			gt.Value(t, cfg).NotNil()
		})
	}
}

func TestLoadAppConfiguration_NotFound(t *testing.T) {
	_, err := config.LoadAppConfiguration(filepath.Join(t.TempDir(), "missing.toml"))
	gt.Error(t, err).Is(config.ErrConfigNotFound)
}

func TestAppConfig_ToDomainMatrixConfig(t *testing.T) {
	cfg, err := config.LoadAppConfiguration(writeConfig(t, validConfig))
	gt.NoError(t, err).Required()

	matrix := cfg.ToDomainMatrixConfig()
	gt.Value(t, matrix.App.Name).Equal("Matriz de Risco - Obra Teste")
	gt.Value(t, matrix.App.Contact).Equal("obras@example.com")
	// Fields not given keep the built-in values
	gt.Value(t, matrix.App.Organization).Equal("Centro de Engenharia e Arquitetura")

	gt.Array(t, matrix.Probability).Length(5)
	gt.Value(t, matrix.ProbabilityName(5)).Equal("Muito alta")
	gt.Array(t, matrix.Impact).Length(5)
	gt.Value(t, matrix.ImpactName(5)).Equal("Catastrófico")

	gt.Value(t, matrix.Classify(1, 3).ID).Equal(types.SeverityLow)
	gt.Value(t, matrix.Classify(2, 4).ID).Equal(types.SeverityMedium)
	gt.Value(t, matrix.Classify(4, 4).ID).Equal(types.SeverityCritical)
}

func TestAppConfig_Configure(t *testing.T) {
	t.Run("built-in matrix without file", func(t *testing.T) {
		matrix, err := config.NewAppConfigForTest("").Configure()
		gt.NoError(t, err).Required()
		gt.Value(t, matrix.App.Name).Equal("Matriz de Risco SESP-PR")
	})

	t.Run("file", func(t *testing.T) {
		matrix, err := config.NewAppConfigForTest(writeConfig(t, validConfig)).Configure()
		gt.NoError(t, err).Required()
		gt.Value(t, matrix.App.Name).Equal("Matriz de Risco - Obra Teste")
	})
}
