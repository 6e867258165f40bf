package config

import (
	"github.com/secmon-lab/riskmatrix/pkg/domain/types"
)

// AppInfo holds the identity of the application shown on every page
type AppInfo struct {
	Name         string
	Version      string
	Icon         string
	Organization string
	Department   string
	Contact      string
}

// Level represents one step of the probability or impact axis
type Level struct {
	ID          types.LevelID
	Name        string
	Description string
	Score       int
}

// SeverityLevel classifies every score up to MaxScore (inclusive)
type SeverityLevel struct {
	ID       types.Severity
	Name     string
	MaxScore int
	Color    string
}

// MatrixConfig holds the probability x impact scales and the severity bands
type MatrixConfig struct {
	App         AppInfo
	Probability []Level
	Impact      []Level
	Severity    []SeverityLevel
}

// DefaultMatrixConfig returns the 5x5 matrix used when no configuration file is given
func DefaultMatrixConfig() *MatrixConfig {
	return &MatrixConfig{
		App: AppInfo{
			Name:         "Matriz de Risco SESP-PR",
			Version:      "1.0.0",
			Icon:         "🏗️",
			Organization: "Centro de Engenharia e Arquitetura",
			Department:   "Secretaria de Segurança Pública do Paraná",
			Contact:      "engenharia@sesp.pr.gov.br",
		},
		Probability: []Level{
			{ID: "rare", Name: "Rara", Score: 1},
			{ID: "unlikely", Name: "Improvável", Score: 2},
			{ID: "possible", Name: "Possível", Score: 3},
			{ID: "likely", Name: "Provável", Score: 4},
			{ID: "almost-certain", Name: "Quase certa", Score: 5},
		},
		Impact: []Level{
			{ID: "negligible", Name: "Desprezível", Score: 1},
			{ID: "minor", Name: "Menor", Score: 2},
			{ID: "moderate", Name: "Moderado", Score: 3},
			{ID: "major", Name: "Maior", Score: 4},
			{ID: "catastrophic", Name: "Catastrófico", Score: 5},
		},
		Severity: []SeverityLevel{
			{ID: types.SeverityLow, Name: "Baixo", MaxScore: 4, Color: "#38A169"},
			{ID: types.SeverityMedium, Name: "Médio", MaxScore: 9, Color: "#D69E2E"},
			{ID: types.SeverityHigh, Name: "Alto", MaxScore: 16, Color: "#DD6B20"},
			{ID: types.SeverityCritical, Name: "Crítico", MaxScore: types.MaxScore * types.MaxScore, Color: "#E53E3E"},
		},
	}
}

// Classify returns the severity band of probability x impact.
// Bands are expected in ascending MaxScore order; scores above the last band fall into it.
func (c *MatrixConfig) Classify(p types.Probability, i types.Impact) SeverityLevel {
	score := p.Int() * i.Int()
	for _, band := range c.Severity {
		if score <= band.MaxScore {
			return band
		}
	}
	if len(c.Severity) == 0 {
		return SeverityLevel{ID: types.SeverityCritical, MaxScore: score}
	}
	return c.Severity[len(c.Severity)-1]
}

// ProbabilityName returns the configured label of a probability score
func (c *MatrixConfig) ProbabilityName(p types.Probability) string {
	return levelName(c.Probability, p.Int())
}

// ImpactName returns the configured label of an impact score
func (c *MatrixConfig) ImpactName(i types.Impact) string {
	return levelName(c.Impact, i.Int())
}

func levelName(levels []Level, score int) string {
	for _, l := range levels {
		if l.Score == score {
			return l.Name
		}
	}
	return ""
}
