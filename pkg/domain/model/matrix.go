package model

import (
	"github.com/secmon-lab/riskmatrix/pkg/domain/model/config"
	"github.com/secmon-lab/riskmatrix/pkg/domain/types"
)

// MatrixCell aggregates the entries sharing one probability x impact pair
type MatrixCell struct {
	Probability types.Probability `json:"probability"`
	Impact      types.Impact      `json:"impact"`
	Score       int               `json:"score"`
	Severity    types.Severity    `json:"severity"`
	Color       string            `json:"color"`
	RiskIDs     []types.RiskID    `json:"risk_ids"`
}

// Count returns the number of entries in the cell
func (c *MatrixCell) Count() int {
	return len(c.RiskIDs)
}

// Matrix is the probability x impact grid. Rows are indexed by probability-1, columns by impact-1.
type Matrix struct {
	Cells [types.MaxScore][types.MaxScore]MatrixCell `json:"cells"`
	Total int                                        `json:"total"`
}

// NewMatrix builds the grid from entries, classifying each cell with cfg
func NewMatrix(cfg *config.MatrixConfig, entries []*RiskEntry) *Matrix {
	m := &Matrix{}
	for p := types.MinScore; p <= types.MaxScore; p++ {
		for i := types.MinScore; i <= types.MaxScore; i++ {
			band := cfg.Classify(types.Probability(p), types.Impact(i))
			m.Cells[p-1][i-1] = MatrixCell{
				Probability: types.Probability(p),
				Impact:      types.Impact(i),
				Score:       p * i,
				Severity:    band.ID,
				Color:       band.Color,
				RiskIDs:     []types.RiskID{},
			}
		}
	}

	for _, e := range entries {
		if e.Probability.Validate() != nil || e.Impact.Validate() != nil {
			continue
		}
		cell := &m.Cells[e.Probability.Int()-1][e.Impact.Int()-1]
		cell.RiskIDs = append(cell.RiskIDs, e.ID)
		m.Total++
	}

	return m
}

// Cell returns the cell of probability p and impact i
func (m *Matrix) Cell(p types.Probability, i types.Impact) *MatrixCell {
	return &m.Cells[p.Int()-1][i.Int()-1]
}

// CountBySeverity returns the number of entries per severity
func (m *Matrix) CountBySeverity() map[types.Severity]int {
	counts := make(map[types.Severity]int, len(types.AllSeverities()))
	for _, s := range types.AllSeverities() {
		counts[s] = 0
	}
	for p := range m.Cells {
		for i := range m.Cells[p] {
			cell := &m.Cells[p][i]
			counts[cell.Severity] += cell.Count()
		}
	}
	return counts
}
