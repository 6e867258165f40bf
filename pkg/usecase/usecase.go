package usecase

import (
	"github.com/secmon-lab/riskmatrix/pkg/domain/interfaces"
	"github.com/secmon-lab/riskmatrix/pkg/domain/model"
	"github.com/secmon-lab/riskmatrix/pkg/domain/model/config"
	"github.com/secmon-lab/riskmatrix/pkg/usecase/seed"
	"github.com/secmon-lab/riskmatrix/pkg/utils/metrics"
)

type UseCases struct {
	matrix  *config.MatrixConfig
	metrics *metrics.Metrics
	seed    *seed.Set

	Bootstrap *BootstrapUseCase
	App       *AppUseCase
	Risk      *RiskUseCase
}

type Option func(*UseCases)

func WithMatrixConfig(cfg *config.MatrixConfig) Option {
	return func(uc *UseCases) {
		uc.matrix = cfg
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(uc *UseCases) {
		uc.metrics = m
	}
}

// WithSeed replaces the embedded seed set
func WithSeed(s *seed.Set) Option {
	return func(uc *UseCases) {
		uc.seed = s
	}
}

func New(settings *model.Settings, stores interfaces.StoreFactory, opts ...Option) *UseCases {
	uc := &UseCases{}

	for _, opt := range opts {
		opt(uc)
	}

	if uc.matrix == nil {
		uc.matrix = config.DefaultMatrixConfig()
	}
	if uc.seed == nil {
		// A nil set makes LoadSampleData fail with a bootstrap error
		uc.seed, _ = seed.Default()
	}

	uc.Bootstrap = NewBootstrapUseCase(settings, stores, uc.seed)
	uc.App = NewAppUseCase(settings, uc.Bootstrap, uc.matrix, uc.metrics)
	uc.Risk = NewRiskUseCase(uc.App, uc.matrix)

	return uc
}
