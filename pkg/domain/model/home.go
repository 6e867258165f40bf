package model

import "github.com/secmon-lab/riskmatrix/pkg/domain/model/config"

// WizardStep is one page of the matrix wizard listed on the home page
type WizardStep struct {
	Number      int
	Icon        string
	Title       string
	Description string
	Path        string
}

// WizardSteps returns the pages of the wizard in navigation order
func WizardSteps() []WizardStep {
	return []WizardStep{
		{Number: 1, Icon: "📝", Title: "Entrada da Obra", Description: "Descreva as características da sua obra", Path: "/obra"},
		{Number: 2, Icon: "⚖️", Title: "Seleção de Riscos", Description: "Revise e selecione os riscos aplicáveis", Path: "/riscos"},
		{Number: 3, Icon: "🔧", Title: "Customização", Description: "Ajuste probabilidades e impactos conforme necessário", Path: "/customizacao"},
		{Number: 4, Icon: "📊", Title: "Exportação", Description: "Gere sua matriz de risco em PDF, Excel ou Word", Path: "/exportacao"},
	}
}

// HomeView is everything the home page displays. Building it never mutates state.
type HomeView struct {
	App         config.AppInfo
	Environment EnvironmentInfo
	Steps       []WizardStep
	RiskCount   RiskCount
}
