package metasummary

import (
	"github.com/samber/do/v2"

	"github.com/Eotel/live-graphic-recorder/internal/config"
	"github.com/Eotel/live-graphic-recorder/internal/generator"
	"github.com/Eotel/live-graphic-recorder/internal/repository"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[repository.Repository](i)
		summarizer := do.MustInvoke[generator.MetaSummarizer](i)
		return NewService(repo, summarizer, cfg.MetaSummaryMinAnalyses), nil
	})
}
