package report

import (
	"github.com/samber/do/v2"

	"github.com/Eotel/live-graphic-recorder/internal/config"
	"github.com/Eotel/live-graphic-recorder/internal/mediastore"
	"github.com/Eotel/live-graphic-recorder/internal/repository"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Engine, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[repository.Repository](i)
		media := do.MustInvoke[mediastore.Store](i)
		return NewEngine(repo, media, cfg.ReportMaxMediaBytes), nil
	})
}
