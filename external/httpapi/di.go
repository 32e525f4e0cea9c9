package httpapi

import (
	"github.com/samber/do/v2"

	"github.com/Eotel/live-graphic-recorder/internal/auth"
	"github.com/Eotel/live-graphic-recorder/internal/config"
	"github.com/Eotel/live-graphic-recorder/internal/mediastore"
	"github.com/Eotel/live-graphic-recorder/internal/report"
	"github.com/Eotel/live-graphic-recorder/internal/repository"
	"github.com/Eotel/live-graphic-recorder/internal/session"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Server, error) {
		return NewServer(
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[*session.Router](i),
			do.MustInvoke[*report.Engine](i),
			do.MustInvoke[repository.Repository](i),
			do.MustInvoke[mediastore.Store](i),
			do.MustInvoke[auth.Resolver](i),
		), nil
	})
}
