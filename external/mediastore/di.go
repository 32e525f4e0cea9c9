package mediastore

import (
	"github.com/samber/do/v2"

	"github.com/Eotel/live-graphic-recorder/internal/config"
	"github.com/Eotel/live-graphic-recorder/internal/mediastore"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (mediastore.Store, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewFSStore(c.MediaDir)
	})
}
