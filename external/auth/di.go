package auth

import (
	"github.com/samber/do/v2"

	"github.com/Eotel/live-graphic-recorder/internal/auth"
	"github.com/Eotel/live-graphic-recorder/internal/config"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (auth.Resolver, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewJWTResolver(c.JWTSecret), nil
	})
}
