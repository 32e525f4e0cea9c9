package generator

import (
	"github.com/samber/do/v2"

	"github.com/Eotel/live-graphic-recorder/internal/config"
	"github.com/Eotel/live-graphic-recorder/internal/generator"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*HTTPClient, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewHTTPClient(c.GeneratorBaseURL, c.GeneratorAPIKey), nil
	})
	do.Provide(injector, func(i do.Injector) (generator.Analyzer, error) {
		return do.MustInvoke[*HTTPClient](i), nil
	})
	do.Provide(injector, func(i do.Injector) (generator.ImageGenerator, error) {
		return do.MustInvoke[*HTTPClient](i), nil
	})
	do.Provide(injector, func(i do.Injector) (generator.MetaSummarizer, error) {
		return do.MustInvoke[*HTTPClient](i), nil
	})
}
