package session

import (
	"github.com/samber/do/v2"

	"github.com/Eotel/live-graphic-recorder/internal/config"
	"github.com/Eotel/live-graphic-recorder/internal/generator"
	"github.com/Eotel/live-graphic-recorder/internal/mediastore"
	"github.com/Eotel/live-graphic-recorder/internal/metasummary"
	"github.com/Eotel/live-graphic-recorder/internal/repository"
	"github.com/Eotel/live-graphic-recorder/internal/transcriber"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Hub, error) {
		return NewHub(), nil
	})
	do.Provide(injector, func(i do.Injector) (*Recorder, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[repository.Repository](i)
		stt := do.MustInvoke[transcriber.Transcriber](i)
		media := do.MustInvoke[mediastore.Store](i)
		return NewRecorder(repo, stt, media, cfg.DefaultTranscribeLanguage, RecorderHooks{}), nil
	})
	do.Provide(injector, func(i do.Injector) (*Router, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[repository.Repository](i)
		recorder := do.MustInvoke[*Recorder](i)
		analyzer := do.MustInvoke[generator.Analyzer](i)
		imageGen := do.MustInvoke[generator.ImageGenerator](i)
		meta := do.MustInvoke[*metasummary.Service](i)
		hub := do.MustInvoke[*Hub](i)
		media := do.MustInvoke[mediastore.Store](i)
		return NewRouter(cfg, repo, recorder, analyzer, imageGen, meta, hub, media), nil
	})
}
