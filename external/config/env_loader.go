package config

import (
	"fmt"

	internalconfig "github.com/Eotel/live-graphic-recorder/internal/config"
	"github.com/caarlos0/env/v11"
)

type envConfig struct {
	Env        string `env:"ENV" envDefault:"production"`
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	DatabaseURL string `env:"DATABASE_URL,required"`
	JWTSecret   string `env:"JWT_SECRET,required"`
	MediaDir    string `env:"MEDIA_DIR,required"`

	DefaultTranscribeLanguage  string `env:"DEFAULT_TRANSCRIBE_LANGUAGE,required"`
	GoogleCloudProjectID       string `env:"GOOGLE_CLOUD_PROJECT_ID,required"`
	GoogleCloudCredentialsJSON string `env:"GOOGLE_CLOUD_CREDENTIALS_JSON,required"`
	GoogleCloudSpeechLocation  string `env:"GOOGLE_CLOUD_SPEECH_LOCATION" envDefault:"asia-northeast1"`
	GoogleCloudSpeechModel     string `env:"GOOGLE_CLOUD_SPEECH_MODEL" envDefault:"chirp_3"`

	GeneratorBaseURL        string `env:"GENERATOR_BASE_URL,required"`
	GeneratorAPIKey         string `env:"GENERATOR_API_KEY"`
	DefaultImageModelPreset string `env:"DEFAULT_IMAGE_MODEL_PRESET" envDefault:"standard"`

	MaxPendingAudioChunks     int `env:"MAX_PENDING_AUDIO_CHUNKS" envDefault:"64"`
	MaxPendingAudioChunkBytes int `env:"MAX_PENDING_AUDIO_CHUNK_BYTES" envDefault:"65536"`
	MaxPendingAudioTotalBytes int `env:"MAX_PENDING_AUDIO_TOTAL_BYTES" envDefault:"2097152"`

	AnalysisMinSegments    int `env:"ANALYSIS_MIN_SEGMENTS" envDefault:"5"`
	MetaSummaryMinAnalyses int `env:"META_SUMMARY_MIN_ANALYSES" envDefault:"3"`

	ReportMaxMediaBytes int64 `env:"REPORT_MAX_MEDIA_BYTES" envDefault:"52428800"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                        raw.Env,
		ListenAddr:                 raw.ListenAddr,
		DatabaseURL:                raw.DatabaseURL,
		JWTSecret:                  raw.JWTSecret,
		MediaDir:                   raw.MediaDir,
		DefaultTranscribeLanguage:  raw.DefaultTranscribeLanguage,
		GoogleCloudProjectID:       raw.GoogleCloudProjectID,
		GoogleCloudCredentialsJSON: raw.GoogleCloudCredentialsJSON,
		GoogleCloudSpeechLocation:  raw.GoogleCloudSpeechLocation,
		GoogleCloudSpeechModel:     raw.GoogleCloudSpeechModel,
		GeneratorBaseURL:           raw.GeneratorBaseURL,
		GeneratorAPIKey:            raw.GeneratorAPIKey,
		DefaultImageModelPreset:    raw.DefaultImageModelPreset,
		MaxPendingAudioChunks:      raw.MaxPendingAudioChunks,
		MaxPendingAudioChunkBytes:  raw.MaxPendingAudioChunkBytes,
		MaxPendingAudioTotalBytes:  raw.MaxPendingAudioTotalBytes,
		AnalysisMinSegments:        raw.AnalysisMinSegments,
		MetaSummaryMinAnalyses:     raw.MetaSummaryMinAnalyses,
		ReportMaxMediaBytes:        raw.ReportMaxMediaBytes,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
