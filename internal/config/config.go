package config

import (
	"fmt"
)

type Config struct {
	Env        string
	ListenAddr string

	DatabaseURL string
	JWTSecret   string
	MediaDir    string

	DefaultTranscribeLanguage  string
	GoogleCloudProjectID       string
	GoogleCloudCredentialsJSON string
	GoogleCloudSpeechLocation  string
	GoogleCloudSpeechModel     string

	GeneratorBaseURL        string
	GeneratorAPIKey         string
	DefaultImageModelPreset string

	MaxPendingAudioChunks     int
	MaxPendingAudioChunkBytes int
	MaxPendingAudioTotalBytes int

	AnalysisMinSegments    int
	MetaSummaryMinAnalyses int

	ReportMaxMediaBytes int64
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	for _, pos := range []struct {
		name  string
		value int
	}{
		{name: "MAX_PENDING_AUDIO_CHUNKS", value: c.MaxPendingAudioChunks},
		{name: "MAX_PENDING_AUDIO_CHUNK_BYTES", value: c.MaxPendingAudioChunkBytes},
		{name: "MAX_PENDING_AUDIO_TOTAL_BYTES", value: c.MaxPendingAudioTotalBytes},
		{name: "ANALYSIS_MIN_SEGMENTS", value: c.AnalysisMinSegments},
		{name: "META_SUMMARY_MIN_ANALYSES", value: c.MetaSummaryMinAnalyses},
	} {
		if pos.value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", pos.name, pos.value)
		}
	}
	if c.ReportMaxMediaBytes <= 0 {
		return fmt.Errorf("REPORT_MAX_MEDIA_BYTES must be positive, got %d", c.ReportMaxMediaBytes)
	}
	if c.MaxPendingAudioChunkBytes > c.MaxPendingAudioTotalBytes {
		return fmt.Errorf("MAX_PENDING_AUDIO_CHUNK_BYTES (%d) must not exceed MAX_PENDING_AUDIO_TOTAL_BYTES (%d)",
			c.MaxPendingAudioChunkBytes, c.MaxPendingAudioTotalBytes)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "DATABASE_URL", value: c.DatabaseURL},
		{name: "JWT_SECRET", value: c.JWTSecret},
		{name: "MEDIA_DIR", value: c.MediaDir},
		{name: "DEFAULT_TRANSCRIBE_LANGUAGE", value: c.DefaultTranscribeLanguage},
		{name: "GOOGLE_CLOUD_PROJECT_ID", value: c.GoogleCloudProjectID},
		{name: "GOOGLE_CLOUD_CREDENTIALS_JSON", value: c.GoogleCloudCredentialsJSON},
		{name: "GENERATOR_BASE_URL", value: c.GeneratorBaseURL},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
