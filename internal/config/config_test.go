package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFrom(envconfig.MapLookuper(map[string]string{}))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/tmp/editkit", cfg.TempDir)
	assert.Equal(t, 0, cfg.FrameWorkers)
	assert.Equal(t, 18.0, cfg.TrimControlWidth)
	assert.Equal(t, time.Second, cfg.TrimMinDuration)
	assert.Equal(t, time.Duration(0), cfg.TrimMaxDuration)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "ffprobe", cfg.FFprobePath)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.S3Enabled())
}

func TestLoad_CustomValues(t *testing.T) {
	cfg, err := LoadFrom(envconfig.MapLookuper(map[string]string{
		"PORT":                  "3000",
		"TEMP_DIR":              "/custom/temp",
		"FRAME_WORKERS":         "4",
		"TRIM_CONTROL_WIDTH":    "24",
		"TRIM_MIN_DURATION":     "3s",
		"TRIM_MAX_DURATION":     "1m",
		"FFMPEG_PATH":           "/usr/local/bin/ffmpeg",
		"FFPROBE_PATH":          "/usr/local/bin/ffprobe",
		"S3_BUCKET":             "my-bucket",
		"S3_REGION":             "us-east-1",
		"S3_ENDPOINT":           "http://localhost:4566",
		"AWS_ACCESS_KEY_ID":     "access-key",
		"AWS_SECRET_ACCESS_KEY": "secret-key",
		"LOG_FORMAT":            "json",
		"LOG_LEVEL":             "debug",
	}))
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "/custom/temp", cfg.TempDir)
	assert.Equal(t, 4, cfg.FrameWorkers)
	assert.Equal(t, "/usr/local/bin/ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "/usr/local/bin/ffprobe", cfg.FFprobePath)
	assert.Equal(t, "my-bucket", cfg.S3Bucket)
	assert.Equal(t, "http://localhost:4566", cfg.S3Endpoint)
	assert.Equal(t, "access-key", cfg.AWSAccessKeyID)
	assert.Equal(t, "secret-key", cfg.AWSSecretAccessKey)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.S3Enabled())

	tc := cfg.Trim()
	assert.Equal(t, 24.0, tc.ControlWidth)
	assert.Equal(t, 3*time.Second, tc.MinimumDuration)
	assert.Equal(t, time.Minute, tc.MaximumDuration)
}

func TestLoad_ProcessEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr error
	}{
		{name: "unparsable port", env: map[string]string{"PORT": "not-a-number"}},
		{name: "unparsable duration", env: map[string]string{"TRIM_MIN_DURATION": "soon"}},
		{name: "port out of range", env: map[string]string{"PORT": "70000"}, wantErr: ErrInvalidConfig},
		{name: "negative workers", env: map[string]string{"FRAME_WORKERS": "-1"}, wantErr: ErrInvalidConfig},
		{name: "unknown log format", env: map[string]string{"LOG_FORMAT": "xml"}, wantErr: ErrInvalidConfig},
		{name: "bucket without region", env: map[string]string{"S3_BUCKET": "b"}, wantErr: ErrInvalidConfig},
		{name: "bad endpoint", env: map[string]string{"S3_ENDPOINT": "not a url"}, wantErr: ErrInvalidConfig},
		{
			name:    "minimum above maximum",
			env:     map[string]string{"TRIM_MIN_DURATION": "10s", "TRIM_MAX_DURATION": "5s"},
			wantErr: ErrTrimDurationRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(envconfig.MapLookuper(tt.env))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestConfig_S3Enabled(t *testing.T) {
	tests := []struct {
		name     string
		bucket   string
		region   string
		expected bool
	}{
		{"both set", "bucket", "region", true},
		{"only bucket", "bucket", "", false},
		{"only region", "", "region", false},
		{"neither set", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{S3Bucket: tt.bucket, S3Region: tt.region}
			assert.Equal(t, tt.expected, cfg.S3Enabled())
		})
	}
}

func TestConfig_StringMasksCredentials(t *testing.T) {
	cfg := &Config{
		Port:               8080,
		TempDir:            "/tmp/test",
		S3Bucket:           "bucket",
		S3Region:           "region",
		AWSAccessKeyID:     "AKIDEXAMPLE",
		AWSSecretAccessKey: "secret-key",
		LogFormat:          "json",
		LogLevel:           "info",
	}

	str := cfg.String()
	assert.Contains(t, str, "8080")
	assert.Contains(t, str, "/tmp/test")
	assert.Contains(t, str, "AWSCredentials: ***")
	assert.NotContains(t, str, "AKIDEXAMPLE")
	assert.NotContains(t, str, "secret-key")

	assert.Contains(t, (&Config{}).String(), "AWSCredentials: <unset>")
}

func TestConfig_JSONOmitsCredentials(t *testing.T) {
	data, err := json.Marshal(&Config{AWSAccessKeyID: "AKIDEXAMPLE", AWSSecretAccessKey: "secret-key"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "AKIDEXAMPLE")
	assert.NotContains(t, string(data), "secret-key")
}

func TestConfig_NewLogger(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		logger := (&Config{LogFormat: "JSON", LogLevel: "info"}).newLogger(&buf)
		logger.Debug("hidden")
		logger.Info("test message", slog.Int("frames", 3))

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "test message", line["msg"])
		assert.Equal(t, 3.0, line["frames"])
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		logger := (&Config{LogFormat: "text", LogLevel: "debug"}).newLogger(&buf)
		logger.Debug("visible")
		assert.Contains(t, buf.String(), "msg=visible")
	})

	assert.NotNil(t, (&Config{}).NewLogger())
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}
