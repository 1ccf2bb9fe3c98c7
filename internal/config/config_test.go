package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Game.QuestionsPerRound)
	assert.Equal(t, int64(3), cfg.Game.CorrectScore)
	assert.Equal(t, int64(-2), cfg.Game.SkipScore)
	assert.Equal(t, "18:00", cfg.Schedule.Start)
	assert.Equal(t, "23:59", cfg.Schedule.End)
	assert.False(t, cfg.Schedule.RestoreOnStart)
	assert.Equal(t, DriverFile, cfg.Storage.Driver)
	assert.Equal(t, 10*time.Second, cfg.Bot.PollTimeout)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	content := `
game:
  questions_per_round: 5
  correct_score: 4
schedule:
  start: "19:30"
  timezone: UTC
storage:
  driver: sqlite
whitelist:
  chats: [100, 200]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
	t.Setenv("GAME_SKIP_SCORE", "-1")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Game.QuestionsPerRound)
	assert.Equal(t, int64(4), cfg.Game.CorrectScore)
	assert.Equal(t, int64(-1), cfg.Game.SkipScore)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.True(t, cfg.IsChatAllowed(100))
	assert.False(t, cfg.IsChatAllowed(300))

	w, err := cfg.Schedule.Window()
	require.NoError(t, err)
	assert.Equal(t, 19, w.Start.Hour)
	assert.Equal(t, 30, w.Start.Minute)
	assert.Equal(t, time.UTC, w.Location)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Game:     GameConfig{QuestionsPerRound: 3},
			Schedule: ScheduleConfig{Start: "18:00", End: "23:59"},
			Storage:  StorageConfig{Driver: DriverFile},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"zero questions", func(c *Config) { c.Game.QuestionsPerRound = 0 }, true},
		{"bad start", func(c *Config) { c.Schedule.Start = "6pm" }, true},
		{"bad timezone", func(c *Config) { c.Schedule.Timezone = "Mars/Olympus" }, true},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mongo" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsChatAllowed_EmptyWhitelist(t *testing.T) {
	cfg := &Config{}
	assert.True(t, cfg.IsChatAllowed(12345))
}
