package cmd

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/tvcatalog/config"
	"github.com/s0up4200/tvcatalog/tvdb"
)

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "Scrubs", "Scrubs"},
		{"number", json.Number("8.5"), "8.5"},
		{"int", 76156, "76156"},
		{"list", []any{"Comedy", "Drama", nil}, "Comedy, Drama, "},
		{"bool", true, "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatValue(tt.in))
		})
	}
}

func TestOverrideBool(t *testing.T) {
	newCmd := func() *cobra.Command {
		c := &cobra.Command{Use: "test"}
		c.Flags().Bool("banners", false, "")
		return c
	}

	t.Run("unchanged flag keeps config value", func(t *testing.T) {
		c := newCmd()
		require.NoError(t, c.Flags().Parse(nil))

		target := true
		overrideBool(c, "banners", &target)
		assert.True(t, target)
	})

	t.Run("explicit flag wins", func(t *testing.T) {
		c := newCmd()
		require.NoError(t, c.Flags().Parse([]string{"--banners=false"}))

		target := true
		overrideBool(c, "banners", &target)
		assert.False(t, target)
	})

	t.Run("unknown flag is ignored", func(t *testing.T) {
		c := newCmd()
		target := true
		overrideBool(c, "actors", &target)
		assert.True(t, target)
	})
}

func TestSetupLoggerLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"info", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			setupLogger(config.LoggingConfig{Level: tt.level, Format: "json"})
			assert.Equal(t, tt.want, zerolog.GlobalLevel())
		})
	}
}

func TestPrintSeason(t *testing.T) {
	tree := tvdb.NewTree(time.Now)
	tree.SetAttribute(76156, "seriesName", "Scrubs")
	tree.SetEpisodeField(76156, 1, 2, "episodeName", "My Mentor")
	tree.SetEpisodeField(76156, 1, 1, "episodeName", "My First Day")
	tree.SetEpisodeField(76156, 1, 1, "firstAired", "2001-10-02")

	season, err := tree.Season(76156, 1)
	require.NoError(t, err)

	var out bytes.Buffer
	printSeason(&out, season)

	want := "Season 1 (2 episodes)\n" +
		"• Scrubs - S01E01 - My First Day\n" +
		"  Aired: 2001-10-02\n" +
		"• Scrubs - S01E02 - My Mentor\n"
	assert.Equal(t, want, out.String())
}

func TestPruneOnStart(t *testing.T) {
	assert.False(t, pruneOnStart(cachePruneCmd))
	assert.False(t, pruneOnStart(cacheStatsCmd))
	assert.True(t, pruneOnStart(showCmd))
	assert.True(t, pruneOnStart(findCmd))
}
