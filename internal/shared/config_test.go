package shared

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/desertthunder/spx/internal/models"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./spx.db" {
			t.Errorf("expected database path ./spx.db, got %s", config.Database.Path)
		}

		if config.Credentials.Spotify.RedirectURI != "http://127.0.0.1:3000/callback" {
			t.Errorf("unexpected redirect uri %s", config.Credentials.Spotify.RedirectURI)
		}

		if config.Credentials.Spotify.ClientID != "your_spotify_client_id" {
			t.Errorf("expected spotify client_id your_spotify_client_id, got %s", config.Credentials.Spotify.ClientID)
		}

		if len(config.Credentials.Spotify.Scopes) == 0 {
			t.Error("expected default scopes")
		}

		if config.AuthTimeout() != 2*time.Minute {
			t.Errorf("expected 2m auth timeout, got %v", config.AuthTimeout())
		}

		if config.SyncInterval() != 2*time.Second {
			t.Errorf("expected 2s sync interval, got %v", config.SyncInterval())
		}

		if config.Auth.TokenStore != "file" {
			t.Errorf("expected file token store, got %s", config.Auth.TokenStore)
		}
	})

	t.Run("Default Profile", func(t *testing.T) {
		profile, ok := DefaultConfig().Profile("example")
		if !ok {
			t.Fatal("expected example profile")
		}
		if profile.Volume == nil || *profile.Volume != 40 {
			t.Errorf("expected volume 40, got %v", profile.Volume)
		}
		if profile.Repeat == nil || *profile.Repeat != models.RepeatContext {
			t.Errorf("expected repeat context, got %v", profile.Repeat)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"
redirect_uri = "http://127.0.0.1:4000/callback"

[auth]
timeout = "30s"
token_store = "sqlite"

[sync]
interval = "bogus"

[profiles.focus]
source_ref = "spotify:playlist:abc"
volume = 130
shuffle = false
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Credentials.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected spotify client_id test_client_id, got %s", config.Credentials.Spotify.ClientID)
		}

		if config.AuthTimeout() != 30*time.Second {
			t.Errorf("expected 30s timeout, got %v", config.AuthTimeout())
		}

		if config.SyncInterval() != 2*time.Second {
			t.Errorf("invalid interval should fall back to 2s, got %v", config.SyncInterval())
		}

		focus, ok := config.Profile("focus")
		if !ok {
			t.Fatal("expected focus profile")
		}
		if focus.SourceRef != "spotify:playlist:abc" {
			t.Errorf("unexpected source ref %s", focus.SourceRef)
		}
		if focus.Repeat != nil {
			t.Errorf("expected repeat to be unset, got %v", *focus.Repeat)
		}
		if focus.Shuffle == nil || *focus.Shuffle {
			t.Error("expected shuffle to be set to false")
		}
	})

	t.Run("LoadConfig Invalid TOML", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		os.WriteFile(configPath, []byte("[credentials\n"), 0644)

		if _, err := LoadConfig(configPath); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("ExpandHome", func(t *testing.T) {
		home, err := os.UserHomeDir()
		if err != nil {
			t.Skip("no home directory")
		}
		if got := ExpandHome("~/.spx/credentials.json"); got != filepath.Join(home, ".spx", "credentials.json") {
			t.Errorf("unexpected expansion %s", got)
		}
		if got := ExpandHome("/abs/path"); got != "/abs/path" {
			t.Errorf("absolute path should be unchanged, got %s", got)
		}
	})
}
