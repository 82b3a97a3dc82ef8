// Package config loads the application-level configuration: Reddit API
// endpoints, the credentials of the script app, the subreddit to monitor and
// the post store selection.
package config

import (
	"fmt"
	"strconv"
	"time"

	pkgconfig "reddit-watch/internal/pkg/config"
)

// AppVersion is the version reported in the User-Agent identity string.
const AppVersion = "v0.1.0"

// AppConfig holds the externally owned, read-only application settings.
type AppConfig struct {
	// BaseAddress is the Reddit data API base address.
	BaseAddress string

	// AuthorizationURL is the OAuth2 token endpoint.
	AuthorizationURL string

	// Subreddit is the subreddit this application monitors and reports on.
	Subreddit string

	// AppName is the application name as registered with Reddit.
	AppName string

	// Username and Password belong to the Reddit user running the app.
	Username string
	Password string

	// ClientID and ClientSecret identify the registered Reddit app.
	ClientID     string
	ClientSecret string

	// StartTime is the optional fixed inclusion cutoff. Posts created before
	// it are never processed. The zero value means "use process start time".
	StartTime time.Time

	// PostsStore selects the repository backend: "memory" or "postgres".
	PostsStore string
}

// LoadAppConfig reads the application configuration from the environment.
// Endpoints and the store selection have sensible defaults; credentials and
// the subreddit name are required.
//
// Environment variables:
//   - REDDIT_API_BASE_ADDRESS (default: "https://oauth.reddit.com")
//   - REDDIT_API_AUTHORIZATION_URL (default: "https://www.reddit.com/api/v1/access_token")
//   - SUBREDDIT_NAME (required)
//   - APP_NAME (default: "reddit-watch")
//   - REDDIT_USERNAME, REDDIT_PASSWORD (required)
//   - REDDIT_APP_CLIENT_ID, REDDIT_APP_CLIENT_SECRET (required)
//   - APP_START_TIME (optional, unix seconds)
//   - POSTS_STORE ("memory" or "postgres", default: "memory")
func LoadAppConfig() (*AppConfig, error) {
	cfg := &AppConfig{
		BaseAddress:      pkgconfig.LoadEnvString("REDDIT_API_BASE_ADDRESS", "https://oauth.reddit.com"),
		AuthorizationURL: pkgconfig.LoadEnvString("REDDIT_API_AUTHORIZATION_URL", "https://www.reddit.com/api/v1/access_token"),
		Subreddit:        pkgconfig.LoadEnvString("SUBREDDIT_NAME", ""),
		AppName:          pkgconfig.LoadEnvString("APP_NAME", "reddit-watch"),
		Username:         pkgconfig.LoadEnvString("REDDIT_USERNAME", ""),
		Password:         pkgconfig.LoadEnvString("REDDIT_PASSWORD", ""),
		ClientID:         pkgconfig.LoadEnvString("REDDIT_APP_CLIENT_ID", ""),
		ClientSecret:     pkgconfig.LoadEnvString("REDDIT_APP_CLIENT_SECRET", ""),
		PostsStore:       pkgconfig.LoadEnvString("POSTS_STORE", "memory"),
	}

	if raw := pkgconfig.LoadEnvString("APP_START_TIME", ""); raw != "" {
		seconds, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid APP_START_TIME %q: %w", raw, err)
		}
		cfg.StartTime = time.Unix(seconds, 0).UTC()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required settings are present and that the store
// selection is one of the supported backends.
func (c *AppConfig) Validate() error {
	var errs []error

	required := []struct {
		name  string
		value string
	}{
		{"SUBREDDIT_NAME", c.Subreddit},
		{"REDDIT_USERNAME", c.Username},
		{"REDDIT_PASSWORD", c.Password},
		{"REDDIT_APP_CLIENT_ID", c.ClientID},
		{"REDDIT_APP_CLIENT_SECRET", c.ClientSecret},
	}
	for _, field := range required {
		if field.value == "" {
			errs = append(errs, fmt.Errorf("%s must be set", field.name))
		}
	}

	if c.PostsStore != "memory" && c.PostsStore != "postgres" {
		errs = append(errs, fmt.Errorf("POSTS_STORE must be 'memory' or 'postgres', got %q", c.PostsStore))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}
	return nil
}
