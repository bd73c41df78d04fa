package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"

	"github.com/joho/godotenv"

	"playlistomatic/internal/config"
	"playlistomatic/internal/integrations/youtube"
	"playlistomatic/internal/storage/atomicfile"
)

const refreshTokenEnvKey = "REFRESH_TOKEN"

func requireOAuthClient(cfg config.Config) error {
	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" || cfg.RedirectURI == "" {
		return errors.New("google_client_id, google_client_secret and redirect_uri are required")
	}
	return nil
}

// runAuth walks the user through Google consent and stores the refresh
// token in envPath.
func runAuth(ctx context.Context, cfg config.Config, envPath string) error {
	if err := requireOAuthClient(cfg); err != nil {
		return err
	}
	ln, err := youtube.ListenRedirect(cfg)
	if err != nil {
		return err
	}
	printInfo("Please visit the following URL to authorize the application:")
	printInfo(youtube.AuthURL(cfg))

	token, err := youtube.ReceiveRefreshToken(ctx, cfg, ln)
	if err != nil {
		return fmt.Errorf("obtain refresh token: %w", err)
	}
	if err := setEnvValue(envPath, refreshTokenEnvKey, token); err != nil {
		printError(fmt.Sprintf("Could not update %s: %v", envPath, err))
		printInfo(fmt.Sprintf("Add this line to it manually: %s=%q", refreshTokenEnvKey, token))
		return err
	}
	log.Printf("youtube auth refresh token saved path=%s", envPath)
	printInfo(fmt.Sprintf("Refresh token saved to %s", envPath))
	return nil
}

// setEnvValue sets key in the dotenv file at path, creating it if missing.
// Other keys are kept; comments are not.
func setEnvValue(path, key, value string) error {
	env, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("read %s: %w", path, err)
		}
		env = map[string]string{}
	}
	env[key] = value
	content, err := godotenv.Marshal(env)
	if err != nil {
		return err
	}
	return atomicfile.WriteFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, content+"\n")
		return err
	})
}
