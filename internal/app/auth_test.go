package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
)

func TestSetEnvValueKeepsOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("GOOGLE_CLIENT_ID=cid\nREFRESH_TOKEN=old\n"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := setEnvValue(path, refreshTokenEnvKey, "1//new-token"); err != nil {
		t.Fatalf("setEnvValue: %v", err)
	}
	env, err := godotenv.Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if env["GOOGLE_CLIENT_ID"] != "cid" || env["REFRESH_TOKEN"] != "1//new-token" {
		t.Fatalf("unexpected env %v", env)
	}
}

func TestSetEnvValueCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := setEnvValue(path, refreshTokenEnvKey, "rt"); err != nil {
		t.Fatalf("setEnvValue: %v", err)
	}
	env, err := godotenv.Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(env) != 1 || env["REFRESH_TOKEN"] != "rt" {
		t.Fatalf("unexpected env %v", env)
	}
}

func TestAuthCommandsRequireOAuthClient(t *testing.T) {
	cfg, _, dir := setup(t)
	cfg.GoogleClientID = "cid"
	cfg.GoogleClientSecret = ""
	cfg.RedirectURI = "http://127.0.0.1:0/callback"
	for _, args := range [][]string{{"auth", "--env-file", filepath.Join(dir, ".env")}, {"auth-url"}} {
		if code := Execute(context.Background(), cfg, args); code != 1 {
			t.Fatalf("%v: expected exit 1, got %d", args, code)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, ".env")); !os.IsNotExist(err) {
		t.Fatalf("expected no env file to be written: %v", err)
	}

	cfg.GoogleClientSecret = "secret"
	if code := Execute(context.Background(), cfg, []string{"auth-url"}); code != 0 {
		t.Fatalf("auth-url: expected exit 0, got %d", code)
	}
}
