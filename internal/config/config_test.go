package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
port: "8080"
databaseURL: "postgres://localhost/reviewbase"
redisAddr: "localhost:6379"
jwtSecret: "secret"
tokenTTL: "30m"
mailerDriver: "log"
signupRateLimitPerMinute: 20
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("port = %q", cfg.Port)
	}
	if cfg.SignupRateLimitPerMinute != 20 {
		t.Fatalf("signup limit = %d", cfg.SignupRateLimitPerMinute)
	}
	ttl, err := ParseTTL(cfg.TokenTTL)
	if err != nil {
		t.Fatalf("parse ttl: %v", err)
	}
	if ttl.Minutes() != 30 {
		t.Fatalf("ttl = %v", ttl)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, `
port: "8080"
databaseURL: "postgres://localhost/reviewbase"
redisAddr: "localhost:6379"
jwtSecret: "from-file"
`)
	t.Setenv("JWT_SECRET", "from-env")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.JWTSecret != "from-env" {
		t.Fatalf("jwtSecret = %q, want env override", cfg.JWTSecret)
	}
}

func TestLoadRejectsIncomplete(t *testing.T) {
	cases := map[string]string{
		"missing port": `
databaseURL: "postgres://localhost/reviewbase"
redisAddr: "localhost:6379"
jwtSecret: "secret"
`,
		"missing jwt secret": `
port: "8080"
databaseURL: "postgres://localhost/reviewbase"
redisAddr: "localhost:6379"
`,
		"amqp mailer without url": `
port: "8080"
databaseURL: "postgres://localhost/reviewbase"
redisAddr: "localhost:6379"
jwtSecret: "secret"
mailerDriver: "amqp"
`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
