package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_DefaultsWithEnvSecret(t *testing.T) {
	t.Setenv("TACHORA_AUTH_JWT_SECRET", "env-secret-0123456789")
	t.Setenv("TACHORA_KV_BACKEND", "memory")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("期望端口 9090，实际 %d", cfg.Server.Port)
	}
	if cfg.Auth.JWTSecret != "env-secret-0123456789" {
		t.Errorf("环境变量未覆盖 jwt_secret: %q", cfg.Auth.JWTSecret)
	}
	if cfg.KV.Backend != "memory" {
		t.Errorf("期望 kv.backend=memory，实际 %s", cfg.KV.Backend)
	}
	if cfg.Scheduling.PreviewTTL != 30*time.Minute || cfg.Scheduling.AppliedPreviewTTL != time.Hour {
		t.Errorf("预览有效期默认值不符: %v / %v", cfg.Scheduling.PreviewTTL, cfg.Scheduling.AppliedPreviewTTL)
	}
	if cfg.Scheduling.TurnMemoryTTL != 45*time.Minute || cfg.Scheduling.FocusMemoryTTL != 12*time.Hour {
		t.Errorf("记忆有效期默认值不符: %v / %v", cfg.Scheduling.TurnMemoryTTL, cfg.Scheduling.FocusMemoryTTL)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Port: 8080},
			KV:     KVConfig{Backend: "redis"},
			Auth:   AuthConfig{JWTSecret: "0123456789abcdef"},
			Scheduling: SchedulingConfig{
				PreviewTTL: time.Minute, AppliedPreviewTTL: time.Minute,
				TurnMemoryTTL: time.Minute, FocusMemoryTTL: time.Minute,
			},
		}
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("合法配置校验失败: %v", err)
	}

	cases := map[string]func(*Config){
		"jwt_secret":  func(c *Config) { c.Auth.JWTSecret = "short" },
		"port":        func(c *Config) { c.Server.Port = 0 },
		"kv.backend":  func(c *Config) { c.KV.Backend = "etcd" },
		"preview_ttl": func(c *Config) { c.Scheduling.PreviewTTL = 0 },
		"记忆有效期":       func(c *Config) { c.Scheduling.FocusMemoryTTL = -time.Second },
	}
	for want, mutate := range cases {
		cfg := valid()
		mutate(cfg)
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Errorf("%s: 期望错误提及 %q，实际 %v", want, want, err)
		}
	}
}
