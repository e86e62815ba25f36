package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// chdirWithConfig writes config.yaml into a temp dir and makes it the working directory.
func chdirWithConfig(t *testing.T, yamlContent string) {
	t.Helper()
	tmpDir := t.TempDir()
	if yamlContent != "" {
		if err := os.WriteFile(filepath.Join(tmpDir, "config.yaml"), []byte(yamlContent), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
	}

	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() {
		os.Chdir(originalDir)
	})
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	chdirWithConfig(t, `
port: "3480"
env: "test"
database:
  host: "db.example.com"
  port: 5432
  user: "testuser"
  database: "testdb"
`)

	os.Unsetenv("PGHOST")
	t.Setenv("PORT", "4480")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("PGPASSWORD", "from-env")

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "4480" {
		t.Errorf("expected Port=4480 (from env), got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Errorf("expected Env=production (from env), got %s", cfg.Env)
	}
	if cfg.Version != "test-version" {
		t.Errorf("expected Version=test-version, got %s", cfg.Version)
	}
	if cfg.Database.Host != "db.example.com" {
		t.Errorf("expected Database.Host=db.example.com (from yaml), got %s", cfg.Database.Host)
	}
	if !strings.Contains(cfg.Database.ConnectionString(), "password=from-env") {
		t.Errorf("expected PGPASSWORD in connection string, got %s", cfg.Database.ConnectionString())
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	chdirWithConfig(t, "")

	if _, err := Load("test-version"); err == nil {
		t.Error("expected error when config.yaml is missing")
	}
}

func TestLoad_RunnerDefaults(t *testing.T) {
	chdirWithConfig(t, `env: "test"`)

	cfg, err := Load("v")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Repository.Driver != RepositoryPostgres {
		t.Errorf("expected default driver postgres, got %q", cfg.Repository.Driver)
	}
	if got := cfg.Runner.ConnectTimeout(); got != 30*time.Second {
		t.Errorf("ConnectTimeout() = %v", got)
	}
	if got := cfg.Runner.CheckTimeout(); got != 5*time.Second {
		t.Errorf("CheckTimeout() = %v", got)
	}
	if got := cfg.Runner.PortProbeTimeout(); got != 3*time.Second {
		t.Errorf("PortProbeTimeout() = %v", got)
	}
	if cfg.Runner.MSSQLEncrypt {
		t.Error("expected mssql encryption off by default")
	}
	if !cfg.Runner.MSSQLTrustServerCertificate {
		t.Error("expected trust server certificate on by default")
	}
	if !cfg.MCP.Enabled {
		t.Error("expected MCP enabled by default")
	}
}

func TestLoad_RunnerFromYAMLAndEnv(t *testing.T) {
	chdirWithConfig(t, `
repository:
  driver: "MySQL"
mysql:
  host: "legacy-db"
runner:
  connect_timeout_seconds: 12
  mssql_encrypt: true
`)
	t.Setenv("RUNNER_CHECK_TIMEOUT_SECONDS", "9")
	t.Setenv("MYSQL_PASSWORD", "s3cret")

	cfg, err := Load("v")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Repository.Driver != RepositoryMySQL {
		t.Errorf("expected driver normalized to mysql, got %q", cfg.Repository.Driver)
	}
	if cfg.MySQL.Host != "legacy-db" || cfg.MySQL.Password != "s3cret" {
		t.Errorf("unexpected mysql config: host=%q password set=%v", cfg.MySQL.Host, cfg.MySQL.Password != "")
	}
	if cfg.Runner.ConnectTimeoutSeconds != 12 {
		t.Errorf("expected connect timeout 12, got %d", cfg.Runner.ConnectTimeoutSeconds)
	}
	if cfg.Runner.CheckTimeoutSeconds != 9 {
		t.Errorf("expected check timeout 9 (from env), got %d", cfg.Runner.CheckTimeoutSeconds)
	}
	if !cfg.Runner.MSSQLEncrypt {
		t.Error("expected mssql_encrypt from yaml")
	}
}

func TestLoad_UnknownDriver(t *testing.T) {
	chdirWithConfig(t, `
repository:
  driver: "mongodb"
`)

	_, err := Load("v")
	if err == nil || !strings.Contains(err.Error(), "unknown repository driver") {
		t.Errorf("expected unknown driver error, got %v", err)
	}
}

func TestLoad_SecretsIgnoredInYAML(t *testing.T) {
	chdirWithConfig(t, `
database:
  password: "leaked"
`)
	os.Unsetenv("PGPASSWORD")
	os.Unsetenv("CHECKPOINT_CREDENTIALS_KEY")

	cfg, err := Load("v")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Database.Password != "" {
		t.Error("database password must only come from PGPASSWORD")
	}
	if cfg.CredentialsKey != "" {
		t.Error("credentials key must only come from the environment")
	}
}

func TestLoadFile_Catalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runner.yaml")
	content := `
repository:
  driver: catalog
  catalog_path: "/etc/checkpoints/catalog.yaml"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFile(path, "v")
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.Repository.Driver != RepositoryCatalog || cfg.Repository.CatalogPath != "/etc/checkpoints/catalog.yaml" {
		t.Errorf("unexpected repository config: %+v", cfg.Repository)
	}
}
