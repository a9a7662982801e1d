package config

import "testing"

func validConfig() Config {
	return Config{
		Environment: "local",
		LogLevel:    "info",
		DataDir:     "data",
		OutputDir:   "output",
		Workers:     1,
		DBMinConns:  1,
		DBMaxConns:  8,
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "missing data dir", mutate: func(c *Config) { c.DataDir = " " }, wantErr: true},
		{name: "missing output dir", mutate: func(c *Config) { c.OutputDir = "" }, wantErr: true},
		{name: "zero workers", mutate: func(c *Config) { c.Workers = 0 }, wantErr: true},
		{name: "min above max", mutate: func(c *Config) { c.DBMinConns = 9 }, wantErr: true},
		{name: "no max conns", mutate: func(c *Config) { c.DBMaxConns = 0; c.DBMinConns = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("INTEGRATOR_DATA_DIR", "/srv/incidents")
	t.Setenv("INTEGRATOR_WORKERS", "4")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != "/srv/incidents" || cfg.Workers != 4 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.OutputDir != "output" {
		t.Fatalf("expected default output dir, got %q", cfg.OutputDir)
	}
	if cfg.PersistenceEnabled() {
		t.Fatalf("expected persistence disabled without DATABASE_URL")
	}
}

func TestCORSAllowedOriginsList(t *testing.T) {
	t.Parallel()

	cfg := &Config{CORSAllowedOrigins: " http://a.test, ,http://b.test,http://a.test "}
	got := cfg.CORSAllowedOriginsList()
	if len(got) != 2 || got[0] != "http://a.test" || got[1] != "http://b.test" {
		t.Fatalf("unexpected origins: %v", got)
	}
}
