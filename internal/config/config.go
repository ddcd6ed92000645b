// Package config parses and validates Reed.toml, the project-level
// configuration file read at startup.
package config

import (
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/vvoss-dev/reedcms/internal/reedstream"
)

// ReedConfig is the parsed, validated contents of Reed.toml.
type ReedConfig struct {
	Project ProjectConfig
	Server  ServerConfig
}

// ProjectConfig is the [project] section.
type ProjectConfig struct {
	Name        string
	URL         string
	Description string
	Languages   LanguageConfig
	Routing     RoutingConfig
	Templates   TemplateConfig
	Assets      AssetConfig
	Build       BuildConfig
}

// LanguageConfig is [project.languages].
type LanguageConfig struct {
	Default       string
	Available     []string
	FallbackChain bool
}

// RoutingConfig is [project.routing].
type RoutingConfig struct {
	URLPrefix     bool
	TrailingSlash bool
}

// TemplateConfig is [project.templates].
type TemplateConfig struct {
	AutoReload     bool
	CacheTemplates bool
}

// AssetConfig is [project.assets].
type AssetConfig struct {
	CSSMinify bool
	CSSBundle bool
}

// BuildConfig is [project.build].
type BuildConfig struct {
	CleanBefore bool
	Parallel    bool
}

// ServerConfig is [server].
type ServerConfig struct {
	Workers int
	Dev     ServerEnvironmentConfig
	Prod    ServerEnvironmentConfig
}

// ServerEnvironmentConfig is [server.dev] / [server.prod].
type ServerEnvironmentConfig struct {
	Domain            string
	IO                string
	EnableCORS        bool
	AllowedOrigins    []string
	EnableRateLimit   bool
	RequestsPerMinute int
	EnableCompression bool
	EnableHTTP2       bool
	KeepAliveSeconds  int
}

// defaults mirrors Reed.toml's implicit default values so a minimal file
// still produces a usable configuration.
func defaults() *viper.Viper {
	v := viper.New()
	v.SetDefault("project.languages.fallback_chain", true)
	v.SetDefault("project.routing.url_prefix", true)
	v.SetDefault("project.routing.trailing_slash", true)
	v.SetDefault("project.templates.auto_reload", true)
	v.SetDefault("project.templates.cache_templates", true)
	v.SetDefault("project.assets.css_minify", true)
	v.SetDefault("project.assets.css_bundle", true)
	v.SetDefault("project.build.clean_before", true)
	v.SetDefault("project.build.parallel", true)
	v.SetDefault("server.workers", runtime.NumCPU())
	v.SetDefault("server.dev.requests_per_minute", 60)
	v.SetDefault("server.dev.enable_compression", true)
	v.SetDefault("server.dev.enable_http2", true)
	v.SetDefault("server.dev.keep_alive", 75)
	v.SetDefault("server.prod.requests_per_minute", 60)
	v.SetDefault("server.prod.enable_compression", true)
	v.SetDefault("server.prod.enable_http2", true)
	v.SetDefault("server.prod.keep_alive", 75)
	return v
}

// Load reads and validates the Reed.toml file at path.
func Load(path string) (ReedConfig, error) {
	v := defaults()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return ReedConfig{}, reedstream.IOError("read_config", path, err)
	}

	cfg := ReedConfig{
		Project: ProjectConfig{
			Name:        v.GetString("project.name"),
			URL:         v.GetString("project.url"),
			Description: v.GetString("project.description"),
			Languages: LanguageConfig{
				Default:       v.GetString("project.languages.default"),
				Available:     v.GetStringSlice("project.languages.available"),
				FallbackChain: v.GetBool("project.languages.fallback_chain"),
			},
			Routing: RoutingConfig{
				URLPrefix:     v.GetBool("project.routing.url_prefix"),
				TrailingSlash: v.GetBool("project.routing.trailing_slash"),
			},
			Templates: TemplateConfig{
				AutoReload:     v.GetBool("project.templates.auto_reload"),
				CacheTemplates: v.GetBool("project.templates.cache_templates"),
			},
			Assets: AssetConfig{
				CSSMinify: v.GetBool("project.assets.css_minify"),
				CSSBundle: v.GetBool("project.assets.css_bundle"),
			},
			Build: BuildConfig{
				CleanBefore: v.GetBool("project.build.clean_before"),
				Parallel:    v.GetBool("project.build.parallel"),
			},
		},
		Server: ServerConfig{
			Workers: v.GetInt("server.workers"),
			Dev:     loadServerEnv(v, "server.dev"),
			Prod:    loadServerEnv(v, "server.prod"),
		},
	}

	if err := Validate(cfg); err != nil {
		return ReedConfig{}, err
	}
	return cfg, nil
}

func loadServerEnv(v *viper.Viper, prefix string) ServerEnvironmentConfig {
	return ServerEnvironmentConfig{
		Domain:            v.GetString(prefix + ".domain"),
		IO:                v.GetString(prefix + ".io"),
		EnableCORS:        v.GetBool(prefix + ".enable_cors"),
		AllowedOrigins:    v.GetStringSlice(prefix + ".allowed_origins"),
		EnableRateLimit:   v.GetBool(prefix + ".enable_rate_limit"),
		RequestsPerMinute: v.GetInt(prefix + ".requests_per_minute"),
		EnableCompression: v.GetBool(prefix + ".enable_compression"),
		EnableHTTP2:       v.GetBool(prefix + ".enable_http2"),
		KeepAliveSeconds:  v.GetInt(prefix + ".keep_alive"),
	}
}

// Validate checks the structural invariants Reed.toml must satisfy:
// a named, URL-addressed project with at least one language, whose
// default is itself listed as available.
func Validate(cfg ReedConfig) error {
	if cfg.Project.Name == "" || len(cfg.Project.Name) > 100 {
		return reedstream.Validation("project.name", cfg.Project.Name, "1-100 characters")
	}
	if !strings.HasPrefix(cfg.Project.URL, "http://") && !strings.HasPrefix(cfg.Project.URL, "https://") {
		return reedstream.Validation("project.url", cfg.Project.URL, "must start with http:// or https://")
	}
	if len(cfg.Project.Languages.Available) == 0 {
		return reedstream.Validation("project.languages.available", "[]", "at least one language required")
	}
	found := false
	for _, lang := range cfg.Project.Languages.Available {
		if lang == cfg.Project.Languages.Default {
			found = true
			break
		}
	}
	if !found {
		return reedstream.Validation(
			"project.languages.default",
			cfg.Project.Languages.Default,
			"must be one of: "+strings.Join(cfg.Project.Languages.Available, ", "),
		)
	}
	return nil
}
