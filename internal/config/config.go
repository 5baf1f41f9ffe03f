// Package config loads squatwatch settings from a TOML file and the
// environment.
//
// The file lives at $XDG_CONFIG_HOME/squatwatch/config.toml and the
// database at $XDG_DATA_HOME/squatwatch/squatwatch.db, unless
// SQUATWATCH_HOME points both at one directory. Environment variables
// override the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"

	"github.com/tsukumogami/squatwatch/internal/log"
	"github.com/tsukumogami/squatwatch/internal/similarity"
	"github.com/tsukumogami/squatwatch/internal/typosquat"
)

// AppName names the XDG subdirectories.
const AppName = "squatwatch"

const (
	// EnvHome overrides both the config and data directories.
	EnvHome = "SQUATWATCH_HOME"

	// EnvConfig overrides the config file path.
	EnvConfig = "SQUATWATCH_CONFIG"

	// EnvTyposquatEmails is a comma-separated list of notification recipients.
	EnvTyposquatEmails = "SQUATWATCH_TYPOSQUAT_EMAILS"

	// EnvTopPackages overrides typosquat.top_packages.
	EnvTopPackages = "SQUATWATCH_TOP_PACKAGES"

	// EnvDomain overrides domain.
	EnvDomain = "SQUATWATCH_DOMAIN"

	// EnvDatabase overrides database.
	EnvDatabase = "SQUATWATCH_DATABASE"

	// EnvLogFile overrides log_file.
	EnvLogFile = "SQUATWATCH_LOG_FILE"
)

const (
	DefaultDomain         = "crates.io"
	DefaultCacheTTL       = 6 * time.Hour
	DefaultMailBackend    = MailSMTP
	DefaultSMTPPort       = 587
	DefaultConcurrency    = 4
	DefaultPollInterval   = 5 * time.Second
	DefaultMaxRetries     = 5
	DefaultGitHubTokenEnv = "GITHUB_TOKEN"

	// MaxTopPackages bounds typosquat.top_packages. Every check compares a
	// candidate against each reference, so the list size drives job cost.
	MaxTopPackages = 100000

	minCacheTTL = time.Minute
	maxCacheTTL = 7 * 24 * time.Hour
)

// Mail backends.
const (
	MailSMTP   = "smtp"
	MailFile   = "file"
	MailMemory = "memory"
)

// Duration is a time.Duration written as a string ("6h", "90s") in TOML.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Config is the full squatwatch configuration.
type Config struct {
	Domain   string `toml:"domain"`
	Database string `toml:"database"`
	LogFile  string `toml:"log_file,omitempty"`

	Typosquat Typosquat `toml:"typosquat"`
	SMTP      SMTP      `toml:"smtp"`
	Mail      Mail      `toml:"mail"`
	Signing   Signing   `toml:"signing"`
	GitHub    GitHub    `toml:"github"`
	Worker    Worker    `toml:"worker"`
}

// Typosquat configures detection.
type Typosquat struct {
	Emails          []string   `toml:"emails"`
	TopPackages     int        `toml:"top_packages"`
	CacheTTL        Duration   `toml:"cache_ttl"`
	Affixes         []string   `toml:"affixes,omitempty"`
	DisabledChecks  []string   `toml:"disabled_checks,omitempty"`
	EnabledChecks   []string   `toml:"enabled_checks,omitempty"`
	ExtraHomoglyphs [][]string `toml:"extra_homoglyphs,omitempty"`
}

type SMTP struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username,omitempty"`
	Password string `toml:"password,omitempty"`
	From     string `toml:"from"`
}

type Mail struct {
	Backend string `toml:"backend"`
	// Dir receives .eml files when Backend is "file".
	Dir string `toml:"dir,omitempty"`
}

// Signing configures PGP signatures on outgoing mail. The passphrase is
// read from the environment variable named by PassphraseEnv.
type Signing struct {
	KeyFile       string `toml:"key_file,omitempty"`
	PassphraseEnv string `toml:"passphrase_env,omitempty"`
}

// GitHub configures the optional triage issue reporter. It is enabled
// when Owner and Repo are set.
type GitHub struct {
	Owner    string `toml:"owner,omitempty"`
	Repo     string `toml:"repo,omitempty"`
	TokenEnv string `toml:"token_env"`
}

type Worker struct {
	Concurrency  int      `toml:"concurrency"`
	PollInterval Duration `toml:"poll_interval"`
	MaxRetries   int      `toml:"max_retries"`
}

// ConfigDir returns the directory holding config.toml.
func ConfigDir() string {
	if home := os.Getenv(EnvHome); home != "" {
		return home
	}
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DataDir returns the directory holding the database and mail spool.
func DataDir() string {
	if home := os.Getenv(EnvHome); home != "" {
		return home
	}
	return filepath.Join(xdg.DataHome, AppName)
}

// DefaultPath returns the config file location.
func DefaultPath() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	return filepath.Join(ConfigDir(), "config.toml")
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Domain:   DefaultDomain,
		Database: filepath.Join(DataDir(), "squatwatch.db"),
		Typosquat: Typosquat{
			TopPackages: typosquat.DefaultTopPackages,
			CacheTTL:    Duration{DefaultCacheTTL},
		},
		SMTP: SMTP{Port: DefaultSMTPPort},
		Mail: Mail{
			Backend: DefaultMailBackend,
			Dir:     filepath.Join(DataDir(), "mail"),
		},
		GitHub: GitHub{TokenEnv: DefaultGitHubTokenEnv},
		Worker: Worker{
			Concurrency:  DefaultConcurrency,
			PollInterval: Duration{DefaultPollInterval},
			MaxRetries:   DefaultMaxRetries,
		},
	}
}

// Load reads path on top of the defaults and applies environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	cfg.clamp()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads path on top of the defaults without consulting the
// environment. Use it when the result is saved back to path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	md, err := toml.DecodeFile(path, cfg)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	default:
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
		}
	}
	return cfg, nil
}

// ApplyEnv overrides settings from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvTyposquatEmails); v != "" {
		c.Typosquat.Emails = SplitList(v)
	}
	if v := getenv(EnvTopPackages); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", EnvTopPackages, v, err)
		}
		c.Typosquat.TopPackages = n
	}
	if v := getenv(EnvDomain); v != "" {
		c.Domain = v
	}
	if v := getenv(EnvDatabase); v != "" {
		c.Database = v
	}
	if v := getenv(EnvLogFile); v != "" {
		c.LogFile = v
	}
	return nil
}

// SplitList splits a comma-separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// clamp pulls oversized values back into range with a warning.
func (c *Config) clamp() {
	logger := log.Default()
	if n := c.Typosquat.TopPackages; n > MaxTopPackages {
		logger.Warn("typosquat.top_packages too high, using maximum", "value", n, "max", MaxTopPackages)
		c.Typosquat.TopPackages = MaxTopPackages
	}
	if ttl := c.Typosquat.CacheTTL.Duration; ttl != 0 && ttl < minCacheTTL {
		logger.Warn("typosquat.cache_ttl too low, using minimum", "value", ttl, "min", minCacheTTL)
		c.Typosquat.CacheTTL.Duration = minCacheTTL
	} else if ttl > maxCacheTTL {
		logger.Warn("typosquat.cache_ttl too high, using maximum", "value", ttl, "max", maxCacheTTL)
		c.Typosquat.CacheTTL.Duration = maxCacheTTL
	}
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if c.Domain == "" {
		return errors.New("domain must not be empty")
	}
	if c.Database == "" {
		return errors.New("database must not be empty")
	}
	if c.Typosquat.TopPackages < 1 {
		return fmt.Errorf("typosquat.top_packages must be positive, got %d", c.Typosquat.TopPackages)
	}
	if c.Typosquat.CacheTTL.Duration < 0 {
		return errors.New("typosquat.cache_ttl must not be negative")
	}
	for _, e := range c.Typosquat.Emails {
		if !strings.Contains(e, "@") {
			return fmt.Errorf("typosquat.emails: %q is not an e-mail address", e)
		}
	}
	checks, err := c.SimilarityOptions()
	if err != nil {
		return err
	}
	if _, err := similarity.Build(checks); err != nil {
		return fmt.Errorf("typosquat: %w", err)
	}
	switch c.Mail.Backend {
	case MailSMTP, MailFile, MailMemory:
	default:
		return fmt.Errorf("mail.backend must be smtp, file, or memory, got %q", c.Mail.Backend)
	}
	if c.Mail.Backend == MailFile && c.Mail.Dir == "" {
		return errors.New("mail.dir is required for the file backend")
	}
	if c.SMTP.Port < 1 || c.SMTP.Port > 65535 {
		return fmt.Errorf("smtp.port out of range: %d", c.SMTP.Port)
	}
	if (c.GitHub.Owner == "") != (c.GitHub.Repo == "") {
		return errors.New("github.owner and github.repo must be set together")
	}
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("worker.concurrency must be positive, got %d", c.Worker.Concurrency)
	}
	if c.Worker.PollInterval.Duration <= 0 {
		return errors.New("worker.poll_interval must be positive")
	}
	if c.Worker.MaxRetries < 0 {
		return fmt.Errorf("worker.max_retries must not be negative, got %d", c.Worker.MaxRetries)
	}
	return nil
}

// SimilarityOptions returns the check configuration.
func (c *Config) SimilarityOptions() (similarity.Options, error) {
	opts := similarity.Options{
		Enabled:  c.Typosquat.EnabledChecks,
		Disabled: c.Typosquat.DisabledChecks,
		Affixes:  c.Typosquat.Affixes,
	}
	for i, pair := range c.Typosquat.ExtraHomoglyphs {
		if len(pair) != 2 {
			return similarity.Options{}, fmt.Errorf("typosquat.extra_homoglyphs[%d]: want a pair, got %d entries", i, len(pair))
		}
		opts.ExtraHomoglyphs = append(opts.ExtraHomoglyphs, [2]string{pair[0], pair[1]})
	}
	return opts, nil
}

// mustSimilarityOptions is only called on a validated Config.
func (c *Config) mustSimilarityOptions() similarity.Options {
	opts, _ := c.SimilarityOptions()
	return opts
}

// TyposquatOptions returns the cache build options.
func (c *Config) TyposquatOptions() typosquat.Options {
	return typosquat.Options{
		TopPackages: c.Typosquat.TopPackages,
		Checks:      c.mustSimilarityOptions(),
	}
}

// Save writes the configuration to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.toml")
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := toml.NewEncoder(tmp).Encode(c); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	// The file may hold an SMTP password.
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
