package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// key describes one dotted setting reachable from `squatwatch config`.
type key struct {
	name        string
	description string
	get         func(c *Config) string
	set         func(c *Config, v string) error
	secret      bool
}

var keys = []key{
	stringKey("domain", "Registry domain used in links, e.g. crates.io", func(c *Config) *string { return &c.Domain }),
	stringKey("database", "Path to the SQLite database", func(c *Config) *string { return &c.Database }),
	stringKey("log_file", "Append JSON logs to this file (empty disables)", func(c *Config) *string { return &c.LogFile }),
	listKey("typosquat.emails", "Comma-separated recipients of typosquat notifications", func(c *Config) *[]string { return &c.Typosquat.Emails }),
	intKey("typosquat.top_packages", "Number of popular packages to compare against", func(c *Config) *int { return &c.Typosquat.TopPackages }),
	durationKey("typosquat.cache_ttl", "Rebuild the popular package cache after this long (0 never)", func(c *Config) *Duration { return &c.Typosquat.CacheTTL }),
	listKey("typosquat.affixes", "Comma-separated affixes for the affixes check", func(c *Config) *[]string { return &c.Typosquat.Affixes }),
	listKey("typosquat.disabled_checks", "Comma-separated checks to turn off", func(c *Config) *[]string { return &c.Typosquat.DisabledChecks }),
	listKey("typosquat.enabled_checks", "Comma-separated default-off checks to turn on", func(c *Config) *[]string { return &c.Typosquat.EnabledChecks }),
	stringKey("smtp.host", "SMTP server host", func(c *Config) *string { return &c.SMTP.Host }),
	intKey("smtp.port", "SMTP server port", func(c *Config) *int { return &c.SMTP.Port }),
	stringKey("smtp.username", "SMTP username (empty disables auth)", func(c *Config) *string { return &c.SMTP.Username }),
	secretKey("smtp.password", "SMTP password", func(c *Config) *string { return &c.SMTP.Password }),
	stringKey("smtp.from", "Sender address for notifications", func(c *Config) *string { return &c.SMTP.From }),
	stringKey("mail.backend", "Mail delivery: smtp, file, or memory", func(c *Config) *string { return &c.Mail.Backend }),
	stringKey("mail.dir", "Directory for the file mail backend", func(c *Config) *string { return &c.Mail.Dir }),
	stringKey("signing.key_file", "Armored PGP private key used to sign mail", func(c *Config) *string { return &c.Signing.KeyFile }),
	stringKey("signing.passphrase_env", "Environment variable holding the key passphrase", func(c *Config) *string { return &c.Signing.PassphraseEnv }),
	stringKey("github.owner", "Owner of the triage issue repository", func(c *Config) *string { return &c.GitHub.Owner }),
	stringKey("github.repo", "Triage issue repository", func(c *Config) *string { return &c.GitHub.Repo }),
	stringKey("github.token_env", "Environment variable holding the GitHub token", func(c *Config) *string { return &c.GitHub.TokenEnv }),
	intKey("worker.concurrency", "Jobs run at once", func(c *Config) *int { return &c.Worker.Concurrency }),
	durationKey("worker.poll_interval", "How often the worker polls for jobs", func(c *Config) *Duration { return &c.Worker.PollInterval }),
	intKey("worker.max_retries", "Failed attempts before a job is marked dead", func(c *Config) *int { return &c.Worker.MaxRetries }),
}

func stringKey(name, desc string, field func(*Config) *string) key {
	return key{
		name:        name,
		description: desc,
		get:         func(c *Config) string { return *field(c) },
		set:         func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func secretKey(name, desc string, field func(*Config) *string) key {
	k := stringKey(name, desc, field)
	k.secret = true
	return k
}

func intKey(name, desc string, field func(*Config) *int) key {
	return key{
		name:        name,
		description: desc,
		get:         func(c *Config) string { return strconv.Itoa(*field(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: must be an integer", name)
			}
			*field(c) = n
			return nil
		},
	}
}

func durationKey(name, desc string, field func(*Config) *Duration) key {
	return key{
		name:        name,
		description: desc,
		get:         func(c *Config) string { return field(c).String() },
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: must be a duration like 30s or 6h", name)
			}
			field(c).Duration = d
			return nil
		},
	}
}

func listKey(name, desc string, field func(*Config) *[]string) key {
	return key{
		name:        name,
		description: desc,
		get:         func(c *Config) string { return strings.Join(*field(c), ",") },
		set:         func(c *Config, v string) error { *field(c) = SplitList(v); return nil },
	}
}

func lookup(name string) (key, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	i := slices.IndexFunc(keys, func(k key) bool { return k.name == name })
	if i < 0 {
		return key{}, false
	}
	return keys[i], true
}

// Get returns a setting by dotted name. Secrets come back redacted.
func (c *Config) Get(name string) (string, bool) {
	k, ok := lookup(name)
	if !ok {
		return "", false
	}
	v := k.get(c)
	if k.secret && v != "" {
		return "********", true
	}
	return v, true
}

// Set updates a setting by dotted name and revalidates the result. On
// error the config is left unchanged.
func (c *Config) Set(name, value string) error {
	k, ok := lookup(name)
	if !ok {
		return fmt.Errorf("unknown config key: %s", name)
	}
	next := *c
	if err := k.set(&next, value); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// Entry is one setting as shown by `squatwatch config show`.
type Entry struct {
	Key   string
	Value string
}

// Entries returns every setting in display order, secrets redacted.
func (c *Config) Entries() []Entry {
	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		v, _ := c.Get(k.name)
		entries = append(entries, Entry{Key: k.name, Value: v})
	}
	return entries
}

// AvailableKeys returns every configurable key with its description.
func AvailableKeys() map[string]string {
	m := make(map[string]string, len(keys))
	for _, k := range keys {
		m[k.name] = k.description
	}
	return m
}
