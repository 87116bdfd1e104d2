// Package config resolves the settings of a run from flags, environment,
// an optional YAML settings file and the JSON watch file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/cli/go-gh/pkg/auth"
	"github.com/spf13/viper"

	"github.com/naka-gawa/github-opened/internal/domain"
	"github.com/naka-gawa/github-opened/internal/gateway"
	"github.com/naka-gawa/github-opened/internal/report"
	"github.com/naka-gawa/github-opened/internal/usecase"
)

const (
	EnvPrefix   = "GITHUB_OPENED"
	DefaultFile = "opened_pulls_and_issues.html"
)

// RawInput holds the unvalidated values viper resolved from all sources.
type RawInput struct {
	Users           []string      `mapstructure:"users"`
	Repos           []string      `mapstructure:"repos"`
	JSON            string        `mapstructure:"json"`
	Days            int           `mapstructure:"days"`
	Sort            string        `mapstructure:"sort"`
	Token           string        `mapstructure:"token"`
	Output          string        `mapstructure:"output"`
	File            string        `mapstructure:"file"`
	Open            bool          `mapstructure:"open"`
	Color           bool          `mapstructure:"color"`
	Timeout         time.Duration `mapstructure:"timeout"`
	Concurrency     int           `mapstructure:"concurrency"`
	IncludePullOnly bool          `mapstructure:"include-pull-only"`
	WebURL          string        `mapstructure:"web-url"`
	APIURL          string        `mapstructure:"api-url"`
}

// Settings is the validated configuration of a run.
type Settings struct {
	Users           []string
	Repos           map[string][]string
	Days            int
	Sort            domain.SortKey
	Token           string
	Output          report.Format
	File            string
	Open            bool
	Color           bool
	Timeout         time.Duration
	Concurrency     int
	IncludePullOnly bool
	WebURL          string
	APIURL          string
}

// SetDefaults registers the default of every setting on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("sort", string(domain.SortByOpening))
	v.SetDefault("output", string(report.HTML))
	v.SetDefault("file", DefaultFile)
	v.SetDefault("color", true)
	v.SetDefault("concurrency", usecase.DefaultConcurrency)
	v.SetDefault("web-url", gateway.DefaultWebURL)
	v.SetDefault("api-url", gateway.DefaultAPIURL)
}

// InitViper points v at the settings file and the environment.
// An explicit configFile wins over the search path.
func InitViper(v *viper.Viper, configFile string) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(".github-opened")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
}

// Load reads the settings file if present and unmarshals every source into a RawInput.
func Load(v *viper.Viper) (*RawInput, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	input := &RawInput{}
	if err := v.Unmarshal(input); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config: %w", err)
	}
	return input, nil
}

// TokenSource returns the token stored by the gh CLI for a host.
type TokenSource func(host string) (string, string)

// Process validates raw input and builds the Settings of a run.
//
// The token falls back to GITHUB_TOKEN and then to the gh CLI's credential.
// Without users, repos or json, the first *.json file of dir is the watch file.
func Process(input *RawInput, dir string, tokenFor TokenSource) (*Settings, error) {
	if tokenFor == nil {
		tokenFor = auth.TokenForHost
	}

	s := &Settings{
		Users:           dedupe(input.Users),
		Repos:           make(map[string][]string),
		Days:            input.Days,
		Token:           input.Token,
		File:            input.File,
		Open:            input.Open,
		Color:           input.Color,
		Timeout:         input.Timeout,
		Concurrency:     input.Concurrency,
		IncludePullOnly: input.IncludePullOnly,
		WebURL:          input.WebURL,
		APIURL:          input.APIURL,
	}

	if s.Days < 0 {
		return nil, fmt.Errorf("days must be positive, got %d", s.Days)
	}
	if s.Concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be at least 1, got %d", s.Concurrency)
	}
	if s.Timeout < 0 {
		return nil, fmt.Errorf("timeout must not be negative, got %s", s.Timeout)
	}

	key, err := domain.ParseSortKey(input.Sort)
	if err != nil {
		return nil, err
	}
	s.Sort = key

	format := report.Format(strings.ToLower(input.Output))
	if !slices.Contains(report.Formats, format) {
		return nil, fmt.Errorf("unknown output %q (want one of html, table, json)", input.Output)
	}
	s.Output = format
	if s.Output == report.HTML && s.File == "" {
		s.File = DefaultFile
	}

	// Owners are case-insensitive; the first spelling seen is kept.
	owners := make(map[string]string)
	addRepos := func(owner string, names ...string) {
		key := strings.ToLower(owner)
		if canonical, ok := owners[key]; ok {
			owner = canonical
		} else {
			owners[key] = owner
		}
		s.Repos[owner] = append(s.Repos[owner], names...)
	}

	for _, raw := range input.Repos {
		ref, err := domain.ParseRepoRef(raw)
		if err != nil {
			return nil, err
		}
		addRepos(ref.Owner, ref.Name)
	}

	watchFile := input.JSON
	if watchFile == "" && len(s.Users) == 0 && len(s.Repos) == 0 {
		watchFile, err = findWatchFile(dir)
		if err != nil {
			return nil, err
		}
	}
	if watchFile != "" {
		watched, err := LoadWatchFile(watchFile)
		if err != nil {
			return nil, err
		}
		watchedOwners := make([]string, 0, len(watched))
		for owner := range watched {
			watchedOwners = append(watchedOwners, owner)
		}
		sort.Strings(watchedOwners)
		for _, owner := range watchedOwners {
			addRepos(owner, watched[owner]...)
		}
	}
	for owner, names := range s.Repos {
		s.Repos[owner] = dedupe(names)
	}

	if len(s.Users) == 0 && len(s.Repos) == 0 {
		return nil, errors.New("no users or repositories to watch: pass --user, --repo or --json")
	}

	if s.Token == "" {
		s.Token = os.Getenv("GITHUB_TOKEN")
	}
	if s.Token == "" {
		s.Token, _ = tokenFor("github.com")
	}
	if s.IncludePullOnly && s.Token == "" {
		return nil, errors.New("include-pull-only needs a GitHub token")
	}
	return s, nil
}

// LoadWatchFile reads a JSON object mapping an owner to repository names.
// Keys keep their case, unlike values read through viper.
func LoadWatchFile(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read watch file: %w", err)
	}
	var watched map[string][]string
	if err := json.Unmarshal(data, &watched); err != nil {
		return nil, fmt.Errorf("failed to parse watch file %s: %w", path, err)
	}
	for owner, names := range watched {
		if strings.TrimSpace(owner) == "" || strings.Contains(owner, "/") {
			return nil, fmt.Errorf("watch file %s: invalid owner %q", path, owner)
		}
		for _, name := range names {
			if strings.TrimSpace(name) == "" || strings.Contains(name, "/") {
				return nil, fmt.Errorf("watch file %s: invalid repository %q of %s", path, name, owner)
			}
		}
	}
	return watched, nil
}

func findWatchFile(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return "", fmt.Errorf("failed to look for a watch file: %w", err)
	}
	if len(matches) == 0 {
		return "", errors.New("no users or repositories to watch: pass --user, --repo or --json, or put a JSON watch file in the current directory")
	}
	sort.Strings(matches)
	return matches[0], nil
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[strings.ToLower(v)] {
			continue
		}
		seen[strings.ToLower(v)] = true
		out = append(out, v)
	}
	return out
}
