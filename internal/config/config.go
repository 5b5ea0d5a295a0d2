// Package config loads wikiconv settings from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kk-code-lab/wikiconv/internal/wiki"
)

const (
	envPrefix    = "WIKICONV_"
	fileName     = "config.yaml"
	storeName    = "pages.db"
	appDirectory = "wikiconv"
)

// File mirrors the YAML configuration file. Pointer fields distinguish an
// unset key from an explicit zero value.
type File struct {
	BangEscape    *bool  `yaml:"bang_escape"`
	Nesting       string `yaml:"nesting"`
	Underline     *bool  `yaml:"underline"`
	PageURLPrefix string `yaml:"page_url_prefix"`
	TabWidth      int    `yaml:"tab_width"`
	LogLevel      string `yaml:"log_level"`
	StorePath     string `yaml:"store_path"`
	Charset       string `yaml:"charset"`
}

// Settings is the resolved configuration.
type Settings struct {
	Wiki      wiki.Config
	LogLevel  string
	StorePath string
	Charset   string
}

// Default returns the settings used when nothing is configured.
func Default() Settings {
	return Settings{
		Wiki:      wiki.DefaultConfig(),
		LogLevel:  "info",
		StorePath: defaultStorePath(),
	}
}

// DefaultPath returns the config file location under the user config
// directory, or "" when that directory is unknown.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, appDirectory, fileName)
}

func defaultStorePath() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, appDirectory, storeName)
	}
	return storeName
}

// Load reads the file at path, if any, and applies environment overrides.
// A missing file is not an error when path is the default location.
func Load(path string, getenv func(string) string) (Settings, error) {
	s := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		f, err := readFile(path)
		switch {
		case err == nil:
			if err := s.apply(f); err != nil {
				return s, fmt.Errorf("%s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		default:
			return s, err
		}
	}
	if getenv == nil {
		getenv = os.Getenv
	}
	if err := s.applyEnv(getenv); err != nil {
		return s, err
	}
	return s, nil
}

func readFile(path string) (File, error) {
	var f File
	data, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("parse %s: %w", path, err)
	}
	return f, nil
}

func (s *Settings) apply(f File) error {
	if f.BangEscape != nil {
		s.Wiki.BangEscape = *f.BangEscape
	}
	if f.Underline != nil {
		s.Wiki.Underline = *f.Underline
	}
	if f.Nesting != "" {
		policy, err := wiki.ParseNestingPolicy(f.Nesting)
		if err != nil {
			return err
		}
		s.Wiki.Nesting = policy
	}
	if f.PageURLPrefix != "" {
		s.Wiki.PageURLPrefix = f.PageURLPrefix
	}
	if f.TabWidth < 0 {
		return fmt.Errorf("tab_width must be positive, got %d", f.TabWidth)
	}
	if f.TabWidth > 0 {
		s.Wiki.TabWidth = f.TabWidth
	}
	if f.LogLevel != "" {
		s.LogLevel = f.LogLevel
	}
	if f.StorePath != "" {
		s.StorePath = f.StorePath
	}
	if f.Charset != "" {
		s.Charset = f.Charset
	}
	return nil
}

func (s *Settings) applyEnv(getenv func(string) string) error {
	var f File
	for _, key := range []string{"BANG_ESCAPE", "UNDERLINE"} {
		raw := getenv(envPrefix + key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, key, err)
		}
		if key == "BANG_ESCAPE" {
			f.BangEscape = &v
		} else {
			f.Underline = &v
		}
	}
	if raw := getenv(envPrefix + "TAB_WIDTH"); raw != "" {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%sTAB_WIDTH: %w", envPrefix, err)
		}
		f.TabWidth = n
	}
	f.Nesting = getenv(envPrefix + "NESTING")
	f.PageURLPrefix = getenv(envPrefix + "PAGE_URL_PREFIX")
	f.LogLevel = getenv(envPrefix + "LOG_LEVEL")
	f.StorePath = getenv(envPrefix + "STORE_PATH")
	f.Charset = getenv(envPrefix + "CHARSET")
	if err := s.apply(f); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	return nil
}

// Marshal renders the settings as a YAML config file.
func (s Settings) Marshal() ([]byte, error) {
	bang, underline := s.Wiki.BangEscape, s.Wiki.Underline
	return yaml.Marshal(File{
		BangEscape:    &bang,
		Nesting:       s.Wiki.Nesting.String(),
		Underline:     &underline,
		PageURLPrefix: s.Wiki.PageURLPrefix,
		TabWidth:      s.Wiki.TabWidth,
		LogLevel:      s.LogLevel,
		StorePath:     s.StorePath,
		Charset:       s.Charset,
	})
}
