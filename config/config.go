package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/gdamore/tcell/v2"
)

type Config struct {
	Shell        string  `json:"shell"`
	Scrollback   int     `json:"scrollback"`
	Theme        string  `json:"theme"`
	KillGraceSec float64 `json:"kill_grace_seconds"`
	StartHidden  bool    `json:"start_hidden"`
}

// ColorScheme carries the host-side colors the terminal widget draws with.
// Cell colors come from the child's own escape sequences; the scheme only
// supplies defaults and chrome.
type ColorScheme struct {
	Name        string
	Background  tcell.Color
	Foreground  tcell.Color
	Selection   tcell.Color
	Border      tcell.Color
	IndicatorBg tcell.Color
	IndicatorFg tcell.Color
}

var Themes = map[string]*ColorScheme{
	"dark": {
		Name:        "Dark",
		Background:  tcell.ColorBlack,
		Foreground:  tcell.ColorWhite,
		Selection:   tcell.ColorDarkBlue,
		Border:      tcell.ColorGray,
		IndicatorBg: tcell.ColorBlue,
		IndicatorFg: tcell.ColorWhite,
	},
	"light": {
		Name:        "Light",
		Background:  tcell.ColorWhite,
		Foreground:  tcell.ColorBlack,
		Selection:   tcell.ColorLightBlue,
		Border:      tcell.ColorGray,
		IndicatorBg: tcell.ColorBlue,
		IndicatorFg: tcell.ColorWhite,
	},
	"monokai": {
		Name:        "Monokai",
		Background:  tcell.NewRGBColor(39, 40, 34),
		Foreground:  tcell.NewRGBColor(248, 248, 242),
		Selection:   tcell.NewRGBColor(73, 72, 62),
		Border:      tcell.NewRGBColor(144, 144, 128),
		IndicatorBg: tcell.NewRGBColor(102, 217, 239),
		IndicatorFg: tcell.NewRGBColor(39, 40, 34),
	},
	"nord": {
		Name:        "Nord",
		Background:  tcell.NewRGBColor(46, 52, 64),
		Foreground:  tcell.NewRGBColor(236, 239, 244),
		Selection:   tcell.NewRGBColor(67, 76, 94),
		Border:      tcell.NewRGBColor(76, 86, 106),
		IndicatorBg: tcell.NewRGBColor(136, 192, 208),
		IndicatorFg: tcell.NewRGBColor(46, 52, 64),
	},
}

func Default() *Config {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return &Config{
		Shell:        shell,
		Scrollback:   10000,
		Theme:        "monokai",
		KillGraceSec: 5,
	}
}

func (c *Config) GetTheme() *ColorScheme {
	theme, ok := Themes[c.Theme]
	if !ok {
		return Themes["monokai"]
	}
	return theme
}

func ConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "qterm", "settings.json")
}

func Load() (*Config, error) {
	path := ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		// If file doesn't exist, return default config
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Save() error {
	path := ConfigPath()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
