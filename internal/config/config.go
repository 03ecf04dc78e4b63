// Package config defines the root CLI grammar.
package config

import (
	"github.com/m720d/m720d/internal/cmd"
)

// LogConfig is the logging surface shared by all commands.
type LogConfig struct {
	Level     string `help:"Log level" enum:"trace,debug,info,warn,error" default:"info" env:"M720D_LOG_LEVEL"`
	File      string `help:"Write logs to this file instead of stdout/stderr" env:"M720D_LOG_FILE"`
	EventFile string `help:"Write a raw dump of every input event to this file" env:"M720D_LOG_EVENT_FILE"`
}

// CLI is the kong root. Values may come from flags, environment variables
// or a JSON/YAML/TOML config file, in that priority order.
type CLI struct {
	Log    LogConfig `embed:"" prefix:"log."`
	Config string    `help:"Path to a configuration file" type:"path"`
	Debug  bool      `help:"Shortcut for --log.level=debug" env:"M720D_DEBUG"`

	Run       cmd.Run           `cmd:"" default:"withargs" help:"Run the button remapping daemon"`
	Devices   cmd.Devices       `cmd:"" help:"List input devices and how they classify"`
	ConfigCmd cmd.ConfigCommand `cmd:"" name:"config" help:"Configuration helpers"`
	Install   cmd.Install       `cmd:"" help:"Install m720d as a systemd service"`
	Uninstall cmd.Uninstall     `cmd:"" help:"Remove the m720d systemd service"`
}
