package config

import "time"

// CurrentConfigVersion is the schema version for the jdiag config file.
const CurrentConfigVersion = 1

// File represents the complete jdiag config file: a preferences block plus
// a sequence of named connections, each discriminated by Type.
type File struct {
	Version     int                   `yaml:"version" mapstructure:"version"`
	Preferences Preferences           `yaml:"preferences" mapstructure:"preferences"`
	Connections map[string]Connection `yaml:"connections" mapstructure:"connections"`
}

// Preferences holds the polling defaults applied when a connection entry
// does not override them.
type Preferences struct {
	Interval        time.Duration `yaml:"interval" mapstructure:"interval"`
	HistoryCapacity int           `yaml:"history_capacity" mapstructure:"history_capacity"`
	CommandTimeout  time.Duration `yaml:"command_timeout" mapstructure:"command_timeout"`
}

// ConnectionType discriminates the Connection table-of-tables, mirroring
// diag.ProfileKind at the config layer.
type ConnectionType string

const (
	TypeLocal       ConnectionType = "local"
	TypeRemoteShell ConnectionType = "remote_shell"
	TypeRemoteHTTP  ConnectionType = "remote_http"
)

// Connection is one named entry under "connections", shaped like a tagged
// union via Type. Fields irrelevant to Type are left zero-valued.
type Connection struct {
	Type ConnectionType `yaml:"type" mapstructure:"type"`

	// local, remote_shell
	TargetID int `yaml:"target_id" mapstructure:"target_id"`

	// remote_shell
	Host     string `yaml:"host" mapstructure:"host"`
	User     string `yaml:"user" mapstructure:"user"`
	Port     int    `yaml:"port" mapstructure:"port"`
	AuthKind string `yaml:"auth_kind" mapstructure:"auth_kind"` // "key" | "password"
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	Secret   string `yaml:"secret" mapstructure:"secret"`

	// remote_http
	URL      string `yaml:"url" mapstructure:"url"`
	AuthUser string `yaml:"auth_user" mapstructure:"auth_user"`
	AuthPass string `yaml:"auth_pass" mapstructure:"auth_pass"`

	// Per-connection polling overrides; zero values fall back to Preferences.
	Interval        time.Duration `yaml:"interval" mapstructure:"interval"`
	HistoryCapacity int           `yaml:"history_capacity" mapstructure:"history_capacity"`
	CommandTimeout  time.Duration `yaml:"command_timeout" mapstructure:"command_timeout"`
}

// Default returns a File with sensible defaults and no connections.
func Default() *File {
	return &File{
		Version: CurrentConfigVersion,
		Preferences: Preferences{
			Interval:        1 * time.Second,
			HistoryCapacity: 300,
			CommandTimeout:  5 * time.Second,
		},
		Connections: make(map[string]Connection),
	}
}
