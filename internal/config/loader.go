package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mabhi256/jdiag/internal/diag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is the default config file name.
const ConfigFileName = ".jdiag.yaml"

// GlobalConfigDir/GlobalConfigFile locate the per-user fallback config,
// grounded on rileyhilliard-rr's internal/config/loader.go Find.
const (
	GlobalConfigDir  = ".config/jdiag"
	GlobalConfigFile = "config.yaml"
)

// Load reads the config file at path.
func Load(path string) (*File, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, diag.WrapError(diag.KindToolsUnavailable, "config file not found: "+path, err)
		}
		return nil, diag.WrapError(diag.KindParse, "failed to read config file", err)
	}
	return parse(v, path)
}

// Find locates the config file: explicit path, then ./.jdiag.yaml, then
// ~/.config/jdiag/config.yaml.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", diag.WrapError(diag.KindToolsUnavailable, "specified config file not found: "+explicit, err)
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err == nil {
		local := filepath.Join(cwd, ConfigFileName)
		if _, err := os.Stat(local); err == nil {
			return local, nil
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		global := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		if _, err := os.Stat(global); err == nil {
			return global, nil
		}
	}

	return "", nil
}

// Save writes f to path as yaml, creating parent directories as needed.
// Grounded on rileyhilliard-rr/internal/cli/init.go's config-scaffolding
// step: viper has no symmetric writer for our typed structs, so the file
// is marshaled directly with yaml.v3 against the same yaml tags Load
// reads back through viper/mapstructure.
func Save(f *File, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return diag.WrapError(diag.KindTransport, "failed to create config directory", err)
	}
	out, err := yaml.Marshal(f)
	if err != nil {
		return diag.WrapError(diag.KindParse, "failed to encode config", err)
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return diag.WrapError(diag.KindTransport, "failed to write config file", err)
	}
	return nil
}

// LoadOrDefault loads the found config file, or an empty default File if
// none exists.
func LoadOrDefault() (*File, error) {
	path, err := Find("")
	if err != nil {
		return nil, err
	}
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

func parse(v *viper.Viper, path string) (*File, error) {
	f := Default()
	if err := v.Unmarshal(f); err != nil {
		return nil, diag.WrapError(diag.KindParse, "invalid config format in "+path, err)
	}
	return f, nil
}

// Resolve looks up name in f.Connections and converts it to the
// diag.Profile/diag.PollingConfig pair the core package consumes,
// applying f.Preferences as defaults for any zero-valued override.
func Resolve(f *File, name string) (diag.Profile, diag.PollingConfig, error) {
	conn, ok := f.Connections[name]
	if !ok {
		return diag.Profile{}, diag.PollingConfig{}, fmt.Errorf("no connection named %q in config", name)
	}

	profile, err := toProfile(conn)
	if err != nil {
		return diag.Profile{}, diag.PollingConfig{}, err
	}

	polling := diag.PollingConfig{
		Interval:        coalesceDuration(conn.Interval, f.Preferences.Interval),
		HistoryCapacity: coalesceInt(conn.HistoryCapacity, f.Preferences.HistoryCapacity),
		CommandTimeout:  coalesceDuration(conn.CommandTimeout, f.Preferences.CommandTimeout),
	}.Clamp()

	return profile, polling, nil
}

func toProfile(conn Connection) (diag.Profile, error) {
	switch conn.Type {
	case TypeLocal:
		return diag.Profile{Kind: diag.ProfileLocal, TargetID: conn.TargetID}, nil
	case TypeRemoteShell:
		auth := diag.ShellAuth{Path: conn.KeyPath, Secret: conn.Secret}
		switch conn.AuthKind {
		case "password":
			auth.Kind = diag.AuthPassword
		default:
			auth.Kind = diag.AuthKey
		}
		port := conn.Port
		if port == 0 {
			port = 22
		}
		return diag.Profile{
			Kind:     diag.ProfileRemoteShell,
			TargetID: conn.TargetID,
			Host:     conn.Host,
			User:     conn.User,
			Port:     port,
			Auth:     auth,
		}, nil
	case TypeRemoteHTTP:
		return diag.Profile{
			Kind:         diag.ProfileRemoteHTTP,
			URL:          conn.URL,
			AuthUser:     conn.AuthUser,
			AuthPass:     conn.AuthPass,
			HasBasicAuth: conn.AuthUser != "" || conn.AuthPass != "",
		}, nil
	default:
		return diag.Profile{}, fmt.Errorf("unknown connection type %q", conn.Type)
	}
}

func coalesceDuration(v, def time.Duration) time.Duration {
	if v != 0 {
		return v
	}
	return def
}

func coalesceInt(v, def int) int {
	if v != 0 {
		return v
	}
	return def
}
