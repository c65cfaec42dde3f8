package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"go.bug.st/serial"

	"xk852-bridge/pkg/logger"
)

type Config struct {
	App          AppConfig
	Serial       SerialConfig
	SocketConfig SocketConfig
}

type AppConfig struct {
	AppName     string
	WindowTitle string
	// Mode selects the device backend: "production" for real hardware,
	// "simulator" for the compatibility shim.
	Mode string
}

// SerialConfig carries the receiver's fixed framing. The XK852 remote
// interface is not configurable, so these are defaults rather than
// user-facing settings.
type SerialConfig struct {
	BaudRate       int
	DataBits       int
	Parity         serial.Parity
	StopBits       serial.StopBits
	ReadBufferSize int
	PollInterval   time.Duration
	MaxLogEntries  int
}

type SocketConfig struct {
	Port string
}

// LoadConfig builds the default configuration and, when a config file
// exists in the user's config directory, overlays it on top.
func LoadConfig(mode string) (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			AppName:     "xk852-bridge",
			WindowTitle: "XK852 Terminal",
			Mode:        mode,
		},
		Serial: SerialConfig{
			BaudRate:       9600,
			DataBits:       7,
			Parity:         serial.EvenParity,
			StopBits:       serial.OneStopBit,
			ReadBufferSize: 8192,
			PollInterval:   2 * time.Second,
			MaxLogEntries:  1000,
		},
		SocketConfig: SocketConfig{
			Port: ":8001",
		},
	}

	if cfg.IsConfigExist() {
		if _, err := cfg.ReadConfig(); err != nil {
			return nil, err
		}
		// The backend choice always comes from the command line.
		cfg.App.Mode = mode
	}

	return cfg, nil
}

// Simulator reports whether the shim backend was requested.
func (c *Config) Simulator() bool {
	return c.App.Mode == "simulator"
}

func (c *Config) GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(c.App.AppName), "config.json")
}

func getConfigDir(appName string) string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		logger.Error("Failed to get user home directory: %v", err)
		return "."
	}
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), appName)
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", appName)
	default:
		return filepath.Join(homeDir, ".config", appName)
	}
}

func (c *Config) IsConfigExist() bool {
	_, err := os.Stat(c.GetDefaultConfigPath())
	return err == nil
}

// ReadConfig overlays the on-disk config file, when present, onto the
// defaults already loaded.
func (c *Config) ReadConfig() (*Config, error) {
	data, err := os.ReadFile(c.GetDefaultConfigPath())
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}

	return c, nil
}
