package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
)

const APP_NAME = "SimpleSync"

const (
	StoreDrive = "drive"
	StoreMinio = "minio"
	StoreLocal = "local"
)

// ErrNoSyncDir is returned by ReadConfig for a config without file_dir_path.
var ErrNoSyncDir = errors.New("missing file_dir_path")

const (
	configFileName     = "config.json"
	defaultSyncDirName = "files"
)

type MinioConfig struct {
	Endpoint  string `json:"endpoint"`
	Bucket    string `json:"bucket"`
	Prefix    string `json:"prefix,omitempty"`
	Region    string `json:"region,omitempty"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Secure    bool   `json:"secure"`
}

// Config is persisted as a single JSON object. Only file_dir_path is always
// written; the store settings are omitted until someone sets them.
type Config struct {
	FileDirPath string       `json:"file_dir_path"`
	Store       string       `json:"store,omitempty"`
	LocalRoot   string       `json:"local_root,omitempty"`
	Minio       *MinioConfig `json:"minio,omitempty"`
}

func GetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, APP_NAME), nil
}

func GetDefaultConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, configFileName), nil
}

// DefaultConfig points the sync directory at files/ under the working
// directory.
func DefaultConfig() (*Config, error) {
	path, err := filepath.Abs(defaultSyncDirName)
	if err != nil {
		return nil, err
	}

	return &Config{
		FileDirPath: path,
	}, nil
}

func ReadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := &Config{}
	if err := json.Unmarshal(data, config); err != nil {
		return nil, err
	}

	if config.FileDirPath == "" {
		return nil, fmt.Errorf("%s: %w", path, ErrNoSyncDir)
	}

	return config, nil
}

func CommitConfig(path string, config *Config) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// ReadConfigOrDefault replaces a missing or malformed file with the
// defaults and returns them. Other read errors, such as a permission
// failure, are returned and the file is left alone.
func ReadConfigOrDefault(path string) (*Config, error) {
	config, err := ReadConfig(path)
	switch {
	case err == nil:
		return config, nil
	case errors.Is(err, fs.ErrNotExist):
		Log.WithField("path", path).Info("Initializing configuration")
	case isMalformedConfig(err):
		Log.WithError(err).WithField("path", path).Warn("Configuration malformed, reinitializing with defaults")
	default:
		return nil, fmt.Errorf("unable to read configuration: %w", err)
	}

	config, err = DefaultConfig()
	if err != nil {
		return nil, err
	}

	if err := CommitConfig(path, config); err != nil {
		return nil, err
	}

	return config, nil
}

func isMalformedConfig(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.Is(err, ErrNoSyncDir) ||
		errors.As(err, &syntaxErr) ||
		errors.As(err, &typeErr)
}

// SetSyncDir changes file_dir_path, storing it as an absolute path.
func (c *Config) SetSyncDir(dir string) error {
	expanded, err := homedir.Expand(dir)
	if err != nil {
		return err
	}

	abs, err := filepath.Abs(expanded)
	if err != nil {
		return err
	}

	c.FileDirPath = abs
	return nil
}

// SyncDir returns file_dir_path with ~ expanded, for configs edited by hand.
func (c *Config) SyncDir() (string, error) {
	return homedir.Expand(c.FileDirPath)
}

func (c *Config) StoreName() string {
	if c.Store == "" {
		return StoreDrive
	}

	return c.Store
}

func (c *Config) LocalStoreRoot() (string, error) {
	if c.LocalRoot == "" {
		return DefaultLocalStoreRoot()
	}

	return homedir.Expand(c.LocalRoot)
}
