package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const (
	configFileName = "config.yml"
	keysFileName   = "keys.yml"
)

type Config struct {
	Key     *KeyConfig     `yaml:"key"`
	VDF     *VDFConfig     `yaml:"vdf"`
	DB      *DBConfig      `yaml:"db"`
	Metrics *MetricsConfig `yaml:"metrics"`
	LogFile string         `yaml:"logFile"`
}

func NewConfig(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "new config")
	}

	defer file.Close()

	d := yaml.NewDecoder(file)
	config := DefaultConfig("")

	if err := d.Decode(config); err != nil {
		return nil, errors.Wrap(err, "new config")
	}

	return config, nil
}

// DefaultConfig returns the defaults for a config directory.
func DefaultConfig(configPath string) *Config {
	return &Config{
		DB: &DBConfig{
			Path: filepath.Join(configPath, "store"),
		},
		Key: &KeyConfig{
			KeyStore: KeyManagerTypeFile,
			KeyStoreFile: &KeyStoreFileConfig{
				Path: filepath.Join(configPath, keysFileName),
			},
		},
		VDF:     DefaultVDFConfig(),
		Metrics: &MetricsConfig{},
	}
}

// LoadConfig reads config.yml from the directory, creating the directory,
// a default config and an empty key store on first use.
func LoadConfig(configPath string) (*Config, error) {
	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		fmt.Println("Creating config directory " + configPath)
		if err = os.MkdirAll(configPath, fs.FileMode(0700)); err != nil {
			return nil, errors.Wrap(err, "load config")
		}
	} else {
		if err != nil {
			return nil, errors.Wrap(err, "load config")
		}

		if !info.IsDir() {
			return nil, errors.Wrap(
				errors.New(configPath+" is not a directory"),
				"load config",
			)
		}
	}

	file, err := os.Open(filepath.Join(configPath, configFileName))
	saveDefaults := false
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			saveDefaults = true
		} else {
			return nil, errors.Wrap(err, "load config")
		}
	}

	config := DefaultConfig(configPath)

	if saveDefaults {
		fmt.Println("Generating default config...")
		fmt.Println("Generating keystore key...")
		keystoreKey := make([]byte, 32)
		if _, err := rand.Read(keystoreKey); err != nil {
			return nil, errors.Wrap(err, "load config")
		}

		config.Key.KeyStoreFile.EncryptionKey = hex.EncodeToString(keystoreKey)

		fmt.Println("Saving config...")
		if err = SaveConfig(configPath, config); err != nil {
			return nil, errors.Wrap(err, "load config")
		}

		keyfile, err := os.OpenFile(
			filepath.Join(configPath, keysFileName),
			os.O_CREATE|os.O_RDWR|os.O_TRUNC,
			fs.FileMode(0600),
		)
		if err != nil {
			return nil, errors.Wrap(err, "load config")
		}

		_, err = keyfile.Write([]byte("{}\n"))
		keyfile.Close()
		if err != nil {
			return nil, errors.Wrap(err, "load config")
		}

		if file, err = os.Open(
			filepath.Join(configPath, configFileName),
		); err != nil {
			return nil, errors.Wrap(err, "load config")
		}
	}

	defer file.Close()
	d := yaml.NewDecoder(file)
	if err := d.Decode(config); err != nil {
		return nil, errors.Wrap(err, "load config")
	}

	if config.VDF == nil {
		config.VDF = DefaultVDFConfig()
	}

	if config.Metrics == nil {
		config.Metrics = &MetricsConfig{}
	}

	return config, nil
}

func SaveConfig(configPath string, config *Config) error {
	file, err := os.OpenFile(
		filepath.Join(configPath, configFileName),
		os.O_CREATE|os.O_RDWR|os.O_TRUNC,
		os.FileMode(0600),
	)
	if err != nil {
		return errors.Wrap(err, "save config")
	}

	defer file.Close()

	d := yaml.NewEncoder(file)

	if err := d.Encode(config); err != nil {
		return errors.Wrap(err, "save config")
	}

	return errors.Wrap(d.Close(), "save config")
}
