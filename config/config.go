// Package config loads the YAML configuration shared by the server and CLI.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"osteosex/logging"
	"osteosex/ml"
)

type Config struct {
	Models struct {
		Dir       string `yaml:"dir"`
		CacheSize int    `yaml:"cache_size"`
		Watch     bool   `yaml:"watch"`
	} `yaml:"models"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Http struct {
		Port           int           `yaml:"port"`
		Timeout        time.Duration `yaml:"timeout"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
		MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	} `yaml:"http"`
	Log          logging.Config `yaml:"log"`
	Measurements struct {
		Encoding string `yaml:"encoding"`
		Comma    string `yaml:"comma"`
	} `yaml:"measurements"`
	CSG ml.CSGLayout `yaml:"csg"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads a YAML file and fills unset fields with defaults.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var c Config
	if err := yaml.NewDecoder(file).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	c.applyDefaults()
	if err := c.CSG.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Models.Dir == "" {
		c.Models.Dir = "models"
	}
	if c.Models.CacheSize <= 0 {
		c.Models.CacheSize = 8
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/estimations.db"
	}
	if c.Http.Port == 0 {
		c.Http.Port = 8080
	}
	if c.Http.Timeout <= 0 {
		c.Http.Timeout = 30 * time.Second
	}
	if len(c.Http.AllowedOrigins) == 0 {
		c.Http.AllowedOrigins = []string{"*"}
	}
	if c.Http.MaxBodyBytes <= 0 {
		c.Http.MaxBodyBytes = 1 << 20
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Measurements.Encoding == "" {
		c.Measurements.Encoding = "utf-8"
	}
	if c.Measurements.Comma == "" {
		c.Measurements.Comma = ","
	}
	if c.CSG.GroupWidth == 0 {
		c.CSG = ml.DefaultCSGLayout
	}
}
