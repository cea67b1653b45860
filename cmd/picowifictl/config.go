package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/picowifi/picowifi/control"
	"github.com/picowifi/picowifi/host"
)

// ctlConfig holds the picowifictl configuration.
type ctlConfig struct {
	VendorID     uint16        `yaml:"vendor_id" json:"vendor_id"`
	ProductID    uint16        `yaml:"product_id" json:"product_id"`
	Serial       string        `yaml:"serial" json:"serial"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
	OutputFormat string        `yaml:"output_format" json:"output_format"`
}

// defaultConfigPath returns ~/.picowifi/ctl.yaml.
func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".picowifi", "ctl.yaml")
	}
	return filepath.Join(home, ".picowifi", "ctl.yaml")
}

// loadConfig reads the YAML file at path. A missing file yields the
// defaults with no error.
func loadConfig(path string) (*ctlConfig, error) {
	cfg := &ctlConfig{
		VendorID:     control.DefaultVendorID,
		ProductID:    control.DefaultProductID,
		Timeout:      host.DefaultTimeout,
		OutputFormat: "table",
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("%s: timeout must be positive", path)
	}
	return cfg, nil
}
