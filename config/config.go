// Package config is for app wide settings that are unmarshalled
// from Viper (see: /cmd)
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables read as settings, COJAC_COOC
const EnvPrefix = "COJAC"

// WindowConfig is how query windows are cut out of the amplicons
type WindowConfig struct {
	// bases trimmed past the previous amplicon and before the next one
	PrimerTrim int `mapstructure:"primer-trim"`

	// half width of the window around the amplicon's center when trimming leaves nothing
	HalfWidth int `mapstructure:"half-width"`
}

// ScanConfig settings of cooc-mutbamscan
type ScanConfig struct {
	// reference to query, the alignment's first reference when empty
	Reference string `mapstructure:"reference"`

	// V-pipe work directory where to look for alignments of a samples TSV
	Prefix string `mapstructure:"prefix"`

	// separator to concatenate sample and batch names, sample name only when empty
	Batchname string `mapstructure:"batchname"`

	// directory of the variant definitions
	VocDir string `mapstructure:"vocdir"`

	// BED of the amplicon inserts
	BedFile string `mapstructure:"bedfile"`

	// minimum number of mutations an amplicon must carry
	Cooc int `mapstructure:"cooc"`

	// variant definition categories merged into signatures
	Categories []string `mapstructure:"categories"`

	// also merge the "revert" category
	Reverts bool `mapstructure:"reverts"`

	// relabel amplicons whose mutations are a subset of another variant's
	Subsets bool `mapstructure:"subsets"`

	// samples scanned concurrently
	Workers int `mapstructure:"workers"`
}

// Config is the root-level settings struct and is a mix
// of settings available in cojac.yaml, COJAC_* environment
// variables and those available from the command line
type Config struct {
	// debug logging
	Verbose bool `mapstructure:"verbose"`

	Window WindowConfig `mapstructure:"window"`

	Scan ScanConfig `mapstructure:",squash"`
}

// SetDefaults registers the default settings
func SetDefaults(v *viper.Viper) {
	v.SetDefault("window.primer-trim", 30)
	v.SetDefault("window.half-width", 5)
	v.SetDefault("prefix", "working/samples")
	v.SetDefault("vocdir", "./voc")
	v.SetDefault("bedfile", "./nCoV-2019.insert.bed")
	v.SetDefault("cooc", 2)
	v.SetDefault("categories", []string{"mut", "extra", "shared", "subset"})
	v.SetDefault("workers", 1)
}

// BindEnv reads COJAC_* environment variables, "window.primer-trim" is
// COJAC_WINDOW_PRIMER_TRIM
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// Load decodes the settings of v. Comma separated strings, from the
// environment or the config file, are split into lists.
func Load(v *viper.Viper) (*Config, error) {
	var c Config
	hook := viper.DecodeHook(mapstructure.StringToSliceHookFunc(","))
	if err := v.Unmarshal(&c, hook); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %v", err)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// New returns the Config populated by the global Viper
func New() (*Config, error) {
	return Load(viper.GetViper())
}

func (c *Config) validate() error {
	switch {
	case c.Scan.Cooc < 1:
		return fmt.Errorf("cooc must be at least 1, got %d", c.Scan.Cooc)
	case c.Scan.Workers < 1:
		return fmt.Errorf("workers must be at least 1, got %d", c.Scan.Workers)
	case c.Window.PrimerTrim < 0 || c.Window.HalfWidth < 0:
		return errors.New("window primer-trim and half-width can't be negative")
	case len(c.Scan.Categories) == 0:
		return errors.New("no mutation categories")
	}
	return nil
}
