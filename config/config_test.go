package config

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	return v
}

func TestLoad_defaults(t *testing.T) {
	c, err := Load(newViper())
	require.NoError(t, err)

	assert.Equal(t, WindowConfig{PrimerTrim: 30, HalfWidth: 5}, c.Window)
	assert.Equal(t, ScanConfig{
		Prefix:     "working/samples",
		VocDir:     "./voc",
		BedFile:    "./nCoV-2019.insert.bed",
		Cooc:       2,
		Categories: []string{"mut", "extra", "shared", "subset"},
		Workers:    1,
	}, c.Scan)
}

func TestLoad_sources(t *testing.T) {
	t.Setenv("COJAC_CATEGORIES", "mut,revert")
	t.Setenv("COJAC_WINDOW_HALF_WIDTH", "8")

	v := newViper()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader("cooc: 3\nworkers: 4\nwindow:\n  primer-trim: 20\n")))
	v.Set("reference", "NC_045512.2")

	c, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, []string{"mut", "revert"}, c.Scan.Categories)
	assert.Equal(t, 8, c.Window.HalfWidth)
	assert.Equal(t, 20, c.Window.PrimerTrim)
	assert.Equal(t, 3, c.Scan.Cooc)
	assert.Equal(t, 4, c.Scan.Workers)
	assert.Equal(t, "NC_045512.2", c.Scan.Reference)
}

func TestLoad_invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value interface{}
	}{
		{"no cooc", "cooc", 0},
		{"no workers", "workers", 0},
		{"negative trim", "window.primer-trim", -1},
		{"no categories", "categories", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper()
			v.Set(tt.key, tt.value)

			_, err := Load(v)
			assert.Error(t, err)
		})
	}
}
