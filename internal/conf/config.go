// config.go: settings struct and functions to load and save camtrap settings.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ConsolidateSettings holds settings for the consolidate subcommand.
type ConsolidateSettings struct {
	Location    string   // location code used in folder and file names
	OutputRoot  string   // directory the deployment folder is created in
	SourceDirs  []string `yaml:"-"` // image directories, runtime value
	CalibDirs   []string // calibration image directories
	Execute     bool     // false runs validation and reporting only
	ReportLimit int      // max problem files listed per warning or error
	CopyWorkers int      // parallel file copy workers
}

// ExtractSettings holds settings for the extract subcommand.
type ExtractSettings struct {
	Deployment string `yaml:"-"` // deployment directory, runtime value
	OutputFile string // report path, defaults to exif_data.dat in the deployment
}

// Settings contains all application settings.
type Settings struct {
	Debug bool // true to enable debug log output

	Main struct {
		Name string // name of this camtrap node, used in reports
	}

	Consolidate ConsolidateSettings
	Extract     ExtractSettings
}

// locationPattern is the character safety rule for location codes. Codes end
// up in directory and file names, so path separators and shell metacharacters
// are out.
var locationPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// ValidLocation reports whether a location code is safe to use in deployment
// folder and file names.
func ValidLocation(location string) bool {
	return locationPattern.MatchString(location)
}

// Load reads the configuration file and environment into a Settings struct.
// A missing config file is not an error: defaults are written to the user
// config directory for the next run.
func Load() (*Settings, error) {
	settings := &Settings{}

	setDefaultConfig()

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}
	return settings, nil
}

// initViper sets up viper's config file search and reads the config, creating
// a default config file if none exists.
func initViper() error {
	viper.SetConfigName("camtrap")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return err
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	err = viper.ReadInConfig()
	if err == nil {
		return nil
	}
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		return createDefaultConfig(configPaths[0])
	}
	return fmt.Errorf("fatal error reading config file: %w", err)
}

// GetDefaultConfigPaths returns the directories searched for camtrap.yaml,
// most specific first.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error fetching user home directory: %w", err)
	}
	return []string{
		filepath.Join(homeDir, ".config", "camtrap"),
		".",
	}, nil
}

// createDefaultConfig writes the default settings as YAML so the user has a
// file to edit on the next run.
func createDefaultConfig(configDir string) error {
	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return fmt.Errorf("error unmarshaling defaults: %w", err)
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}
	return SaveSettings(filepath.Join(configDir, "camtrap.yaml"), settings)
}

// SaveSettings writes settings to path as YAML.
func SaveSettings(path string, settings *Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing config file %s: %w", path, err)
	}
	return nil
}
