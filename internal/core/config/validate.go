package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/colonyops/casetrack/internal/core/styles"
	"github.com/hay-kot/criterio"
)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// ValidateDeep performs comprehensive validation of the configuration including
// file accessibility, timezone lookup and URL parsing. The configPath argument
// specifies the config file location to validate (empty string skips config file check).
func (c *Config) ValidateDeep(configPath string) error {
	return criterio.ValidateStruct(
		c.Validate(),
		validateConfigFile(configPath),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
		criterio.Run("storage.root", c.Storage.Root, isDirectoryOrNotExist),
		criterio.Run("storage.public_base_url", c.Storage.PublicBaseURL, isAbsoluteURL),
		criterio.Run("timezone", c.Timezone, isKnownTimezone),
		criterio.Run("theme", c.Theme, isKnownTheme),
	)
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if c.Realtime.Driver == RealtimeBus && c.Store.Driver == StorePostgres {
		warnings = append(warnings, ValidationWarning{
			Category: "Realtime",
			Item:     "realtime.driver",
			Message:  "in-process bus only sees changes made by this process; use postgres to follow other writers",
		})
	}

	if c.Storage.MaxSizeBytes > DefaultMaxAttachmentSize {
		warnings = append(warnings, ValidationWarning{
			Category: "Storage",
			Item:     "storage.max_size_bytes",
			Message:  fmt.Sprintf("limit %d exceeds the default of %d bytes", c.Storage.MaxSizeBytes, DefaultMaxAttachmentSize),
		})
	}

	return warnings
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}

func isAbsoluteURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("must be an absolute url, got %q", raw)
	}
	return nil
}

func isKnownTimezone(name string) error {
	if name == "" || name == "Local" {
		return nil
	}
	if _, err := time.LoadLocation(name); err != nil {
		return fmt.Errorf("unknown timezone %q", name)
	}
	return nil
}

func isKnownTheme(name string) error {
	if _, ok := styles.GetPalette(name); !ok {
		return fmt.Errorf("unknown theme %q, available: %v", name, styles.ThemeNames())
	}
	return nil
}
