package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/kintone/internal/constants"
)

// readInputFile decodes a .json, .yaml, or .yml file into out.
func readInputFile(path string, out interface{}) error {
	if strings.TrimSpace(path) == "" {
		return constants.ErrInvalidFilePath
	}

	cleaned := filepath.Clean(path)

	// #nosec G304 -- the path is supplied by the user running the CLI
	data, err := os.ReadFile(cleaned)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(cleaned)) {
	case ".json":
		err = json.Unmarshal(data, out)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, out)
	default:
		return fmt.Errorf("%w: %s", constants.ErrUnsupportedFileFormat, cleaned)
	}

	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", cleaned, err)
	}

	return nil
}
