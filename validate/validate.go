// Command validate provides a small CLI that validates board preset JSON
// files in the ../configs directory. It checks:
//   - JSON structure and required fields
//   - Board dimensions within the supported range
//   - Fill color is one of the palette colors
//   - Cooldown is a non-negative duration
//
// An alternative directory can be passed as the first argument.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wricardo/pixelboard/game/config"
	"github.com/wricardo/pixelboard/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Messages contains informational lines; otherwise it
// holds the validation errors that were found.
type ValidationResult struct {
	File     string
	Valid    bool
	Messages []string
}

// validateConfig loads and validates a single preset file.
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:     filepath.Base(filePath),
		Valid:    true,
		Messages: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Messages = append(result.Messages, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	var preset config.BoardConfig
	if err := json.Unmarshal(data, &preset); err != nil {
		result.Valid = false
		result.Messages = append(result.Messages, fmt.Sprintf("Invalid JSON: %v", err))
		return result
	}

	if err := config.ValidateBoardConfig(&preset); err != nil {
		result.Valid = false
		result.Messages = append(result.Messages, strings.TrimPrefix(err.Error(), config.ErrInvalidConfig.Error()+": "))
		return result
	}

	settings, err := preset.Settings()
	if err != nil {
		result.Valid = false
		result.Messages = append(result.Messages, err.Error())
		return result
	}

	result.Messages = append(result.Messages,
		fmt.Sprintf("✓ Name: %s", preset.Name),
		fmt.Sprintf("✓ Board: %dx%d (%d cells)", settings.Width, settings.Height, settings.Size()),
		fmt.Sprintf("✓ Fill: %s", settings.FillColor),
		fmt.Sprintf("✓ Cooldown: %s", settings.Cooldown),
	)
	if settings.Cooldown == 0 {
		result.Messages = append(result.Messages, "✓ Note: cooldown disabled, players may paint continuously")
	} else if settings.Cooldown < time.Second {
		result.Messages = append(result.Messages, "✓ Note: sub-second cooldown")
	}
	if settings.Size() > engine.MaxBoardSize*engine.MaxBoardSize/4 {
		result.Messages = append(result.Messages, "✓ Note: large board, console rendering will be slow")
	}

	return result
}

// validateDir validates every *.json file in dir and reports whether all of
// them passed.
func validateDir(dir string) ([]ValidationResult, bool, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, false, err
	}
	if len(files) == 0 {
		return nil, false, fmt.Errorf("no presets found in %s", dir)
	}

	allValid := true
	results := make([]ValidationResult, 0, len(files))
	for _, file := range files {
		result := validateConfig(file)
		if !result.Valid {
			allValid = false
		}
		results = append(results, result)
	}
	return results, allValid, nil
}

// main scans ../configs (or the directory given as first argument) and
// prints a concise report, exiting with non-zero status if any preset is
// invalid.
func main() {
	configDir := "../configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	results, allValid, err := validateDir(configDir)
	if err != nil {
		fmt.Printf("Error finding config files: %v\n", err)
		os.Exit(1)
	}

	for _, result := range results {
		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Messages {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			for _, msg := range result.Messages {
				fmt.Println("  ❌ " + msg)
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All configurations are valid!")
	} else {
		fmt.Println("❌ Some configurations have errors")
		os.Exit(1)
	}
}
