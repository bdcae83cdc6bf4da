// Package config provides board preset management for the pixel board.
//
// The config package handles:
//   - Loading board presets from JSON files
//   - Preset validation
//   - Default preset selection
//   - Preset discovery and listing
//
// Preset Format:
//
// Presets are stored as JSON files in the configs directory:
//
//	{
//	  "name": "classic",
//	  "description": "10x10 board",
//	  "width": 10,
//	  "height": 10,
//	  "fill_color": "white",
//	  "cooldown": "10s"
//	}
//
// The cooldown is a Go duration string. Colors are matched case-insensitively.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	preset, err := manager.LoadConfig("console")
//	settings, err := preset.Settings()
//
// GetDefault returns "classic" when present, otherwise the first valid preset
// in the directory, otherwise BuiltinConfig.
package config
