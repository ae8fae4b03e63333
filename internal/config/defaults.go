package config

// GetDefaults returns the default configuration values
func GetDefaults() map[string]interface{} {
	return map[string]interface{}{
		"schema_dir":    "./schemas",
		"out_dir":       "./gen",
		"targets":       []string{},
		"workers":       4,
		"versions_file": "",
		"report_path":   "",
		"show_progress": true,
		"debug":         false,
	}
}
