package config

// NewSettingsForTest creates a Settings config with the given base directory
func NewSettingsForTest(baseDir string) *Settings {
	return &Settings{baseDir: baseDir}
}

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{level: level, format: format, output: output}
}

// NewRepositoryForTest creates a Repository config for testing purposes
func NewRepositoryForTest(backend string) *Repository {
	return &Repository{backend: backend}
}

// NewAppConfigForTest creates an AppConfig that loads path
func NewAppConfigForTest(path string) *AppConfig {
	return &AppConfig{path: path}
}
