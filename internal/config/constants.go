package config

const (
	// DefaultDataDir holds one SQLite file per library database
	DefaultDataDir = "./foxtales-data"

	// DefaultEnvFile is loaded, when present, before reading the environment
	DefaultEnvFile = ".env"
)
