package config

import (
	"os"

	"github.com/joho/godotenv"
)

// LoadDotenv loads local secrets (agent runtime API keys, VCS remote
// tokens) from a .env file at path into the process environment, so later
// ExpandEnv calls against config.toml can see them. A missing file is not
// an error — secrets may also be supplied directly via the environment.
func LoadDotenv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}
