package config

import (
	"github.com/joho/godotenv"
)

// LoadEnv loads a .env file from the working directory into the process
// environment. Callers decide whether a missing file is fatal; os.IsNotExist
// on the returned error distinguishes that case.
func LoadEnv() error {
	return godotenv.Load()
}
