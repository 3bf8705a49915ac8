package backend

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/miradorstack/mirador-bfeval/internal/utils"
)

// APIKeyEnv holds the OpenAI credential.
const APIKeyEnv = "OPENAI_API_KEY"

// LoadEnv loads a dotenv file without overriding variables already set. An empty path
// loads ./.env when present; an explicit path must exist.
func LoadEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return utils.NewAppError("backend.LoadEnv", ".env", err)
		}
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return utils.NewAppError("backend.LoadEnv", path, utils.ErrEnvFileNotFound)
		}
		return utils.NewAppError("backend.LoadEnv", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return utils.NewAppError("backend.LoadEnv", path, err)
	}
	return nil
}

// APIKey reads the OpenAI key from the environment.
func APIKey() (string, error) {
	key := strings.TrimSpace(os.Getenv(APIKeyEnv))
	if key == "" {
		return "", utils.NewAppError("backend.APIKey", APIKeyEnv+" is not set", utils.ErrMissingAPIKey)
	}
	return key, nil
}
