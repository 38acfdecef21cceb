package credentials

import (
	"os"
	"strings"
)

// normalizeRemoteName converts a remote name to the format used in environment variables
// Example: "home-list" becomes "HOME_LIST"
func normalizeRemoteName(remoteName string) string {
	normalized := strings.ToUpper(remoteName)
	normalized = strings.ReplaceAll(normalized, "-", "_")
	normalized = strings.ReplaceAll(normalized, ".", "_")
	return normalized
}

// getEnvVarName returns the environment variable name for a remote field
func getEnvVarName(remoteName, field string) string {
	return "TODOSYNC_" + normalizeRemoteName(remoteName) + "_" + strings.ToUpper(field)
}

// TokenEnvVar returns the variable read by GetToken, e.g. TODOSYNC_DEFAULT_TOKEN
func TokenEnvVar(remoteName string) string {
	return getEnvVarName(remoteName, "TOKEN")
}

// GetToken retrieves the token from environment variables
// Looks for: TODOSYNC_{REMOTE_NAME}_TOKEN
func GetToken(remoteName string) string {
	if remoteName == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(TokenEnvVar(remoteName)))
}
