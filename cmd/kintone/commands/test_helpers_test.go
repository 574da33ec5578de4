package commands_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

// findSubcommand finds a subcommand by name within a cobra command.
func findSubcommand(cmd *cobra.Command, name string) *cobra.Command {
	for _, c := range cmd.Commands() {
		if c.Name() == name {
			return c
		}
	}

	return nil
}

// setupViper points the CLI at baseURL with an API token and JSON output, and
// writes config changes to a temporary file.
func setupViper(t *testing.T, baseURL string) string {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)

	configFile := filepath.Join(t.TempDir(), "config.yml")
	viper.SetConfigFile(configFile)

	viper.Set("base_url", baseURL)
	viper.Set("api_tokens", []string{"token"})
	viper.Set("output", "json")
	viper.Set("cache", "none")
	viper.Set("rate_limit", false)

	return configFile
}

// executeCommand runs cmd under a throwaway root and returns stdout.
func executeCommand(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	root := &cobra.Command{Use: "kintone", SilenceUsage: true, SilenceErrors: true}
	root.AddCommand(cmd)

	var stdout, stderr bytes.Buffer

	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{cmd.Name()}, args...))

	err := root.Execute()

	return stdout.String(), err
}

func decodeRequest(t *testing.T, request *http.Request) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}

	require.NoError(t, json.NewDecoder(request.Body).Decode(&body))

	return body
}
