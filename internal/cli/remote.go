// Package cli implements the proposalctl commands.
package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"proposaldesk/internal/client"
)

const defaultServer = "http://localhost:8787"

// remoteFlags are shared by every command that talks to the API.
type remoteFlags struct {
	server string
	token  string
}

func (f *remoteFlags) register(cmd *cobra.Command) {
	server := os.Getenv("PROPOSALDESK_URL")
	if server == "" {
		server = defaultServer
	}
	cmd.Flags().StringVar(&f.server, "server", server, "API base URL")
	cmd.Flags().StringVar(&f.token, "token", os.Getenv("PROPOSALDESK_TOKEN"), "bearer token (defaults to the saved login)")
}

func (f *remoteFlags) client() (*client.Client, error) {
	token := f.token
	if token == "" {
		saved, err := loadToken()
		if err != nil {
			return nil, err
		}
		token = saved
	}
	return client.New(f.server).WithToken(token), nil
}

func tokenPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "proposaldesk", "token"), nil
}

func saveToken(token string) (string, error) {
	path, err := tokenPath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(token), 0o600); err != nil {
		return "", fmt.Errorf("save token: %w", err)
	}
	return path, nil
}

func loadToken() (string, error) {
	path, err := tokenPath()
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", errors.New("not logged in: run `proposalctl login` or pass --token")
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
