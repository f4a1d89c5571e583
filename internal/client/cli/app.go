// Package cli implements the interactive vault client: a small REPL that
// talks to the server API, prompting for passcodes and master keys without
// terminal echo.
package cli

import (
	"bufio"
	"os"

	"github.com/dmitrijs2005/envvault/internal/client/api"
	"github.com/dmitrijs2005/envvault/internal/client/config"
)

type App struct {
	config *config.Config
	client *api.Client
	reader *bufio.Reader

	userID string

	// current working project and environment, set by use/unlock
	projectID     string
	environmentID string
}

func NewApp(c *config.Config) (*App, error) {
	return &App{
		config: c,
		client: api.NewClient(c.ServerEndpointAddr),
		reader: bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) isLoggedIn() bool {
	return a.userID != ""
}

func (a *App) Run() {
	runREPL(a, a.status, bufio.NewScanner(os.Stdin))
}

func (a *App) status() string {
	if !a.isLoggedIn() {
		return "not logged in"
	}
	if a.projectID == "" {
		return "no project"
	}
	return a.projectID
}
