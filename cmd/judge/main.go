package main

import (
	"fmt"
	"os"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/go-judge-client/api"
	"github.com/jrsteele09/go-judge-client/auth"
	"github.com/jrsteele09/go-judge-client/authstate"
	"github.com/jrsteele09/go-judge-client/internal/browser"
	"github.com/jrsteele09/go-judge-client/internal/config"
	"github.com/jrsteele09/go-judge-client/session"
	"github.com/jrsteele09/go-judge-client/storage/filerepo"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	_ = godotenv.Load()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if config.New().GetEnv() != "DEV" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	app := &cli.App{
		Name:  "judge",
		Usage: "client for the judge coding-challenge platform",
		Commands: []*cli.Command{
			loginCommand(),
			logoutCommand(),
			whoamiCommand(),
			providersCommand(),
			challengesCommand(),
			challengeCommand(),
			repositoriesCommand(),
			testingsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("Command failed")
	}
}

// appContext bundles the wired-up client pieces a command needs.
type appContext struct {
	config       config.Config
	client       *api.Client
	sessions     *session.Store
	orchestrator *auth.Orchestrator
}

// cliNavigator maps the orchestrator's terminal navigation actions onto
// a terminal session: the login surface is a hint, the provider
// redirect opens the system browser.
type cliNavigator struct{}

func (cliNavigator) ToLogin() {
	fmt.Println("Not logged in. Run `judge login` to authenticate.")
}

func (cliNavigator) ToProvider(url string) {
	fmt.Printf("Opening your browser to continue the login:\n\n  %s\n\n", url)
	if err := browser.Open(url); err != nil {
		log.Debug().Err(err).Msg("Could not spawn a browser, open the URL manually")
	}
}

func setup() (*appContext, error) {
	c := config.New()

	repo, err := filerepo.New(c.GetDataFolder())
	if err != nil {
		return nil, errors.Wrap(err, "[setup] filerepo.New")
	}

	client := api.NewClient(c.GetServerURL())
	sessions := session.NewStore(repo)

	redirectURI := fmt.Sprintf("http://%s/callback", c.GetCallbackAddr())
	orchestrator, err := auth.New(auth.Deps{
		Sessions:    sessions,
		Correlation: authstate.NewStore(repo),
		API:         client,
		Navigator:   cliNavigator{},
	}, redirectURI)
	if err != nil {
		return nil, errors.Wrap(err, "[setup] auth.New")
	}

	return &appContext{
		config:       c,
		client:       client,
		sessions:     sessions,
		orchestrator: orchestrator,
	}, nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
