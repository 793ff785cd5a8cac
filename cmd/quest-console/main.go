// Command quest-console is a terminal stand-in for the web front end: every
// keystroke is fed to a quest Session backed by the entry service API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"quest-entry-service/client"
	"quest-entry-service/config"
	"quest-entry-service/easteregg"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		apiURL string
		wallet string
		route  string
	)

	cmd := &cobra.Command{
		Use:           "quest-console",
		Short:         "Type cheat codes against the quest entry service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadClient()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("api") || cfg.APIURL == "" {
				cfg.APIURL = apiURL
			}
			if cmd.Flags().Changed("wallet") || cfg.Wallet == "" {
				cfg.Wallet = wallet
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, route)
		},
	}

	cmd.Flags().StringVar(&apiURL, "api", "http://localhost:5200", "quest entry service base URL")
	cmd.Flags().StringVar(&wallet, "wallet", "", "linked wallet address")
	cmd.Flags().StringVar(&route, "route", "/position-management", "starting page")
	return cmd
}

func run(ctx context.Context, cfg config.ClientConfig, route string) error {
	api := client.New(cfg.APIURL)
	session := easteregg.NewSession(cfg.Codes, cfg.Session, api)
	session.SetRoute(route)

	m := newModel(session, api, cfg, route)
	if cfg.Wallet != "" {
		wctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		err := session.SetWallet(wctx, cfg.Wallet)
		cancel()
		if err != nil {
			m.pushNotice(easteregg.NoticeError, "Could not load entry: "+err.Error())
		}
	}

	_, err := tea.NewProgram(m, tea.WithContext(ctx)).Run()
	return err
}
