package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"marketsense/internal/assistant"
	"marketsense/internal/model"
	"marketsense/internal/remote"
	"marketsense/internal/render"
	"marketsense/internal/version"
)

func newAskCommand(a *app) *cobra.Command {
	var (
		audioPath string
		remoteURL string
		speak     bool
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "ask [question...]",
		Short: "Ask the assistant a question",
		Long: `Ask about a commodity, optionally naming a market. Without a market
the assistant scans every market and compares prices.

Examples:
  marketsense ask "How much rice for Mile 12?"
  marketsense ask where tomato cheap pass
  marketsense ask --audio question.ogg --speak
  marketsense ask --remote http://localhost:8080 "price of garri for Wuse"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := assistant.Query{
				Text:  strings.Join(args, " "),
				Speak: speak,
			}
			if audioPath != "" {
				data, err := os.ReadFile(audioPath)
				if err != nil {
					return fmt.Errorf("failed to read voice note: %w", err)
				}
				query.Audio = data
			}

			var (
				answer *model.Answer
				err    error
			)
			if remoteURL != "" {
				answer, err = askRemote(cmd, a, remoteURL, query)
			} else {
				answer, err = a.assistant.Ask(cmd.Context(), query)
			}
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), render.Error(replyFor(err)))
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), answer)
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.Answer(answer))
			return nil
		},
	}

	cmd.Flags().StringVar(&audioPath, "audio", "", "voice note to transcribe (wav, mp3, ogg, webm, m4a)")
	cmd.Flags().StringVar(&remoteURL, "remote", "", "ask a running server instead of answering locally")
	cmd.Flags().BoolVar(&speak, "speak", false, "also speak the advice")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the answer as JSON")

	return cmd
}

func askRemote(cmd *cobra.Command, a *app, rawURL string, query assistant.Query) (*model.Answer, error) {
	client, err := remote.NewClient(a.logger, rawURL)
	if err != nil {
		return nil, err
	}
	session, err := client.Connect(cmd.Context())
	if err != nil {
		return nil, err
	}
	defer session.Close()

	return session.Ask(cmd.Context(), query)
}

// replyFor returns the user-facing text for a local or remote failure.
func replyFor(err error) string {
	var remoteErr *remote.Error
	if errors.As(err, &remoteErr) {
		return remoteErr.Reply
	}
	return assistant.Reply(err)
}

func newPriceCommand(a *app) *cobra.Command {
	var (
		market    string
		commodity string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "price",
		Short: "Get the price of a commodity in one market",
		RunE: func(cmd *cobra.Command, args []string) error {
			if market == "" || commodity == "" {
				return fmt.Errorf("--market and --commodity flags are required")
			}

			quote, err := a.assistant.Price(market, commodity)
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), render.Error(assistant.Reply(err)))
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), quote)
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.Quote(quote))
			return nil
		},
	}

	cmd.Flags().StringVar(&market, "market", "", "market name, e.g. \"Mile 12\"")
	cmd.Flags().StringVar(&commodity, "commodity", "", "commodity name, e.g. Rice")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the quote as JSON")

	return cmd
}

func newScanCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "scan <commodity>",
		Short: "Compare a commodity's price across every market",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := a.assistant.Scan(strings.Join(args, " "))
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), render.Error(assistant.Reply(err)))
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.Report(report))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")

	return cmd
}

func newCatalogCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the known markets and commodities",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), render.Catalog(a.assistant.Catalog()))
			return nil
		},
	}
}

// newHistoryCommand reads recent checks from a running server. Answers are
// kept in memory by the server process only.
func newHistoryCommand(a *app) *cobra.Command {
	var (
		serverURL string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent checks from a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			base := serverURL
			if base == "" {
				base = localURL(a.cfg.Server.Addr)
			}

			answers, err := fetchHistory(cmd, base, limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.History(answers))
			return nil
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "", "server base URL (default: derived from server.addr)")
	cmd.Flags().IntVar(&limit, "limit", 10, "number of checks to show")

	return cmd
}

func fetchHistory(cmd *cobra.Command, base string, limit int) ([]model.Answer, error) {
	u, err := url.Parse(strings.TrimSuffix(base, "/") + "/v1/history")
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	u.RawQuery = url.Values{"limit": {strconv.Itoa(limit)}}.Encode()

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %s", resp.Status)
	}

	var answers []model.Answer
	if err := json.NewDecoder(resp.Body).Decode(&answers); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return answers, nil
}

// localURL turns a listen address such as ":8080" into a client URL.
func localURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// Needs no configuration.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "marketsense "+version.String())
		},
	}
}
