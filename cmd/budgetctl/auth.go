package main

import (
	"budgetwise/internal/export"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"
)

const authTimeout = 5 * time.Minute

func authCommand(s *session) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "credentials setup",
		Subcommands: []*cli.Command{
			{
				Name:  "google",
				Usage: "authorize Sheets export and store the OAuth token",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "port", Value: 8085, Usage: "local redirect port"},
				},
				Action: func(c *cli.Context) error {
					if s.cfg.GoogleOAuthClientFile == "" || s.cfg.GoogleOAuthTokenFile == "" {
						return errors.New("GOOGLE_OAUTH_CLIENT_FILE and GOOGLE_OAUTH_TOKEN_FILE are required")
					}
					conf, err := export.OAuthConfig(s.cfg.GoogleOAuthClientFile)
					if err != nil {
						return err
					}
					conf.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", c.Int("port"))

					state := newState()
					fmt.Fprintf(c.App.Writer, "Open this URL to authorize:\n%s\n", conf.AuthCodeURL(state, oauth2.AccessTypeOffline))
					tok, err := awaitToken(c.Context, conf, c.Int("port"), state)
					if err != nil {
						return err
					}
					if err := export.SaveToken(s.cfg.GoogleOAuthTokenFile, tok); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "saved token to %s\n", s.cfg.GoogleOAuthTokenFile)
					return nil
				},
			},
		},
	}
}

func newState() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// awaitToken serves the redirect once and exchanges the code it receives.
func awaitToken(ctx context.Context, conf *oauth2.Config, port int, state string) (*oauth2.Token, error) {
	codes := make(chan string, 1)
	failures := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("error") != "":
			http.Error(w, "authorization failed: "+q.Get("error"), http.StatusBadRequest)
			select {
			case failures <- fmt.Errorf("authorization failed: %s", q.Get("error")):
			default:
			}
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
		default:
			fmt.Fprintln(w, "You may close this window and return to the terminal.")
			select {
			case codes <- q.Get("code"):
			default:
			}
		}
	})
	srv := &http.Server{
		Addr:              fmt.Sprintf("localhost:%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case failures <- err:
			default:
			}
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	select {
	case code := <-codes:
		tok, err := conf.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("token exchange: %w", err)
		}
		return tok, nil
	case err := <-failures:
		return nil, err
	case <-time.After(authTimeout):
		return nil, errors.New("authorization timed out")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
