package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/aussiebroadwan/sharebox/pkg/apiclient"
	"github.com/aussiebroadwan/sharebox/pkg/credstore"
	"github.com/aussiebroadwan/sharebox/pkg/cryptox"
	"github.com/aussiebroadwan/sharebox/pkg/jwtx"
)

func runLogin(ctx context.Context, a *App, args []string) error {
	fs := a.flags("login")
	username := fs.String("username", "", "account name (prompted when empty)")
	password := fs.String("password", "", "password (prefer --password-stdin)")
	fromStdin := fs.Bool("password-stdin", false, "read the password from stdin")
	force := fs.Bool("force", false, "log in even when a session is stored")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}

	if !*force {
		ok, err := a.client.LoggedIn(ctx)
		if err != nil {
			return fmt.Errorf("failed to read credentials: %w", err)
		}
		if ok {
			return errors.New("already logged in, use --force to log in again")
		}
	}

	if *username == "" {
		u, err := a.readSecret("Username: ")
		if err != nil {
			return err
		}
		*username = strings.TrimSpace(u)
	}
	if *password == "" || *fromStdin {
		p, err := a.readSecret("Password: ")
		if err != nil {
			return err
		}
		*password = p
	}

	if _, err := a.client.Authenticate(ctx, *username, *password); err != nil {
		return err
	}
	a.printf("Logged in as %s\n", *username)
	return nil
}

func runLogout(ctx context.Context, a *App, args []string) error {
	if _, err := parse(a.flags("logout"), args, 0); err != nil {
		return err
	}
	if err := a.client.Logout(ctx); err != nil {
		return err
	}
	a.printf("Logged out\n")
	return nil
}

func runRegister(ctx context.Context, a *App, args []string) error {
	fs := a.flags("register")
	username := fs.String("username", "", "account name")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password (prefer --password-stdin)")
	fromStdin := fs.Bool("password-stdin", false, "read the password from stdin")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}
	if *username == "" || *email == "" {
		return fmt.Errorf("%w: --username and --email are required", ErrUsage)
	}
	if *password == "" || *fromStdin {
		p, err := a.readSecret("Password: ")
		if err != nil {
			return err
		}
		*password = p
	}

	if err := a.client.Register(ctx, apiclient.UserCreateRequest{
		Username: *username,
		Email:    *email,
		Password: *password,
	}); err != nil {
		return err
	}
	a.printf("Registered %s, run `sharebox login` to start a session\n", *username)
	return nil
}

// sessionStatus is what `status` reports. It is derived from the stored
// pair only; nothing is sent to the backend.
type sessionStatus struct {
	BaseURL       string    `json:"baseUrl"`
	Store         string    `json:"store"`
	Profile       string    `json:"profile,omitempty"`
	File          string    `json:"file,omitempty"`
	LoggedIn      bool      `json:"loggedIn"`
	Subject       string    `json:"subject,omitempty"`
	Username      string    `json:"username,omitempty"`
	Roles         []string  `json:"roles,omitempty"`
	ExpiresAt     time.Time `json:"expiresAt,omitzero"`
	Expired       bool      `json:"expired"`
	CanRefresh    bool      `json:"canRefresh"`
	RefreshFinger string    `json:"refreshFingerprint,omitempty"`
}

func runStatus(ctx context.Context, a *App, args []string) error {
	if _, err := parse(a.flags("status"), args, 0); err != nil {
		return err
	}

	pair, err := credstore.LoadOrEmpty(ctx, a.store)
	if err != nil {
		return fmt.Errorf("failed to read credentials: %w", err)
	}

	st := sessionStatus{
		BaseURL:    a.cfg.BaseURL,
		Store:      a.cfg.Store,
		LoggedIn:   pair.AccessToken != "",
		CanRefresh: pair.RefreshToken != "",
	}
	if a.sqlite != nil {
		st.Profile = a.sqlite.Profile()
	}
	if f, ok := a.store.(*credstore.File); ok {
		st.File = f.Path()
	}
	if st.CanRefresh {
		st.RefreshFinger = cryptox.ShortFingerprint(pair.RefreshToken)
	}
	if st.LoggedIn {
		// Opaque tokens are fine; only JWTs carry claims worth showing.
		if claims, err := jwtx.Inspect(pair.AccessToken); err == nil {
			st.Subject = claims.Subject
			st.Username = claims.Username
			st.Roles = claims.Roles
			if left, ok := claims.ExpiresIn(time.Now()); ok {
				st.ExpiresAt = claims.ExpiresAt.Time
				st.Expired = left <= 0
			}
		}
	}

	return a.render(st, func(tw *tabwriter.Writer) {
		row(tw, "BASE URL", st.BaseURL)
		row(tw, "STORE", st.Store)
		if st.Profile != "" {
			row(tw, "PROFILE", st.Profile)
		}
		if st.File != "" {
			row(tw, "FILE", st.File)
		}
		row(tw, "LOGGED IN", st.LoggedIn)
		if st.Username != "" {
			row(tw, "USER", st.Username+" ("+st.Subject+")")
		}
		if !st.ExpiresAt.IsZero() {
			state := "valid"
			if st.Expired {
				state = "expired, refreshed on next request"
			}
			row(tw, "ACCESS TOKEN", st.ExpiresAt.Local().Format(time.DateTime)+" ("+state+")")
		}
		if st.CanRefresh {
			row(tw, "REFRESH TOKEN", st.RefreshFinger)
		}
	})
}

func runWhoami(ctx context.Context, a *App, args []string) error {
	if _, err := parse(a.flags("whoami"), args, 0); err != nil {
		return err
	}
	me, err := present(a.client.CurrentUser(ctx))
	if err != nil {
		return err
	}
	return a.render(me, func(tw *tabwriter.Writer) { userRow(tw, me) })
}
