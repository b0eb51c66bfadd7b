package app

import (
	"context"
	"text/tabwriter"

	"github.com/aussiebroadwan/sharebox/pkg/apiclient"
)

func userCommands() []command {
	return []command{
		{name: "get", args: "<user-id>", summary: "show a user", session: true, run: runUserGet},
		{name: "find", args: "<email>", summary: "look a user up by email", session: true, run: runUserFind},
		{name: "passwd", summary: "change your password, read from stdin", session: true, run: runUserPasswd},
		{name: "email", args: "<new-email>", summary: "change your email address", session: true, run: runUserEmail},
	}
}

func (a *App) showUser(u *apiclient.UserDto) error {
	return a.render(u, func(tw *tabwriter.Writer) { userRow(tw, u) })
}

func runUserGet(ctx context.Context, a *App, args []string) error {
	rest, err := parse(a.flags("users get"), args, 1)
	if err != nil {
		return err
	}
	u, err := present(a.client.GetUser(ctx, rest[0]))
	if err != nil {
		return err
	}
	return a.showUser(u)
}

func runUserFind(ctx context.Context, a *App, args []string) error {
	rest, err := parse(a.flags("users find"), args, 1)
	if err != nil {
		return err
	}
	u, err := present(a.client.GetUserByEmail(ctx, rest[0]))
	if err != nil {
		return err
	}
	return a.showUser(u)
}

func runUserPasswd(ctx context.Context, a *App, args []string) error {
	if _, err := parse(a.flags("users passwd"), args, 0); err != nil {
		return err
	}

	me, err := present(a.client.CurrentUser(ctx))
	if err != nil {
		return err
	}
	password, err := a.readSecret("New password: ")
	if err != nil {
		return err
	}
	if _, err := a.client.ChangePassword(ctx, me.ID, password); err != nil {
		return err
	}
	a.printf("Password changed\n")
	return nil
}

func runUserEmail(ctx context.Context, a *App, args []string) error {
	rest, err := parse(a.flags("users email"), args, 1)
	if err != nil {
		return err
	}
	me, err := present(a.client.CurrentUser(ctx))
	if err != nil {
		return err
	}
	u, err := present(a.client.UpdateEmail(ctx, me.ID, rest[0]))
	if err != nil {
		return err
	}
	return a.showUser(u)
}
