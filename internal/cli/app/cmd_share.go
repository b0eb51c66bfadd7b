package app

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/aussiebroadwan/sharebox/pkg/apiclient"
	"github.com/spf13/pflag"
)

func shareCommands() []command {
	return []command{
		{name: "user", args: "<file-id> <email> [--permission read|write]", summary: "share a file with a user", session: true, run: runShareUser},
		{name: "group", args: "<file-id> <group-id> [--permission read|write]", summary: "share a file with a group", session: true, run: runShareGroup},
		{name: "with-me", summary: "list files shared with you", session: true, run: runSharedWithMe},
		{name: "with-my-groups", summary: "list files shared with your groups", session: true, run: runSharedWithMyGroups},
		{name: "of-user", args: "<user-id>", summary: "list files shared with a user", session: true, run: runSharedWithUser},
		{name: "of-group", args: "<group-id>", summary: "list files shared with a group", session: true, run: runSharedWithGroup},
		{name: "revoke-user", args: "<file-id> <user-id>", summary: "stop sharing a file with a user", session: true, run: runUnshareUser},
		{name: "revoke-group", args: "<file-id> <group-id>", summary: "stop sharing a file with a group", session: true, run: runUnshareGroup},
	}
}

func permissionFlag(fs *pflag.FlagSet) *string {
	return fs.String("permission", "read", "read or write")
}

func toPermission(s string) (apiclient.Permission, error) {
	p, ok := apiclient.ParsePermission(s)
	if !ok {
		return "", fmt.Errorf("%w: unknown permission %q", ErrUsage, s)
	}
	return p, nil
}

func runShareUser(ctx context.Context, a *App, args []string) error {
	fs := a.flags("share user")
	perm := permissionFlag(fs)
	rest, err := parse(fs, args, 2)
	if err != nil {
		return err
	}
	p, err := toPermission(*perm)
	if err != nil {
		return err
	}

	share, err := present(a.client.ShareWithUserByEmail(ctx, rest[0], rest[1], p))
	if err != nil {
		return err
	}
	a.printf("Shared %s with %s (%s)\n", share.File.Filename, share.SharedWith.Username, share.Permission)
	return nil
}

func runShareGroup(ctx context.Context, a *App, args []string) error {
	fs := a.flags("share group")
	perm := permissionFlag(fs)
	rest, err := parse(fs, args, 2)
	if err != nil {
		return err
	}
	p, err := toPermission(*perm)
	if err != nil {
		return err
	}

	share, err := present(a.client.ShareWithGroup(ctx, apiclient.FileSharingWithGroupRequest{
		FileID:     rest[0],
		GroupID:    rest[1],
		Permission: p,
	}))
	if err != nil {
		return err
	}
	group := rest[1]
	if share.Group != nil {
		group = share.Group.Name
	}
	a.printf("Shared %s with group %s (%s)\n", share.File.Filename, group, share.Permission)
	return nil
}

func (a *App) userShares(shares []apiclient.SharedFileWithUserDto) error {
	return a.render(shares, func(tw *tabwriter.Writer) {
		row(tw, "FILE ID", "NAME", "OWNER", "SHARED WITH", "PERMISSION", "SHARED")
		for _, s := range shares {
			row(tw, s.File.ID, s.File.Filename, s.File.Owner.Username, s.SharedWith.Username, strings.ToLower(string(s.Permission)), when(s.SharedAt))
		}
	})
}

func (a *App) groupShares(shares []apiclient.SharedFileWithGroupDto) error {
	return a.render(shares, func(tw *tabwriter.Writer) {
		row(tw, "FILE ID", "NAME", "OWNER", "GROUP", "PERMISSION", "SHARED")
		for _, s := range shares {
			group := "-"
			if s.Group != nil {
				group = s.Group.Name
			}
			row(tw, s.File.ID, s.File.Filename, s.File.Owner.Username, group, strings.ToLower(string(s.Permission)), when(s.SharedAt))
		}
	})
}

func runSharedWithMe(ctx context.Context, a *App, args []string) error {
	if _, err := parse(a.flags("share with-me"), args, 0); err != nil {
		return err
	}
	shares, err := a.client.ListSharedWithMe(ctx)
	if err != nil {
		return err
	}
	return a.userShares(shares)
}

func runSharedWithMyGroups(ctx context.Context, a *App, args []string) error {
	if _, err := parse(a.flags("share with-my-groups"), args, 0); err != nil {
		return err
	}
	shares, err := a.client.ListSharedWithMyGroups(ctx)
	if err != nil {
		return err
	}
	return a.groupShares(shares)
}

func runSharedWithUser(ctx context.Context, a *App, args []string) error {
	rest, err := parse(a.flags("share of-user"), args, 1)
	if err != nil {
		return err
	}
	shares, err := a.client.ListSharedWithUser(ctx, rest[0])
	if err != nil {
		return err
	}
	return a.userShares(shares)
}

func runSharedWithGroup(ctx context.Context, a *App, args []string) error {
	rest, err := parse(a.flags("share of-group"), args, 1)
	if err != nil {
		return err
	}
	shares, err := a.client.ListSharedWithGroup(ctx, rest[0])
	if err != nil {
		return err
	}
	return a.groupShares(shares)
}

func runUnshareUser(ctx context.Context, a *App, args []string) error {
	rest, err := parse(a.flags("share revoke-user"), args, 2)
	if err != nil {
		return err
	}
	if err := a.client.UnshareWithUser(ctx, rest[1], rest[0]); err != nil {
		return err
	}
	a.printf("Revoked %s for user %s\n", rest[0], rest[1])
	return nil
}

func runUnshareGroup(ctx context.Context, a *App, args []string) error {
	rest, err := parse(a.flags("share revoke-group"), args, 2)
	if err != nil {
		return err
	}
	if err := a.client.UnshareWithGroup(ctx, rest[1], rest[0]); err != nil {
		return err
	}
	a.printf("Revoked %s for group %s\n", rest[0], rest[1])
	return nil
}
