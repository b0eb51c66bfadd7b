package app

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/aussiebroadwan/sharebox/pkg/apiclient"
)

func groupCommands() []command {
	return []command{
		{name: "list", args: "[--owned | --joined]", summary: "list your groups", session: true, run: runGroupList},
		{name: "create", args: "--name N [--description D] [--member ID]...", summary: "create a group you found", session: true, run: runGroupCreate},
		{name: "get", args: "<group-id>", summary: "show a group and its members", session: true, run: runGroupGet},
		{name: "update", args: "<group-id> --name N [--description D]", summary: "rename a group", session: true, run: runGroupUpdate},
		{name: "delete", args: "<group-id>", summary: "delete a group", session: true, run: runGroupDelete},
		{name: "add", args: "<group-id> <user-id>...", summary: "add members", session: true, run: runGroupAdd},
		{name: "remove", args: "<group-id> <user-id>...", summary: "remove members", session: true, run: runGroupRemove},
		{name: "files", args: "<group-id>", summary: "list files shared with a group", session: true, run: runGroupFiles},
	}
}

func runGroupList(ctx context.Context, a *App, args []string) error {
	fs := a.flags("groups list")
	ownedOnly := fs.Bool("owned", false, "only groups you found or administer")
	joinedOnly := fs.Bool("joined", false, "only groups you are a member of")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}
	if *ownedOnly && *joinedOnly {
		return fmt.Errorf("%w: --owned and --joined are exclusive", ErrUsage)
	}

	me, err := present(a.client.CurrentUser(ctx))
	if err != nil {
		return err
	}
	groups, err := a.client.ListMyGroups(ctx)
	if err != nil {
		return err
	}

	owned, joined := apiclient.PartitionGroups(me.ID, groups)
	switch {
	case *ownedOnly:
		groups = owned
	case *joinedOnly:
		groups = joined
	default:
		groups = append(owned, joined...)
	}

	isOwned := make(map[string]bool, len(owned))
	for _, g := range owned {
		isOwned[g.ID] = true
	}
	return a.render(groups, func(tw *tabwriter.Writer) {
		groupTable(tw, groups, func(g apiclient.GroupDto) string {
			if isOwned[g.ID] {
				return "owned"
			}
			return "joined"
		})
	})
}

func runGroupCreate(ctx context.Context, a *App, args []string) error {
	fs := a.flags("groups create")
	name := fs.String("name", "", "group name")
	description := fs.String("description", "", "group description")
	members := fs.StringSlice("member", nil, "user ID to add as MEMBER (repeatable)")
	admins := fs.StringSlice("admin", nil, "user ID to add as ADMIN (repeatable)")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}
	if *name == "" {
		return fmt.Errorf("%w: --name is required", ErrUsage)
	}

	me, err := present(a.client.CurrentUser(ctx))
	if err != nil {
		return err
	}

	req := apiclient.CreateGroupRequest{Name: *name, Description: *description, OwnerID: me.ID}
	for _, id := range *members {
		req.UserRoles = append(req.UserRoles, apiclient.CreateUserGroupRoleDto{ID: id, Role: apiclient.GroupRoleMember})
	}
	for _, id := range *admins {
		req.UserRoles = append(req.UserRoles, apiclient.CreateUserGroupRoleDto{ID: id, Role: apiclient.GroupRoleAdmin})
	}

	g, err := present(a.client.CreateGroup(ctx, req))
	if err != nil {
		return err
	}
	return a.showGroup(g)
}

func (a *App) showGroup(g *apiclient.GroupDto) error {
	return a.render(g, func(tw *tabwriter.Writer) {
		row(tw, "ID", g.ID)
		row(tw, "NAME", g.Name)
		if g.Description != "" {
			row(tw, "DESCRIPTION", g.Description)
		}
		row(tw, "")
		row(tw, "MEMBER", "ROLE", "JOINED")
		for _, m := range g.UserRoles {
			name := "-"
			if m.User != nil {
				name = m.User.Username
			}
			row(tw, name, m.Role, when(m.JoinedAt))
		}
	})
}

func runGroupGet(ctx context.Context, a *App, args []string) error {
	rest, err := parse(a.flags("groups get"), args, 1)
	if err != nil {
		return err
	}
	g, err := present(a.client.GetGroup(ctx, rest[0]))
	if err != nil {
		return err
	}
	return a.showGroup(g)
}

func runGroupUpdate(ctx context.Context, a *App, args []string) error {
	fs := a.flags("groups update")
	name := fs.String("name", "", "new group name")
	description := fs.String("description", "", "new description")
	rest, err := parse(fs, args, 1)
	if err != nil {
		return err
	}
	if *name == "" {
		return fmt.Errorf("%w: --name is required", ErrUsage)
	}

	g, err := present(a.client.UpdateGroup(ctx, apiclient.GroupUpdateRequest{ID: rest[0], Name: *name, Description: *description}))
	if err != nil {
		return err
	}
	return a.showGroup(g)
}

func runGroupDelete(ctx context.Context, a *App, args []string) error {
	rest, err := parse(a.flags("groups delete"), args, 1)
	if err != nil {
		return err
	}
	if err := a.client.DeleteGroup(ctx, rest[0]); err != nil {
		return err
	}
	a.printf("Deleted group %s\n", rest[0])
	return nil
}

func runGroupAdd(ctx context.Context, a *App, args []string) error {
	rest, err := parse(a.flags("groups add"), args, -1)
	if err != nil {
		return err
	}
	if len(rest) < 2 {
		return fmt.Errorf("%w: groups add expects a group ID and at least one user ID", ErrUsage)
	}
	g, err := present(a.client.AddUsersToGroup(ctx, rest[0], rest[1:]))
	if err != nil {
		return err
	}
	return a.showGroup(g)
}

func runGroupRemove(ctx context.Context, a *App, args []string) error {
	rest, err := parse(a.flags("groups remove"), args, -1)
	if err != nil {
		return err
	}
	if len(rest) < 2 {
		return fmt.Errorf("%w: groups remove expects a group ID and at least one user ID", ErrUsage)
	}
	g, err := present(a.client.RemoveUsersFromGroup(ctx, rest[0], rest[1:]))
	if err != nil {
		return err
	}
	return a.showGroup(g)
}

func runGroupFiles(ctx context.Context, a *App, args []string) error {
	rest, err := parse(a.flags("groups files"), args, 1)
	if err != nil {
		return err
	}
	g, err := present(a.client.GetGroup(ctx, rest[0]))
	if err != nil {
		return err
	}
	files := apiclient.GroupFiles(*g)
	return a.render(files, func(tw *tabwriter.Writer) { fileTable(tw, files) })
}
