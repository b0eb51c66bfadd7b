package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"
)

func runHealth(ctx context.Context, a *App, args []string) error {
	if _, err := parse(a.flags("health"), args, 0); err != nil {
		return err
	}
	h, err := present(a.client.Health(ctx))
	if err != nil {
		return err
	}

	names := make([]string, 0, len(h.Components))
	for name := range h.Components {
		names = append(names, name)
	}
	sort.Strings(names)

	if err := a.render(h, func(tw *tabwriter.Writer) {
		row(tw, "COMPONENT", "STATUS")
		row(tw, "overall", h.Status)
		for _, name := range names {
			row(tw, name, h.Components[name].Status)
		}
	}); err != nil {
		return err
	}
	if !h.Up() {
		return fmt.Errorf("backend is %s", h.Status)
	}
	return nil
}

func runProfiles(ctx context.Context, a *App, args []string) error {
	if _, err := parse(a.flags("profiles"), args, 0); err != nil {
		return err
	}
	if a.sqlite == nil {
		return errors.New("profiles need the sqlite store, set store: sqlite")
	}

	profiles, err := a.sqlite.Profiles(ctx)
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}
	current := a.sqlite.Profile()

	return a.render(profiles, func(tw *tabwriter.Writer) {
		row(tw, "", "PROFILE", "BASE URL", "REFRESH TOKEN", "UPDATED")
		for _, p := range profiles {
			mark := ""
			if p.Name == current {
				mark = "*"
			}
			row(tw, mark, p.Name, p.BaseURL, p.RefreshFingerprint, p.UpdatedAt.Local().Format(time.DateTime))
		}
	})
}

func runConfigShow(_ context.Context, a *App, args []string) error {
	if _, err := parse(a.flags("config show"), args, 0); err != nil {
		return err
	}

	if a.cfg.ConfigFileUsed != "" {
		fmt.Fprintf(a.errOut, "# %s\n", a.cfg.ConfigFileUsed)
	}
	enc := yaml.NewEncoder(a.out)
	enc.SetIndent(2)
	if err := enc.Encode(a.cfg.Redacted()); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}
