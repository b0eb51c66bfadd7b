package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/aussiebroadwan/sharebox/pkg/apiclient"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// render prints v as indented JSON when --json is set, otherwise through
// table.
func (a *App) render(v any, table func(tw *tabwriter.Writer)) error {
	if a.cfg.JSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := newTable(a.out)
	table(tw)
	return tw.Flush()
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func row(tw *tabwriter.Writer, cols ...any) {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprint(c)
	}
	fmt.Fprintln(tw, strings.Join(parts, "\t"))
}

func when(t apiclient.Timestamp) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

// humanSize formats n bytes with a binary unit.
func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func userRow(tw *tabwriter.Writer, u *apiclient.UserDto) {
	roles := make([]string, len(u.Roles))
	for i, r := range u.Roles {
		roles[i] = string(r)
	}
	row(tw, "ID", u.ID)
	row(tw, "USERNAME", u.Username)
	row(tw, "EMAIL", u.Email)
	row(tw, "ROLES", strings.Join(roles, ","))
}

func fileTable(tw *tabwriter.Writer, files []apiclient.FileDto) {
	row(tw, "ID", "NAME", "SIZE", "VERSION", "OWNER", "UPDATED")
	for _, f := range files {
		row(tw, f.ID, f.Filename, humanSize(f.Size), f.Version, f.Owner.Username, when(f.UpdatedAt))
	}
}

func groupTable(tw *tabwriter.Writer, groups []apiclient.GroupDto, relation func(apiclient.GroupDto) string) {
	row(tw, "ID", "NAME", "MEMBERS", "FILES", "RELATION")
	for _, g := range groups {
		row(tw, g.ID, g.Name, len(g.UserRoles), len(apiclient.GroupFiles(g)), relation(g))
	}
}
