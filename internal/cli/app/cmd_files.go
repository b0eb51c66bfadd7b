package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/aussiebroadwan/sharebox/pkg/apiclient"
)

func fileCommands() []command {
	return []command{
		{name: "list", args: "[--all]", summary: "list files you own, or every file you can read", session: true, run: runFileList},
		{name: "get", args: "<file-id>", summary: "show file metadata", session: true, run: runFileGet},
		{name: "upload", args: "<path>... [--parallel N]", summary: "upload files", session: true, run: runFileUpload},
		{name: "replace", args: "<file-id> <path>", summary: "upload a new version", session: true, run: runFileReplace},
		{name: "download", args: "<file-id> [-o PATH]", summary: "download a file", session: true, run: runFileDownload},
		{name: "delete", args: "<file-id>", summary: "delete a file", session: true, run: runFileDelete},
		{name: "not-shared", args: "<user-id>", summary: "list your files not yet shared with a user", session: true, run: runFileNotShared},
	}
}

func runFileList(ctx context.Context, a *App, args []string) error {
	fs := a.flags("files list")
	all := fs.Bool("all", false, "include files shared with you directly or through groups")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}

	var (
		files []apiclient.FileDto
		err   error
	)
	if *all {
		var me *apiclient.UserDto
		if me, err = present(a.client.CurrentUser(ctx)); err != nil {
			return err
		}
		files, err = a.client.ListAllFiles(ctx, me.ID)
	} else {
		files, err = a.client.ListMyFiles(ctx)
	}
	if err != nil {
		return err
	}
	return a.render(files, func(tw *tabwriter.Writer) { fileTable(tw, files) })
}

func (a *App) showFile(f *apiclient.FileDto) error {
	return a.render(f, func(tw *tabwriter.Writer) {
		row(tw, "ID", f.ID)
		row(tw, "NAME", f.Filename)
		row(tw, "TYPE", f.FileType)
		row(tw, "SIZE", humanSize(f.Size))
		row(tw, "VERSION", f.Version)
		row(tw, "OWNER", f.Owner.Username)
		row(tw, "CREATED", when(f.CreatedAt))
		row(tw, "UPDATED", when(f.UpdatedAt))
	})
}

func runFileGet(ctx context.Context, a *App, args []string) error {
	rest, err := parse(a.flags("files get"), args, 1)
	if err != nil {
		return err
	}
	f, err := present(a.client.GetFile(ctx, rest[0]))
	if err != nil {
		return err
	}
	return a.showFile(f)
}

func runFileUpload(ctx context.Context, a *App, args []string) error {
	fs := a.flags("files upload")
	parallel := fs.Int("parallel", a.cfg.UploadParallelism, "concurrent uploads")
	paths, err := parse(fs, args, -1)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("%w: files upload expects at least one path", ErrUsage)
	}

	me, err := present(a.client.CurrentUser(ctx))
	if err != nil {
		return err
	}

	files := make([]apiclient.FormFile, len(paths))
	for i, p := range paths {
		files[i] = apiclient.FileFromPath(apiclient.FileField, p)
	}
	results := a.client.UploadFiles(ctx, me.ID, files, *parallel)

	var failed int
	uploaded := make([]apiclient.FileDto, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(a.errOut, "upload %s: %v\n", r.Filename, r.Err)
			continue
		}
		uploaded = append(uploaded, *r.File)
	}

	if err := a.render(uploaded, func(tw *tabwriter.Writer) { fileTable(tw, uploaded) }); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(results))
	}
	return nil
}

func runFileReplace(ctx context.Context, a *App, args []string) error {
	rest, err := parse(a.flags("files replace"), args, 2)
	if err != nil {
		return err
	}
	f, err := present(a.client.ReplaceFile(ctx, rest[0], apiclient.FileFromPath(apiclient.FileField, rest[1])))
	if err != nil {
		return err
	}
	return a.showFile(f)
}

func runFileDownload(ctx context.Context, a *App, args []string) error {
	fs := a.flags("files download")
	output := fs.StringP("output", "o", "", "destination path, - for stdout (default: the stored filename)")
	rest, err := parse(fs, args, 1)
	if err != nil {
		return err
	}
	id := rest[0]

	if *output == "-" {
		_, err := a.client.StreamFile(ctx, id, a.out)
		return err
	}

	// The name is only known once the response arrives, so stream into a
	// temporary file next to the destination and rename afterwards.
	dir := "."
	if *output != "" {
		dir = filepath.Dir(*output)
	}
	tmp, err := os.CreateTemp(dir, ".sharebox-download-*")
	if err != nil {
		return fmt.Errorf("failed to create download file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	dl, err := a.client.StreamFile(ctx, id, tmp)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}

	dest := *output
	if dest == "" {
		dest = safeName(dl.Filename, id)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("failed to save download: %w", err)
	}

	fmt.Fprintf(a.errOut, "Saved %s (%s)\n", dest, humanSize(dl.Bytes))
	return nil
}

// safeName keeps only the base of a server-provided filename.
func safeName(name, fallback string) string {
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." || base == "" {
		return fallback
	}
	return base
}

func runFileDelete(ctx context.Context, a *App, args []string) error {
	rest, err := parse(a.flags("files delete"), args, 1)
	if err != nil {
		return err
	}
	if err := a.client.DeleteFile(ctx, rest[0]); err != nil {
		return err
	}
	a.printf("Deleted file %s\n", rest[0])
	return nil
}

func runFileNotShared(ctx context.Context, a *App, args []string) error {
	rest, err := parse(a.flags("files not-shared"), args, 1)
	if err != nil {
		return err
	}
	files, err := a.client.ListFilesNotSharedWith(ctx, rest[0])
	if err != nil {
		return err
	}
	return a.render(files, func(tw *tabwriter.Writer) { fileTable(tw, files) })
}
