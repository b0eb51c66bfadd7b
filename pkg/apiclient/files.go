package apiclient

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/sync/errgroup"
)

// FileField is the multipart field the backend reads uploads from.
const FileField = "file"

// DefaultUploadParallelism bounds UploadFiles when no limit is given.
const DefaultUploadParallelism = 4

func (c *Client) ListMyFiles(ctx context.Context) ([]FileDto, error) {
	return JSON[[]FileDto](ctx, c, &Request{Path: pathMyFiles})
}

func (c *Client) GetFile(ctx context.Context, id string) (*FileDto, error) {
	return JSON[*FileDto](ctx, c, &Request{Path: join(pathFiles, id)})
}

// UploadFile stores file for ownerID. file.Field is forced to FileField.
func (c *Client) UploadFile(ctx context.Context, ownerID string, file FormFile) (*FileDto, error) {
	file.Field = FileField
	return Multipart[*FileDto](ctx, c, &Request{
		Method: http.MethodPost,
		Path:   pathFiles,
		Query:  url.Values{"ownerId": {ownerID}},
		Form:   &Form{Files: []FormFile{file}},
	})
}

// ReplaceFile uploads a new version of file id.
func (c *Client) ReplaceFile(ctx context.Context, id string, file FormFile) (*FileDto, error) {
	file.Field = FileField
	return Multipart[*FileDto](ctx, c, &Request{
		Method: http.MethodPut,
		Path:   join(pathFiles, id),
		Form:   &Form{Files: []FormFile{file}},
	})
}

func (c *Client) DeleteFile(ctx context.Context, id string) error {
	return Exec(ctx, c, &Request{
		Method: http.MethodDelete,
		Path:   join(pathFiles, id),
	})
}

// DownloadFile returns the file content in memory.
func (c *Client) DownloadFile(ctx context.Context, id string) (*Blob, error) {
	return FetchBlob(ctx, c, &Request{
		Path:   join(pathFiles, "download", id),
		Header: http.Header{"Accept": {"*/*"}},
	})
}

// StreamFile copies the file content into w.
func (c *Client) StreamFile(ctx context.Context, id string, w io.Writer) (*Download, error) {
	return Stream(ctx, c, &Request{
		Path:   join(pathFiles, "download", id),
		Header: http.Header{"Accept": {"*/*"}},
	}, w)
}

// ListFilesNotSharedWith returns the current user's files not yet shared
// with userID.
func (c *Client) ListFilesNotSharedWith(ctx context.Context, userID string) ([]FileDto, error) {
	return JSON[[]FileDto](ctx, c, &Request{Path: join(pathMyFiles, userID, "not-shared")})
}

// ListAllFiles returns every file userID can see: owned and shared.
func (c *Client) ListAllFiles(ctx context.Context, userID string) ([]FileDto, error) {
	return JSON[[]FileDto](ctx, c, &Request{Path: join(pathFiles, "all", userID)})
}

// ============================================================================
// Batch upload
// ============================================================================

// UploadResult is the outcome of one file in UploadFiles.
type UploadResult struct {
	Filename string
	File     *FileDto
	Err      error
}

// UploadFiles uploads files concurrently, at most parallelism at a time. One
// failure does not stop the others; results keep the input order.
func (c *Client) UploadFiles(ctx context.Context, ownerID string, files []FormFile, parallelism int) []UploadResult {
	if parallelism <= 0 {
		parallelism = DefaultUploadParallelism
	}

	results := make([]UploadResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	for i, f := range files {
		results[i].Filename = f.Filename
		g.Go(func() error {
			dto, err := c.UploadFile(gctx, ownerID, f)
			if err == nil && dto == nil {
				err = ErrNoContent
			}
			results[i].File = dto
			results[i].Err = err
			return nil
		})
	}
	_ = g.Wait()

	return results
}
