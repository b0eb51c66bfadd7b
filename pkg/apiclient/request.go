package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Request describes one backend call. A Request is reusable: the body is
// rebuilt for every attempt so a refreshed call resends the same payload.
type Request struct {
	Method string
	// Path is relative to the client's base URL and starts with "/".
	Path   string
	Query  url.Values
	Header http.Header

	// Body is JSON-encoded when set. Ignored when Form is set.
	Body any

	// Form is sent as multipart/form-data.
	Form *Form
}

// Form is a multipart payload.
type Form struct {
	Fields []FormField
	Files  []FormFile
}

type FormField struct {
	Name  string
	Value string
}

// FormFile is one file part. Open is called once per attempt and must return
// a fresh reader each time.
type FormFile struct {
	Field       string
	Filename    string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// FileFromPath returns a part that reads path from disk on every attempt.
func FileFromPath(field, path string) FormFile {
	return FormFile{
		Field:       field,
		Filename:    filepath.Base(path),
		ContentType: contentTypeFor(path),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

// FileFromBytes returns a part backed by data.
func FileFromBytes(field, filename string, data []byte) FormFile {
	return FormFile{
		Field:       field,
		Filename:    filename,
		ContentType: contentTypeFor(filename),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string { return quoteEscaper.Replace(s) }

// ============================================================================
// Attempt construction
// ============================================================================

// newHTTPRequest builds the http.Request for a single attempt. Header merge
// order is JSON content type, client defaults, caller headers, multipart
// boundary, then Authorization. Every non-multipart call carries the JSON
// content type unless the caller sets one. The multipart boundary type and
// the Authorization header always belong to the client.
func (c *Client) newHTTPRequest(ctx context.Context, r *Request, accessToken, requestID string) (*http.Request, error) {
	var (
		body        io.Reader
		contentType string
	)

	switch {
	case r.Form != nil:
		pr, ct := streamForm(r.Form)
		body, contentType = pr, ct
	case r.Body != nil:
		data, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method(), c.url(r.Path, r.Query), body)
	if err != nil {
		if pr, ok := body.(*io.PipeReader); ok {
			_ = pr.Close()
		}
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if r.Form == nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if requestID != "" {
		req.Header.Set(headerRequestID, requestID)
	}

	for key, values := range r.Header {
		req.Header.Del(key)
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	req.Header.Del("Authorization")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	return req, nil
}

func (r *Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return r.Method
}

// streamForm writes f through a pipe so large files are never buffered.
func streamForm(f *Form) (*io.PipeReader, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeForm(mw, f))
	}()

	return pr, mw.FormDataContentType()
}

func writeForm(mw *multipart.Writer, f *Form) error {
	for _, field := range f.Fields {
		if err := mw.WriteField(field.Name, field.Value); err != nil {
			return err
		}
	}

	for _, file := range f.Files {
		if err := writeFilePart(mw, file); err != nil {
			return err
		}
	}

	return mw.Close()
}

func writeFilePart(mw *multipart.Writer, file FormFile) error {
	if file.Open == nil {
		return fmt.Errorf("form file %q has no content", file.Filename)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		escapeQuotes(file.Field), escapeQuotes(file.Filename)))
	ct := file.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}

	rc, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", file.Filename, err)
	}
	defer rc.Close()

	_, err = io.Copy(part, rc)
	return err
}
