package apiclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
)

// errNullBody reports a JSON null where a single object was expected.
var errNullBody = errors.New("response body is null")

// Decoder turns a 2xx response into a value. Decoders must not close the
// body; the executor does.
type Decoder[T any] interface {
	Decode(resp *http.Response) (T, error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc[T any] func(resp *http.Response) (T, error)

func (f DecoderFunc[T]) Decode(resp *http.Response) (T, error) { return f(resp) }

// JSONDecoder decodes the body as JSON. Only a 204 yields the zero value; an
// empty body, or null for a pointer T, is a decode error.
func JSONDecoder[T any]() Decoder[T] {
	pointer := reflect.TypeFor[T]().Kind() == reflect.Pointer

	return DecoderFunc[T](func(resp *http.Response) (T, error) {
		var out T
		if resp.StatusCode == http.StatusNoContent {
			return out, nil
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return out, fmt.Errorf("failed to read response body: %w", err)
		}
		if pointer && bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
			return out, errNullBody
		}

		if err := json.Unmarshal(data, &out); err != nil {
			return out, err
		}
		return out, nil
	})
}

// DiscardDecoder drops the body.
func DiscardDecoder() Decoder[struct{}] {
	return DecoderFunc[struct{}](func(resp *http.Response) (struct{}, error) {
		_, err := io.Copy(io.Discard, resp.Body)
		return struct{}{}, err
	})
}

// Blob is a downloaded file held in memory.
type Blob struct {
	Data        []byte
	ContentType string
	// Filename from Content-Disposition, empty when absent.
	Filename string
}

// Size returns the blob length in bytes.
func (b *Blob) Size() int { return len(b.Data) }

// BlobDecoder reads the whole body into a Blob.
func BlobDecoder() Decoder[*Blob] {
	return DecoderFunc[*Blob](func(resp *http.Response) (*Blob, error) {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}
		return &Blob{
			Data:        data,
			ContentType: resp.Header.Get("Content-Type"),
			Filename:    dispositionFilename(resp.Header.Get("Content-Disposition")),
		}, nil
	})
}

// Download describes a body that was copied to a writer.
type Download struct {
	Bytes       int64
	ContentType string
	Filename    string
}

// WriterDecoder copies the body into w.
func WriterDecoder(w io.Writer) Decoder[*Download] {
	return DecoderFunc[*Download](func(resp *http.Response) (*Download, error) {
		n, err := io.Copy(w, resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to copy response body: %w", err)
		}
		return &Download{
			Bytes:       n,
			ContentType: resp.Header.Get("Content-Type"),
			Filename:    dispositionFilename(resp.Header.Get("Content-Disposition")),
		}, nil
	})
}

func dispositionFilename(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}
