package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// UploadField is the multipart form field carrying the file.
	UploadField = "file"
	// SourceField and SourceValue form the auxiliary multipart field.
	SourceField = "source"
	SourceValue = "labelcheck"
)

// UploadSpec describes a single file upload.
type UploadSpec struct {
	// Path is the upload endpoint, relative to the base URL or absolute.
	Path     string
	FilePath string
	// Multipart posts a form; otherwise the bytes are PUT to Path/<filename>.
	Multipart bool
}

// UploadBatch describes a folder upload.
type UploadBatch struct {
	Path string
	// Folder is walked non-recursively; only regular files are sent.
	Folder     string
	Files      []string
	Multipart  bool
	MaxRetries int
	Interval   time.Duration
}

// UploadFailure records a file whose attempts were exhausted.
type UploadFailure struct {
	File string
	Err  error
}

// UploadReport summarizes an UploadFiles call.
type UploadReport struct {
	Uploaded []string
	Failed   []UploadFailure
}

// UploadFile sends one file in a single attempt.
func (c *Client) UploadFile(ctx context.Context, spec UploadSpec) (*Response, error) {
	data, err := os.ReadFile(spec.FilePath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", spec.FilePath, err)
	}
	name := filepath.Base(spec.FilePath)
	contentType := ContentTypeFor(name, data)

	var req RequestSpec
	if spec.Multipart {
		body, formType, err := multipartBody(name, contentType, data)
		if err != nil {
			return nil, err
		}
		req = RequestSpec{
			Method: http.MethodPost,
			Path:   spec.Path,
			Header: http.Header{"Content-Type": {formType}},
			Body:   body,
		}
	} else {
		req = RequestSpec{
			Method: http.MethodPut,
			Path:   strings.TrimRight(spec.Path, "/") + "/" + url.PathEscape(name),
			Header: http.Header{"Content-Type": {contentType}},
			Body:   data,
		}
	}

	resp, err := c.attempt(ctx, req)
	c.metrics.RequestAttempt(req.Method, err == nil)
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", name, err)
	}
	return resp, nil
}

func multipartBody(name, contentType string, data []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, UploadField, name))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("creating form part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("writing form part: %w", err)
	}
	if err := w.WriteField(SourceField, SourceValue); err != nil {
		return nil, "", fmt.Errorf("writing form field: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing form: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// UploadFiles uploads every regular file of Folder plus Files. Each file is
// retried up to MaxRetries times, Interval apart. A file that exhausts its
// attempts is logged and reported; the rest of the batch continues.
func (c *Client) UploadFiles(ctx context.Context, batch UploadBatch) (UploadReport, error) {
	files, err := collectFiles(batch.Folder, batch.Files)
	if err != nil {
		return UploadReport{}, err
	}

	var report UploadReport
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		err := c.uploadWithRetry(ctx, batch, path)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			c.logger.Error("upload failed", "file", path, "error", err)
			report.Failed = append(report.Failed, UploadFailure{File: path, Err: err})
			continue
		}
		report.Uploaded = append(report.Uploaded, path)
	}

	c.logger.Info("upload completed",
		"path", batch.Path, "uploaded", len(report.Uploaded), "failed", len(report.Failed))
	return report, nil
}

func (c *Client) uploadWithRetry(ctx context.Context, batch UploadBatch, path string) error {
	spec := UploadSpec{Path: batch.Path, FilePath: path, Multipart: batch.Multipart}
	method := http.MethodPut
	if batch.Multipart {
		method = http.MethodPost
	}
	retries := max(batch.MaxRetries, 0)

	var lastErr error
	attempts := 0
	for attempts <= retries {
		if attempts > 0 {
			c.metrics.RequestRetry(method)
			c.logger.Warn("retrying upload", "file", path, "retry", attempts, "error", lastErr)
			if err := c.clock.SleepContext(ctx, batch.Interval); err != nil {
				return err
			}
		}
		attempts++
		_, err := c.UploadFile(ctx, spec)
		if err == nil {
			return nil
		}
		lastErr = err
		// An unreadable file will not become readable by retrying.
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			break
		}
	}
	c.metrics.RequestExhausted(method)
	return &TransportError{Method: method, Path: batch.Path, Attempts: attempts, Err: lastErr}
}

func collectFiles(folder string, extra []string) ([]string, error) {
	var files []string
	if folder != "" {
		entries, err := os.ReadDir(folder)
		if err != nil {
			return nil, fmt.Errorf("reading upload folder %s: %w", folder, err)
		}
		for _, e := range entries {
			if e.Type().IsRegular() {
				files = append(files, filepath.Join(folder, e.Name()))
			}
		}
	}
	return append(files, extra...), nil
}
