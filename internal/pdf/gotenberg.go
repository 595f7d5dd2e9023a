// Package pdf renders invoice documents. HTML is produced from a template
// and converted to PDF by a Gotenberg instance.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"
)

// GotenbergClient converts HTML to PDF via a Gotenberg instance.
type GotenbergClient struct {
	baseURL  string
	username string
	password string
	http     *http.Client
}

// NewGotenbergClient creates a client pointing at the given Gotenberg URL.
// If username and password are non-empty, every request will include HTTP
// Basic Auth.
func NewGotenbergClient(baseURL, username, password string) *GotenbergClient {
	return &GotenbergClient{
		baseURL:  baseURL,
		username: username,
		password: password,
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// ConvertOpts configures the HTML-to-PDF conversion request.
type ConvertOpts struct {
	MarginTop    string
	MarginBottom string
	MarginLeft   string
	MarginRight  string
	// WaitDelay adds a delay before capture (e.g. "1s") for font loading.
	WaitDelay string
}

// DefaultInvoiceOpts returns options for invoice pages.
func DefaultInvoiceOpts() ConvertOpts {
	return ConvertOpts{
		MarginTop:    "0.5",
		MarginBottom: "0.7",
		MarginLeft:   "0.5",
		MarginRight:  "0.5",
		WaitDelay:    "1s",
	}
}

// ConvertHTML sends index.html to Gotenberg and returns the resulting PDF bytes.
func (g *GotenbergClient) ConvertHTML(ctx context.Context, indexHTML []byte, opts ConvertOpts) ([]byte, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	fields := map[string]string{
		"paperWidth":        "8.27",
		"paperHeight":       "11.7",
		"marginTop":         opts.MarginTop,
		"marginBottom":      opts.MarginBottom,
		"marginLeft":        opts.MarginLeft,
		"marginRight":       opts.MarginRight,
		"printBackground":   "true",
		"preferCssPageSize": "false",
	}
	if opts.WaitDelay != "" {
		fields["waitDelay"] = opts.WaitDelay
		fields["skipNetworkIdleEvent"] = "true"
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("write field %s: %w", k, err)
		}
	}

	if err := addHTMLPart(writer, "index.html", indexHTML); err != nil {
		return nil, err
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	return g.doPost(ctx, "/forms/chromium/convert/html", body, writer.FormDataContentType())
}

func (g *GotenbergClient) doPost(ctx context.Context, path string, body *bytes.Buffer, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if g.username != "" && g.password != "" {
		req.SetBasicAuth(g.username, g.password)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gotenberg request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gotenberg response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gotenberg returned %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}

func addHTMLPart(writer *multipart.Writer, filename string, content []byte) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, filename))
	header.Set("Content-Type", "text/html")

	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create part %s: %w", filename, err)
	}
	if _, err := part.Write(content); err != nil {
		return fmt.Errorf("write part %s: %w", filename, err)
	}
	return nil
}
