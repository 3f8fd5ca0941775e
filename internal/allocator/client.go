package allocator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/smartalloc/portal/internal/model"
)

// Upload is one file handle submitted by the operator: the original filename
// plus the raw bytes read from the request.
type Upload struct {
	Filename string
	Data     []byte
}

// Client issues allocation requests against the remote service.
// It is stateless and re-entrant; callers enforce at-most-one-in-flight.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the service at baseURL. A zero timeout
// leaves the transport default in place; no retry is ever attempted.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ValidateUploads checks both files are present. It fails before any network
// call, naming each missing file.
func ValidateUploads(candidates, internships *Upload) error {
	var missing []string
	if candidates == nil || len(candidates.Data) == 0 {
		missing = append(missing, "candidates")
	}
	if internships == nil || len(internships.Data) == 0 {
		missing = append(missing, "internships")
	}
	if len(missing) == 0 {
		return nil
	}
	return &Error{
		Kind:    KindValidation,
		Message: fmt.Sprintf("the %s file is missing", strings.Join(missing, " and ")),
	}
}

// Submit sends both files to POST {baseURL}/allocate as a multipart body
// with parts named "candidates" and "internships", and decodes the returned
// allocations. Every failure comes back as a classified *Error.
func (c *Client) Submit(ctx context.Context, candidates, internships *Upload) ([]model.Allocation, error) {
	if err := ValidateUploads(candidates, internships); err != nil {
		return nil, err
	}

	body, contentType, err := buildMultipart(candidates, internships)
	if err != nil {
		return nil, &Error{Kind: KindValidation, Message: "could not encode upload: " + err.Error(), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/allocate", body)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Message: "Connection failed. Please ensure the backend server is running.", Err: err}
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport-level failure: surface guidance, not the raw dial error.
		return nil, &Error{Kind: KindNetwork, Message: "Connection failed. Please ensure the backend server is running.", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.decodeError(resp)
	}

	var payload struct {
		Allocations []model.Allocation `json:"allocations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &Error{Kind: KindService, Message: "the allocation service returned an unreadable response", Err: err}
	}

	return payload.Allocations, nil
}

// decodeError turns a non-success response into a ServiceError. The body is
// expected to carry a human-readable message under a detail-like key; any
// other shape falls back to a generic message with the status code.
func (c *Client) decodeError(resp *http.Response) *Error {
	svcErr := &Error{
		Kind:    KindService,
		Status:  resp.StatusCode,
		Message: fmt.Sprintf("allocation service returned HTTP %d", resp.StatusCode),
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return svcErr
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return svcErr
	}

	for _, key := range []string{"detail", "message", "error"} {
		if s, ok := body[key].(string); ok && s != "" {
			svcErr.Message = s
			break
		}
	}
	return svcErr
}

// buildMultipart encodes the two uploads under their fixed field names.
func buildMultipart(candidates, internships *Upload) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, part := range []struct {
		field  string
		upload *Upload
	}{
		{"candidates", candidates},
		{"internships", internships},
	} {
		name := part.upload.Filename
		if name == "" {
			name = part.field + ".csv"
		}
		fw, err := w.CreateFormFile(part.field, name)
		if err != nil {
			return nil, "", err
		}
		if _, err := fw.Write(part.upload.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
