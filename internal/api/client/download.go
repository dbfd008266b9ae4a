package client

import (
	"context"
	"mime"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"

	"ctf-portal/internal/normalize"
	"ctf-portal/pkg/errors"
)

// Attachment is a binary response body with its advertised file name.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// small JSON bodies on a download endpoint are checked for a failed envelope
const envelopeProbeLimit = 4096

var dispositionFilename = regexp.MustCompile(`(?i)filename\*?\s*=\s*(?:UTF-8'[^']*')?("[^"]*"|[^;]+)`)

var extendedFilename = regexp.MustCompile(`(?i)filename\*\s*=`)

// Download fetches a binary attachment. fallbackName is used when the
// response does not name the file.
func (c *Client) Download(ctx context.Context, p string, query url.Values, fallbackName string) (*Attachment, error) {
	resp, body, err := c.do(ctx, http.MethodGet, p, Options{Query: query}, "*/*")
	if err != nil {
		return nil, err
	}

	env, isEnv := normalize.ParseEnvelope(body)
	if err := c.handleStatus(ctx, resp.StatusCode, env); err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if isEnv && !env.Success {
			return nil, errors.NewApiError(env.Message)
		}
		return nil, errors.NewHttpError(resp.StatusCode, string(body))
	}
	// a failure can come back as 200 with an envelope instead of the file
	if isEnv && !env.Success && len(body) <= envelopeProbeLimit {
		return nil, errors.NewApiError(env.Message)
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = http.DetectContentType(body)
	}
	return &Attachment{
		Filename:    FilenameFromDisposition(resp.Header.Get("Content-Disposition"), fallbackName),
		ContentType: ct,
		Data:        body,
	}, nil
}

// FilenameFromDisposition extracts the file name from a Content-Disposition
// header. Both filename and filename* forms are accepted; quotes are
// stripped and percent-encoding is decoded. Directory parts are discarded.
func FilenameFromDisposition(header, fallback string) string {
	name, decoded := "", false
	if _, params, err := mime.ParseMediaType(header); err == nil {
		name = params["filename"]
		// mime has already decoded a filename* value
		decoded = name != "" && extendedFilename.MatchString(header)
	}
	if name == "" {
		if m := dispositionFilename.FindStringSubmatch(header); m != nil {
			name = strings.TrimSpace(m[1])
		}
	}
	name = strings.Trim(name, `"`)
	if !decoded {
		if u, err := url.PathUnescape(name); err == nil {
			name = u
		}
	}
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "" || name == "." || name == "/" {
		return fallback
	}
	return name
}
