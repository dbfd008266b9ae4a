package client

import (
	"context"
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctf-portal/pkg/errors"
)

func TestFilenameFromDisposition(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{`attachment; filename="report.txt"`, "report.txt"},
		{`attachment; filename=report.txt`, "report.txt"},
		{`attachment; filename*=UTF-8''%E9%A2%98%E8%A7%A3.md`, "题解.md"},
		{`attachment; filename*=UTF-8''100%2525.txt`, "100%25.txt"},
		{`attachment; filename="100%2525.txt"`, "100%25.txt"},
		{`attachment; filename="WriteUp%20Final.pdf"`, "WriteUp Final.pdf"},
		{`attachment; filename=题解.txt`, "题解.txt"},
		{`attachment; filename="../../etc/passwd"`, "passwd"},
		{`attachment`, "WriteUp_9.txt"},
		{``, "WriteUp_9.txt"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FilenameFromDisposition(tc.header, "WriteUp_9.txt"), tc.header)
	}
}

func TestDownload(t *testing.T) {
	srv := newUpstream(t, func(r chi.Router) {
		r.Get("/writeups/{id}/download", func(w http.ResponseWriter, r *http.Request) {
			switch chi.URLParam(r, "id") {
			case "1":
				w.Header().Set("Content-Type", "text/markdown")
				w.Header().Set("Content-Disposition", `attachment; filename*=UTF-8''%E9%A2%98%E8%A7%A3.md`)
				_, _ = w.Write([]byte("# solve"))
			case "2":
				render.JSON(w, r, envelope{"success": false, "message": "文件不存在"})
			case "3":
				_, _ = w.Write([]byte("raw"))
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		})
	})
	c := newClient(t, srv)
	ctx := context.Background()

	att, err := c.Download(ctx, "/writeups/1/download", nil, "WriteUp_1.txt")
	require.NoError(t, err)
	assert.Equal(t, "题解.md", att.Filename)
	assert.Equal(t, "text/markdown", att.ContentType)
	assert.Equal(t, []byte("# solve"), att.Data)

	_, err = c.Download(ctx, "/writeups/2/download", nil, "WriteUp_2.txt")
	var apiErr *errors.ApiError
	require.True(t, stderrors.As(err, &apiErr))
	assert.Equal(t, "文件不存在", apiErr.Message)

	att, err = c.Download(ctx, "/writeups/3/download", nil, "WriteUp_3.txt")
	require.NoError(t, err)
	assert.Equal(t, "WriteUp_3.txt", att.Filename)

	_, err = c.Download(ctx, "/writeups/4/download", nil, "WriteUp_4.txt")
	var httpErr *errors.HttpError
	require.True(t, stderrors.As(err, &httpErr))
	assert.Equal(t, http.StatusNotFound, httpErr.Status)
}

func TestDownloadRejectsOversizedBody(t *testing.T) {
	srv := newUpstream(t, func(r chi.Router) {
		r.Get("/writeups/{id}/download", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Header().Set("Content-Disposition", `attachment; filename="big.bin"`)
			_, _ = w.Write(make([]byte, maxBodyBytes+1024))
		})
	})
	c := newClient(t, srv)

	att, err := c.Download(context.Background(), "/writeups/1/download", nil, "WriteUp_1.txt")
	assert.Nil(t, att)
	var httpErr *errors.HttpError
	require.True(t, stderrors.As(err, &httpErr), "got %v", err)
	assert.Equal(t, http.StatusOK, httpErr.Status)
	assert.Contains(t, httpErr.Body, "exceeds 16 MiB")
}

func TestDownloadAcceptsBodyAtLimit(t *testing.T) {
	srv := newUpstream(t, func(r chi.Router) {
		r.Get("/writeups/{id}/download", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/octet-stream")
			_, _ = w.Write(make([]byte, maxBodyBytes))
		})
	})
	c := newClient(t, srv)

	att, err := c.Download(context.Background(), "/writeups/1/download", nil, "WriteUp_1.txt")
	require.NoError(t, err)
	assert.Len(t, att.Data, maxBodyBytes)
}
