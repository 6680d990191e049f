package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/hitoshi/boardman/internal/model"
)

// attachField はファイルアップロードのフォームフィールド名。
const attachField = "attach"

// FileUpload はアップロードする1ファイル。
type FileUpload struct {
	Filename string
	Content  io.Reader
}

// UploadFiles はファイルをmultipartでアップロードする。
// 成功時のitemはアップロードされたファイルの一覧。
// POST /files
func (c *Client) UploadFiles(ctx context.Context, files []FileUpload) (*model.Envelope[[]model.FileRecord], error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no files to upload")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := mw.CreateFormFile(attachField, f.Filename)
		if err != nil {
			return nil, fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, fmt.Errorf("failed to write form file: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return send[[]model.FileRecord](ctx, c, &request{
		op:          OpUploadFiles,
		method:      http.MethodPost,
		path:        "/files",
		body:        &buf,
		contentType: mw.FormDataContentType(),
	})
}
