package manager

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/tjfontaine/slack-mcp-gateway/internal/slack"
)

const (
	// maxUploadSize caps uploads at 10MiB. The API accepts far larger
	// files; the tool surface keeps them small enough to stay responsive.
	maxUploadSize = 10 * 1024 * 1024

	filePageSize = 100
	maxFileLimit = 1000
)

var validFileTypes = map[string]bool{
	"all":      true,
	"spaces":   true,
	"snippets": true,
	"images":   true,
	"gdocs":    true,
	"zips":     true,
	"pdfs":     true,
}

// Files handles file upload and management operations.
type Files struct {
	api    slack.API
	logger *slog.Logger
}

// NewFiles creates a files manager over the gateway.
func NewFiles(api slack.API, logger *slog.Logger) *Files {
	if logger == nil {
		logger = slog.Default()
	}
	return &Files{api: api, logger: logger}
}

// UploadRequest describes one file upload.
type UploadRequest struct {
	Path           string
	Channels       []string
	Title          string
	InitialComment string
	ThreadTS       string
}

// Upload uploads a local file, optionally sharing it into channels. Path,
// file type, and size are all checked before any network call.
func (m *Files) Upload(ctx context.Context, req UploadRequest) (map[string]any, error) {
	if req.Path == "" {
		return nil, validationErr("file_path", "file path is required")
	}

	info, err := os.Stat(req.Path)
	if err != nil {
		return nil, validationErr("file_path", fmt.Sprintf("file not found: %s", req.Path))
	}
	if !info.Mode().IsRegular() {
		return nil, validationErr("file_path", fmt.Sprintf("path is not a regular file: %s", req.Path))
	}
	if info.Size() > maxUploadSize {
		return nil, validationErr("file_path", fmt.Sprintf("file size (%d bytes) exceeds maximum (%d bytes)", info.Size(), maxUploadSize))
	}

	params := map[string]any{}
	if len(req.Channels) > 0 {
		for _, channel := range req.Channels {
			if !validChannelID(channel) {
				return nil, validationErr("channels", fmt.Sprintf("invalid channel ID %q, must start with C, G, or D", channel))
			}
		}
		params["channels"] = strings.Join(req.Channels, ",")
	}
	if req.Title != "" {
		params["title"] = req.Title
	}
	if req.InitialComment != "" {
		params["initial_comment"] = req.InitialComment
	}
	if req.ThreadTS != "" {
		params["thread_ts"] = req.ThreadTS
	}

	resp, err := m.api.UploadFile(ctx, req.Path, params)
	if err != nil {
		return nil, err
	}

	file, _ := resp["file"].(map[string]any)
	m.logger.Info("uploaded file", slog.String("path", req.Path))
	return file, nil
}

// ListFilesQuery configures a file listing.
type ListFilesQuery struct {
	Channel string
	User    string
	Types   []string
	Limit   int
}

// ListFiles lists workspace files. files.list paginates by page number
// rather than cursor; that contract is preserved here.
func (m *Files) ListFiles(ctx context.Context, q ListFilesQuery) ([]map[string]any, error) {
	limit := q.Limit
	if limit == 0 {
		limit = defaultListLimit
	}
	if limit < 1 || limit > maxFileLimit {
		return nil, validationErr("limit", fmt.Sprintf("must be between 1 and %d", maxFileLimit))
	}

	typesParam := "all"
	if len(q.Types) > 0 {
		if bad := invalidTypes(q.Types, validFileTypes); len(bad) > 0 {
			return nil, validationErr("types", fmt.Sprintf("invalid file types: %s (valid: all, spaces, snippets, images, gdocs, zips, pdfs)", strings.Join(bad, ", ")))
		}
		typesParam = strings.Join(q.Types, ",")
	}

	params := map[string]any{"types": typesParam}
	if q.Channel != "" {
		params["channel"] = q.Channel
	}
	if q.User != "" {
		params["user"] = q.User
	}

	files, err := slack.FetchPages(ctx, m.api, slack.FetchQuery{
		Method:   "files.list",
		Params:   params,
		ItemsKey: "files",
		Target:   limit,
		PageSize: filePageSize,
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("listed files", slog.Int("count", len(files)))
	return files, nil
}

// FileInfo fetches one file's details.
func (m *Files) FileInfo(ctx context.Context, fileID string) (map[string]any, error) {
	if err := validateFileID(fileID); err != nil {
		return nil, err
	}

	resp, err := m.api.CallAPI(ctx, "files.info", map[string]any{"file": fileID})
	if err != nil {
		return nil, err
	}

	file, _ := resp["file"].(map[string]any)
	return file, nil
}

// DeleteFile deletes a file.
func (m *Files) DeleteFile(ctx context.Context, fileID string) error {
	if err := validateFileID(fileID); err != nil {
		return err
	}

	if _, err := m.api.CallAPI(ctx, "files.delete", map[string]any{"file": fileID}); err != nil {
		return err
	}

	m.logger.Info("deleted file", slog.String("file", fileID))
	return nil
}

func validateFileID(fileID string) error {
	if fileID == "" {
		return validationErr("file_id", "file ID is required")
	}
	if fileID[0] != 'F' {
		return validationErr("file_id", "file ID must start with F")
	}
	return nil
}
