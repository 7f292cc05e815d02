package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tjfontaine/slack-mcp-gateway/internal/manager"
)

const (
	opUpload      = "upload"
	opListFiles   = "list_files"
	opGetFileInfo = "get_file_info"
	opDeleteFile  = "delete_file"
)

func filesTool() mcp.Tool {
	return mcp.NewTool("slack_files",
		mcp.WithDescription(`Slack file upload and management operations.

Operations:
- upload: Upload file to channels with metadata
- list_files: List files with filters (user, channel, type)
- get_file_info: Get detailed file information
- delete_file: Delete a file`),
		mcp.WithString("operation",
			mcp.Required(),
			mcp.Description("Operation to perform"),
			mcp.Enum(opUpload, opListFiles, opGetFileInfo, opDeleteFile),
		),
		mcp.WithString("file_path", mcp.Description("Path to file to upload (for upload)")),
		mcp.WithString("file_id", mcp.Description("File ID (for get_file_info, delete_file)")),
		mcp.WithArray("channels",
			mcp.Description("Channel IDs to share file in (for upload)"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithString("title", mcp.Description("File title (for upload)")),
		mcp.WithString("initial_comment", mcp.Description("Comment to add with file (for upload)")),
		mcp.WithString("thread_ts", mcp.Description("Thread timestamp for threaded upload")),
		mcp.WithString("channel", mcp.Description("Channel ID filter (for list_files)")),
		mcp.WithString("user", mcp.Description("User ID filter (for list_files)")),
		mcp.WithArray("types",
			mcp.Description("File types: all, spaces, snippets, images, gdocs, zips, pdfs"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithNumber("limit", mcp.Description("Max results (for list_files)")),
	)
}

func (s *Server) handleFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	op, err := req.RequireString("operation")
	if err != nil {
		return mcp.NewToolResultError("Error: " + err.Error()), nil
	}
	s.logger.Info("tool call", slog.String("tool", "slack_files"), slog.String("operation", op))

	start := time.Now()
	result, err := s.dispatchFiles(ctx, op, req)
	s.record(ctx, "slack_files", op, start, err)
	if err != nil {
		return errResult(err), nil
	}
	return result, nil
}

func (s *Server) dispatchFiles(ctx context.Context, op string, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	b, err := s.getBundle(ctx)
	if err != nil {
		return nil, err
	}

	switch op {
	case opUpload:
		path, err := req.RequireString("file_path")
		if err != nil {
			return nil, fmt.Errorf("upload operation requires 'file_path' parameter")
		}
		result, err := b.files.Upload(ctx, manager.UploadRequest{
			Path:           path,
			Channels:       req.GetStringSlice("channels", nil),
			Title:          req.GetString("title", ""),
			InitialComment: req.GetString("initial_comment", ""),
			ThreadTS:       req.GetString("thread_ts", ""),
		})
		if err != nil {
			return nil, err
		}
		return jsonResult("File uploaded", result)

	case opListFiles:
		files, err := b.files.ListFiles(ctx, manager.ListFilesQuery{
			Channel: req.GetString("channel", ""),
			User:    req.GetString("user", ""),
			Types:   req.GetStringSlice("types", nil),
			Limit:   req.GetInt("limit", 0),
		})
		if err != nil {
			return nil, err
		}
		return jsonResult(fmt.Sprintf("Found %d files", len(files)), files)

	case opGetFileInfo:
		fileID, err := req.RequireString("file_id")
		if err != nil {
			return nil, fmt.Errorf("get_file_info requires 'file_id' parameter")
		}
		info, err := b.files.FileInfo(ctx, fileID)
		if err != nil {
			return nil, err
		}
		return jsonResult("File info", info)

	case opDeleteFile:
		fileID, err := req.RequireString("file_id")
		if err != nil {
			return nil, fmt.Errorf("delete_file requires 'file_id' parameter")
		}
		if err := b.files.DeleteFile(ctx, fileID); err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(fmt.Sprintf("File %s deleted successfully", fileID)), nil

	default:
		return nil, &UnknownOperationError{Tool: "files", Operation: op}
	}
}
