package manager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFiles_Upload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.txt")
	if err := os.WriteFile(path, []byte("quarterly numbers"), 0o644); err != nil {
		t.Fatal(err)
	}

	api := newFakeAPI()
	api.uploads = map[string]any{
		"ok":   true,
		"file": map[string]any{"id": "F42", "title": "Report"},
	}

	m := NewFiles(api, nil)
	file, err := m.Upload(context.Background(), UploadRequest{
		Path:     path,
		Channels: []string{"C1", "D2"},
		Title:    "Report",
		ThreadTS: "1.0",
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if file["id"] != "F42" {
		t.Errorf("id = %v, want F42", file["id"])
	}
	if api.uploadPaths[0] != path {
		t.Errorf("upload path = %q", api.uploadPaths[0])
	}

	params := api.lastCall().params
	if params["channels"] != "C1,D2" {
		t.Errorf("channels = %v, want C1,D2", params["channels"])
	}
	if params["title"] != "Report" || params["thread_ts"] != "1.0" {
		t.Errorf("params = %v", params)
	}
}

func TestFiles_Upload_RejectsOversizedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "huge.bin")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	// Sparse file: size without writing 10MiB of data.
	if err := f.Truncate(maxUploadSize + 1); err != nil {
		t.Fatal(err)
	}
	f.Close()

	api := newFakeAPI()
	m := NewFiles(api, nil)
	_, err = m.Upload(context.Background(), UploadRequest{Path: path})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if len(api.calls) != 0 {
		t.Errorf("calls = %d, want 0", len(api.calls))
	}
}

func TestFiles_Upload_Validation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ok.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	api := newFakeAPI()
	m := NewFiles(api, nil)

	tests := []struct {
		name string
		req  UploadRequest
	}{
		{"empty path", UploadRequest{}},
		{"missing file", UploadRequest{Path: filepath.Join(dir, "nope.txt")}},
		{"directory", UploadRequest{Path: dir}},
		{"bad channel", UploadRequest{Path: path, Channels: []string{"X1"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Upload(context.Background(), tt.req)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("error = %v, want ValidationError", err)
			}
		})
	}
	if len(api.calls) != 0 {
		t.Errorf("calls = %d, want 0", len(api.calls))
	}
}

func TestFiles_ListFiles(t *testing.T) {
	api := newFakeAPI()
	api.respond("files.list", map[string]any{
		"ok": true,
		"files": []any{
			map[string]any{"id": "F1"},
			map[string]any{"id": "F2"},
		},
		"paging": map[string]any{"pages": float64(1)},
	})

	m := NewFiles(api, nil)
	files, err := m.ListFiles(context.Background(), ListFilesQuery{
		Channel: "C1",
		User:    "U1",
		Types:   []string{"images", "pdfs"},
	})
	if err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files = %d, want 2", len(files))
	}

	params := api.lastCall().params
	if params["types"] != "images,pdfs" {
		t.Errorf("types = %v", params["types"])
	}
	if params["channel"] != "C1" || params["user"] != "U1" {
		t.Errorf("filters = %v/%v", params["channel"], params["user"])
	}
	if params["page"] != 1 {
		t.Errorf("page = %v, want 1", params["page"])
	}
}

func TestFiles_ListFiles_RejectsBadTypes(t *testing.T) {
	m := NewFiles(newFakeAPI(), nil)

	_, err := m.ListFiles(context.Background(), ListFilesQuery{Types: []string{"videos"}})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
}

func TestFiles_ListFiles_RejectsBadLimit(t *testing.T) {
	m := NewFiles(newFakeAPI(), nil)

	for _, limit := range []int{-1, maxFileLimit + 1} {
		_, err := m.ListFiles(context.Background(), ListFilesQuery{Limit: limit})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("ListFiles(limit=%d) error = %v, want ValidationError", limit, err)
		}
	}
}

func TestFiles_FileInfo(t *testing.T) {
	api := newFakeAPI()
	api.respond("files.info", map[string]any{
		"ok":   true,
		"file": map[string]any{"id": "F1", "name": "report.txt"},
	})

	m := NewFiles(api, nil)
	file, err := m.FileInfo(context.Background(), "F1")
	if err != nil {
		t.Fatalf("FileInfo() error = %v", err)
	}
	if file["name"] != "report.txt" {
		t.Errorf("name = %v", file["name"])
	}
}

func TestFiles_DeleteFile_RejectsBadID(t *testing.T) {
	api := newFakeAPI()
	m := NewFiles(api, nil)

	for _, id := range []string{"", "X1", "123"} {
		err := m.DeleteFile(context.Background(), id)
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("DeleteFile(%q) error = %v, want ValidationError", id, err)
		}
	}
	if len(api.calls) != 0 {
		t.Errorf("calls = %d, want 0", len(api.calls))
	}
}

func TestFiles_DeleteFile(t *testing.T) {
	api := newFakeAPI()
	api.respond("files.delete", map[string]any{"ok": true})

	m := NewFiles(api, nil)
	if err := m.DeleteFile(context.Background(), "F9"); err != nil {
		t.Fatalf("DeleteFile() error = %v", err)
	}
	if api.lastCall().params["file"] != "F9" {
		t.Errorf("file = %v", api.lastCall().params["file"])
	}
}
