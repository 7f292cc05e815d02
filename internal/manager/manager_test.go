package manager

import (
	"context"
	"fmt"

	"github.com/tjfontaine/slack-mcp-gateway/internal/slack"
)

// fakeAPI scripts responses per method and records every call so tests
// can assert both parameters and call counts.
type fakeAPI struct {
	responses map[string]map[string]any
	uploads   map[string]any

	calls       []recordedCall
	uploadPaths []string
}

type recordedCall struct {
	method string
	params map[string]any
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{responses: make(map[string]map[string]any)}
}

func (f *fakeAPI) respond(method string, resp map[string]any) {
	f.responses[method] = resp
}

func (f *fakeAPI) CallAPI(_ context.Context, method string, params map[string]any) (map[string]any, error) {
	f.calls = append(f.calls, recordedCall{method: method, params: params})
	resp, ok := f.responses[method]
	if !ok {
		return nil, fmt.Errorf("unscripted method %s", method)
	}
	return resp, nil
}

func (f *fakeAPI) UploadFile(_ context.Context, path string, params map[string]any) (map[string]any, error) {
	f.uploadPaths = append(f.uploadPaths, path)
	f.calls = append(f.calls, recordedCall{method: "files.upload", params: params})
	if f.uploads == nil {
		return nil, fmt.Errorf("unscripted upload")
	}
	return f.uploads, nil
}

func (f *fakeAPI) AuthTest(context.Context) (*slack.AuthInfo, error) {
	return &slack.AuthInfo{OK: true, Team: "Fake Team"}, nil
}

func (f *fakeAPI) lastCall() recordedCall {
	return f.calls[len(f.calls)-1]
}
