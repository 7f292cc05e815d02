package slack

import "context"

// FetchQuery configures one paginated fetch. A query is consumed by a
// single call; it is not reused.
type FetchQuery struct {
	// Method is the Web API method to page through.
	Method string

	// Params are the base parameters sent with every page request. The
	// fetcher adds its own paging parameters and never mutates this map.
	Params map[string]any

	// ItemsKey names the response field holding the page's record list
	// ("channels", "members", "files").
	ItemsKey string

	// Target is the total number of accepted records wanted.
	Target int

	// PageSize caps the per-page request size.
	PageSize int

	// Include, when set, is applied to each fetched record before it
	// counts toward Target. Rejected records are dropped entirely, so a
	// fetch may read more raw records than Target.
	Include func(record map[string]any) bool
}

// FetchCursor accumulates records from a cursor-paginated method until
// Target accepted records are collected or the server stops returning a
// continuation cursor. Records are returned in arrival order and the
// result is truncated to exactly Target even when the final page
// overshoots. On any call failure the partial result is discarded.
func FetchCursor(ctx context.Context, api API, q FetchQuery) ([]map[string]any, error) {
	var out []map[string]any
	cursor := ""

	for {
		params := pageParams(q.Params)
		params["limit"] = min(q.Target-len(out), q.PageSize)
		if cursor != "" {
			params["cursor"] = cursor
		}

		resp, err := api.CallAPI(ctx, q.Method, params)
		if err != nil {
			return nil, err
		}

		out = appendAccepted(out, resp, q)

		cursor = nextCursor(resp)
		if cursor == "" || len(out) >= q.Target {
			break
		}
	}

	return truncate(out, q.Target), nil
}

// FetchPages accumulates records from a page-number-paginated method
// (files.list is the only one in this API family). Same acceptance and
// truncation semantics as FetchCursor; termination comes from the
// response's paging.pages total instead of a cursor.
func FetchPages(ctx context.Context, api API, q FetchQuery) ([]map[string]any, error) {
	var out []map[string]any

	for page := 1; ; page++ {
		params := pageParams(q.Params)
		params["count"] = min(q.Target-len(out), q.PageSize)
		params["page"] = page

		resp, err := api.CallAPI(ctx, q.Method, params)
		if err != nil {
			return nil, err
		}

		out = appendAccepted(out, resp, q)

		totalPages := pagingTotal(resp)
		if page >= totalPages || len(out) >= q.Target {
			break
		}
	}

	return truncate(out, q.Target), nil
}

func appendAccepted(out []map[string]any, resp map[string]any, q FetchQuery) []map[string]any {
	for _, rec := range pageRecords(resp, q.ItemsKey) {
		if q.Include != nil && !q.Include(rec) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func pageParams(base map[string]any) map[string]any {
	params := make(map[string]any, len(base)+2)
	for k, v := range base {
		params[k] = v
	}
	return params
}

func pageRecords(resp map[string]any, key string) []map[string]any {
	raw, _ := resp[key].([]any)
	records := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if rec, ok := item.(map[string]any); ok {
			records = append(records, rec)
		}
	}
	return records
}

func nextCursor(resp map[string]any) string {
	meta, _ := resp["response_metadata"].(map[string]any)
	if meta == nil {
		return ""
	}
	return stringField(meta, "next_cursor")
}

func pagingTotal(resp map[string]any) int {
	paging, _ := resp["paging"].(map[string]any)
	if paging == nil {
		return 1
	}
	if pages, ok := paging["pages"].(float64); ok {
		return int(pages)
	}
	return 1
}

func truncate(out []map[string]any, target int) []map[string]any {
	if len(out) > target {
		return out[:target]
	}
	return out
}
