// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graph

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/graphpdf/internal/graph/graphtest"
)

func TestEnsureFolderEmptyPathIsNoOp(t *testing.T) {
	c, srv := newTestClient(t)
	for _, p := range []string{"", "/", "  "} {
		require.NoError(t, c.EnsureFolder(context.Background(), "drive-1", p, ""))
	}
	assert.Empty(t, srv.Calls())
}

func TestEnsureFolderCreatesOnce(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.EnsureFolder(ctx, "drive-1", "_graphpdf_temp", "corr"))
	require.NoError(t, c.EnsureFolder(ctx, "drive-1", "_graphpdf_temp", "corr"))

	assert.True(t, srv.HasFolder("drive-1", "_graphpdf_temp"))
	assert.Equal(t, 1, srv.CallCount(graphtest.OpCreateFolder))
	assert.Equal(t, 2, srv.CallCount(graphtest.OpGetFolder))
}

func TestEnsureFolderNested(t *testing.T) {
	c, srv := newTestClient(t)
	srv.AddFolder("drive-1", "Converted")

	require.NoError(t, c.EnsureFolder(context.Background(), "drive-1", "/Converted/2026/Q3/", ""))

	assert.True(t, srv.HasFolder("drive-1", "Converted/2026"))
	assert.True(t, srv.HasFolder("drive-1", "Converted/2026/Q3"))
	assert.Equal(t, 2, srv.CallCount(graphtest.OpCreateFolder))

	var posts []string
	for _, call := range srv.Calls() {
		if call.Op == graphtest.OpCreateFolder {
			posts = append(posts, call.Path)
		}
	}
	assert.Equal(t, []string{
		"drives/drive-1/root:/Converted:/children",
		"drives/drive-1/root:/Converted/2026:/children",
	}, posts)
}

func TestEnsureFolderTopLevelPostsToRootChildren(t *testing.T) {
	var body map[string]any
	c, srv := newTestClient(t)
	srv.OnRequest = func(op graphtest.Op, r *http.Request) {
		if op == graphtest.OpCreateFolder {
			json.NewDecoder(r.Body).Decode(&body)
		}
	}
	// The hook consumes the body, so the fake answers 400; only the request
	// shape matters here.
	_ = c.EnsureFolder(context.Background(), "drive-1", "Temp", "")

	calls := srv.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "drives/drive-1/root/children", calls[1].Path)
	assert.Equal(t, "Temp", body["name"])
	assert.Equal(t, map[string]any{}, body["folder"])
	assert.Equal(t, "fail", body["@microsoft.graph.conflictBehavior"])
}

func TestEnsureFolderErrors(t *testing.T) {
	tests := []struct {
		name   string
		op     graphtest.Op
		status int
		wantOp string
	}{
		{"lookup forbidden", graphtest.OpGetFolder, http.StatusForbidden, "ensureFolder(get)"},
		{"create conflict", graphtest.OpCreateFolder, http.StatusConflict, "ensureFolder(post)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, srv := newTestClient(t)
			srv.Fail(tt.op, tt.status, `{"error":{"code":"x"}}`)

			err := c.EnsureFolder(context.Background(), "drive-1", "Temp", "")

			var reqErr *RequestError
			require.ErrorAs(t, err, &reqErr)
			assert.Equal(t, tt.wantOp, reqErr.Op)
			assert.Equal(t, tt.status, reqErr.StatusCode)
		})
	}
}
