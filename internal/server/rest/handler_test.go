package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/postkeeper/internal/common"
	"github.com/dmitrijs2005/postkeeper/internal/logging"
	"github.com/dmitrijs2005/postkeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fakes ----

type fakePosts struct {
	list      []*models.Post
	listErr   error
	byTitle   *models.Post
	titleErr  error
	get       *models.Post
	getErr    error
	created   *models.Post
	createErr error
	updated   *models.Post
	updateErr error
	deleteErr error

	gotID    int
	gotTitle string
	gotPost  models.Post
	calls    int
}

func (f *fakePosts) List(context.Context) ([]*models.Post, error) {
	f.calls++
	return f.list, f.listErr
}

func (f *fakePosts) FindByTitle(_ context.Context, title string) (*models.Post, error) {
	f.calls++
	f.gotTitle = title
	return f.byTitle, f.titleErr
}

func (f *fakePosts) Get(_ context.Context, id int) (*models.Post, error) {
	f.calls++
	f.gotID = id
	return f.get, f.getErr
}

func (f *fakePosts) Create(_ context.Context, p models.Post) (*models.Post, error) {
	f.calls++
	f.gotPost = p
	return f.created, f.createErr
}

func (f *fakePosts) Update(_ context.Context, id int, p models.Post) (*models.Post, error) {
	f.calls++
	f.gotID = id
	f.gotPost = p
	return f.updated, f.updateErr
}

func (f *fakePosts) Delete(_ context.Context, id int) error {
	f.calls++
	f.gotID = id
	return f.deleteErr
}

// ---- helpers ----

func intPtr(v int) *int { return &v }

func newTestServer(ps postService) *Server {
	return NewServer("127.0.0.1:0", logging.Nop(), ps, 0)
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	if body != "" {
		rdr = bytes.NewReader([]byte(body))
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rdr)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func samplePosts() []*models.Post {
	return []*models.Post{
		{ID: 1, UserID: 1, Title: "Hello, World!", Body: "This is my first post."},
		{ID: 2, UserID: 1, Title: "Hello again, World!", Body: "This is my second post."},
	}
}

// ---- tests ----

func TestListPosts(t *testing.T) {
	s := newTestServer(&fakePosts{list: samplePosts()})

	rec := do(t, s, http.MethodGet, "/api/posts", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `[
		{"id":1,"userId":1,"title":"Hello, World!","body":"This is my first post.","version":null},
		{"id":2,"userId":1,"title":"Hello again, World!","body":"This is my second post.","version":null}
	]`, rec.Body.String())
}

func TestListPosts_EmptyIsArray(t *testing.T) {
	s := newTestServer(&fakePosts{})

	rec := do(t, s, http.MethodGet, "/api/posts", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListPosts_ByTitle(t *testing.T) {
	f := &fakePosts{byTitle: samplePosts()[0]}
	s := newTestServer(f)

	rec := do(t, s, http.MethodGet, "/api/posts?title=Hello%2C+World%21", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hello, World!", f.gotTitle)

	var got []models.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].ID)
}

func TestListPosts_ByTitleMissing(t *testing.T) {
	s := newTestServer(&fakePosts{titleErr: common.ErrorNotFound})

	rec := do(t, s, http.MethodGet, "/api/posts?title=nope", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListPosts_InternalError(t *testing.T) {
	s := newTestServer(&fakePosts{listErr: errors.New("db down: secret dsn")})

	rec := do(t, s, http.MethodGet, "/api/posts", "")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}

func TestGetPost(t *testing.T) {
	f := &fakePosts{get: samplePosts()[0]}
	s := newTestServer(f)

	rec := do(t, s, http.MethodGet, "/api/posts/1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.gotID)
	assert.JSONEq(t, `{"id":1,"userId":1,"title":"Hello, World!","body":"This is my first post.","version":null}`, rec.Body.String())
}

func TestGetPost_NotFound(t *testing.T) {
	s := newTestServer(&fakePosts{getErr: common.ErrorNotFound})

	rec := do(t, s, http.MethodGet, "/api/posts/999", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetPost_BadID(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{name: "not a number", id: "abc"},
		{name: "above int32", id: "2147483648"},
		{name: "below int32", id: "-2147483649"},
		{name: "huge", id: "99999999999999999999"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakePosts{}
			s := newTestServer(f)

			rec := do(t, s, http.MethodGet, "/api/posts/"+tt.id, "")

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Zero(t, f.calls)
		})
	}
}

func TestGetPost_MaxInt32ID(t *testing.T) {
	f := &fakePosts{getErr: common.ErrorNotFound}
	s := newTestServer(f)

	rec := do(t, s, http.MethodGet, "/api/posts/2147483647", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 2147483647, f.gotID)
}

func TestCreatePost(t *testing.T) {
	created := &models.Post{ID: 101, UserID: 1, Title: "Post title", Body: "post body"}
	f := &fakePosts{created: created}
	s := newTestServer(f)

	rec := do(t, s, http.MethodPost, "/api/posts", `{"id":101,"userId":1,"title":"Post title","body":"post body","version":null}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, models.Post{ID: 101, UserID: 1, Title: "Post title", Body: "post body"}, f.gotPost)

	var got models.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, *created, got)
}

func TestCreatePost_ValidationFailed(t *testing.T) {
	s := newTestServer(&fakePosts{createErr: &models.ValidationError{Fields: []string{"title", "body"}}})

	rec := do(t, s, http.MethodPost, "/api/posts", `{"id":3,"userId":1,"title":"","body":"","version":null}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var got errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []string{"title", "body"}, got.Fields)
}

func TestCreatePost_MalformedBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "truncated", body: `{"id":"one"`},
		{name: "two objects", body: `{"userId":1,"title":"t","body":"b"}{"userId":2,"title":"u","body":"c"}`},
		{name: "trailing garbage", body: `{"userId":1,"title":"t","body":"b"} x`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakePosts{}
			s := newTestServer(f)

			rec := do(t, s, http.MethodPost, "/api/posts", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Zero(t, f.calls)
		})
	}
}

func TestCreatePost_TrailingWhitespaceAccepted(t *testing.T) {
	f := &fakePosts{created: &models.Post{ID: 1000, UserID: 1, Title: "t", Body: "b"}}
	s := newTestServer(f)

	rec := do(t, s, http.MethodPost, "/api/posts", "{\"userId\":1,\"title\":\"t\",\"body\":\"b\"}\n")

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, f.calls)
}

func TestUpdatePost_IDOutOfRange(t *testing.T) {
	f := &fakePosts{}
	s := newTestServer(f)

	rec := do(t, s, http.MethodPut, "/api/posts/4294967296", `{"title":"t","body":"b"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, f.calls)
}

func TestCreatePost_Conflict(t *testing.T) {
	s := newTestServer(&fakePosts{createErr: common.ErrVersionConflict})

	rec := do(t, s, http.MethodPost, "/api/posts", `{"id":1,"userId":1,"title":"t","body":"b"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdatePost(t *testing.T) {
	updated := &models.Post{ID: 1, UserID: 1, Title: "This is a new title", Body: "This is a new body", Version: intPtr(1)}
	f := &fakePosts{updated: updated}
	s := newTestServer(f)

	rec := do(t, s, http.MethodPut, "/api/posts/1", `{"id":1,"userId":1,"title":"This is a new title","body":"This is a new body","version":1}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.gotID)
	assert.Equal(t, "This is a new title", f.gotPost.Title)
	assert.JSONEq(t, `{"id":1,"userId":1,"title":"This is a new title","body":"This is a new body","version":1}`, rec.Body.String())
}

func TestUpdatePost_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "not found", err: common.ErrorNotFound, status: http.StatusNotFound},
		{name: "validation", err: &models.ValidationError{Fields: []string{"title"}}, status: http.StatusBadRequest},
		{name: "conflict", err: common.ErrVersionConflict, status: http.StatusConflict},
		{name: "internal", err: errors.New("boom"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&fakePosts{updateErr: tt.err})
			rec := do(t, s, http.MethodPut, "/api/posts/7", `{"title":"t","body":"b"}`)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestDeletePost(t *testing.T) {
	f := &fakePosts{}
	s := newTestServer(f)

	rec := do(t, s, http.MethodDelete, "/api/posts/88", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, 88, f.gotID)
	assert.Equal(t, 1, f.calls)
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(&fakePosts{})

	rec := do(t, s, http.MethodPatch, "/api/posts/1", `{}`)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRequestID(t *testing.T) {
	s := newTestServer(&fakePosts{})

	rec := do(t, s, http.MethodGet, "/api/posts", "")
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	req.Header.Set(RequestIDHeader, "given-id")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "given-id", rec.Header().Get(RequestIDHeader))
}

type panickingPosts struct{ fakePosts }

func (p *panickingPosts) List(context.Context) ([]*models.Post, error) { panic("kaput") }

func TestRecoverPanic(t *testing.T) {
	s := newTestServer(&panickingPosts{})

	rec := do(t, s, http.MethodGet, "/api/posts", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
