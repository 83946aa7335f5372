package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/postkeeper/internal/common"
	"github.com/dmitrijs2005/postkeeper/internal/server/models"
)

const maxBodyBytes = 1 << 20

// errBadRequest marks malformed input that is not a field validation failure.
var errBadRequest = errors.New("bad request")

func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.URL.Query().Has("title") {
		p, err := s.posts.FindByTitle(ctx, r.URL.Query().Get("title"))
		switch {
		case errors.Is(err, common.ErrorNotFound):
			s.writeJSON(w, r, http.StatusOK, []*models.Post{})
		case err != nil:
			s.writeError(w, r, err)
		default:
			s.writeJSON(w, r, http.StatusOK, []*models.Post{p})
		}
		return
	}

	result, err := s.posts.List(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if result == nil {
		result = []*models.Post{}
	}
	s.writeJSON(w, r, http.StatusOK, result)
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.posts.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, p)
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	in, err := decodePost(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.posts.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, p)
}

func (s *Server) updatePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	in, err := decodePost(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.posts.Update(r.Context(), id, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, p)
}

func (s *Server) deletePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.posts.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(r *http.Request) (int, error) {
	raw := r.PathValue("id")
	// ids are stored as INTEGER
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid post id %q", errBadRequest, raw)
	}
	return int(id), nil
}

func decodePost(w http.ResponseWriter, r *http.Request) (models.Post, error) {
	var p models.Post

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&p); err != nil {
		return p, fmt.Errorf("%w: malformed post: %v", errBadRequest, err)
	}
	if dec.More() {
		return p, fmt.Errorf("%w: malformed post: trailing data after JSON object", errBadRequest)
	}
	return p, nil
}
