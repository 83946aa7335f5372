// Package rest exposes the post service as a JSON REST API under /api/posts.
package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/postkeeper/internal/logging"
	"github.com/dmitrijs2005/postkeeper/internal/server/models"
)

// postService is the subset of services.PostService the handlers need.
type postService interface {
	List(ctx context.Context) ([]*models.Post, error)
	FindByTitle(ctx context.Context, title string) (*models.Post, error)
	Get(ctx context.Context, id int) (*models.Post, error)
	Create(ctx context.Context, p models.Post) (*models.Post, error)
	Update(ctx context.Context, id int, p models.Post) (*models.Post, error)
	Delete(ctx context.Context, id int) error
}

type Server struct {
	address         string
	posts           postService
	logger          logging.Logger
	shutdownTimeout time.Duration
}

func NewServer(address string, l logging.Logger, ps postService, shutdownTimeout time.Duration) *Server {
	return &Server{
		address:         address,
		posts:           ps,
		logger:          l.With("module", "http_server"),
		shutdownTimeout: shutdownTimeout,
	}
}

// Handler returns the routed API wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/posts", s.listPosts)
	mux.HandleFunc("GET /api/posts/{id}", s.getPost)
	mux.HandleFunc("POST /api/posts", s.createPost)
	mux.HandleFunc("PUT /api/posts/{id}", s.updatePost)
	mux.HandleFunc("DELETE /api/posts/{id}", s.deletePost)

	return s.requestID(s.recoverPanic(s.accessLog(mux)))
}

// Run serves the API until ctx is cancelled, then drains in-flight requests
// for at most the shutdown timeout. onListening, if set, is called once the
// listener is bound.
func (s *Server) Run(ctx context.Context, onListening func()) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	shutdownDone := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()
		shutdownDone <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())
	if onListening != nil {
		onListening()
	}

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return <-shutdownDone
}
