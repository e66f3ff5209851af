// Package server exposes merge sessions over HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/shawnsang/auto-openspg-schema/internal/config"
	"github.com/shawnsang/auto-openspg-schema/internal/core"
	"github.com/shawnsang/auto-openspg-schema/internal/core/merge"
	"github.com/shawnsang/auto-openspg-schema/internal/core/model"
	"github.com/shawnsang/auto-openspg-schema/internal/core/schema"
	"github.com/shawnsang/auto-openspg-schema/internal/core/session"
)

type Server struct {
	Config    *config.Config
	Generator *core.Generator
	Logger    *slog.Logger
	NewID     func() string

	mu       sync.RWMutex
	sessions map[string]*session.Session
}

// NewServer builds a server. gen may be nil, in which case document uploads
// are refused and only candidate batches are accepted.
func NewServer(cfg *config.Config, gen *core.Generator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		Config:    cfg,
		Generator: gen,
		Logger:    logger,
		NewID:     uuid.NewString,
		sessions:  make(map[string]*session.Session),
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.POST("/sessions", s.CreateSession)
	r.POST("/sessions/:id/batches", s.AddBatch)
	r.POST("/sessions/:id/documents", s.AddDocument)
	r.GET("/sessions/:id/schema", s.GetSchema)
	r.POST("/sessions/:id/removals", s.ConfirmRemovals)
	r.DELETE("/sessions/:id", s.DeleteSession)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.SetupRouter()}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.Logger.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

type CreateSessionRequest struct {
	Namespace string `json:"namespace"`
	Schema    string `json:"schema"`
}

func (s *Server) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	policy, err := merge.ParsePolicy(s.Config.Schema.DescriptionPolicy)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	opts := []session.Option{
		session.WithMerger(merge.NewMerger(policy, s.Logger)),
		session.WithLogger(s.Logger),
	}

	var sess *session.Session
	if req.Schema != "" {
		sess, err = session.FromSchema(req.Schema, req.Namespace, opts...)
		if err != nil {
			writeError(c, err)
			return
		}
	} else {
		namespace := req.Namespace
		if namespace == "" {
			namespace = s.Config.Schema.Namespace
		}
		sess, err = session.New(namespace, opts...)
		if err != nil {
			writeError(c, err)
			return
		}
	}

	id := s.NewID()
	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	s.Logger.Info("session created", "session", id, "namespace", sess.Namespace())
	c.JSON(http.StatusCreated, gin.H{"id": id, "namespace": sess.Namespace()})
}

func (s *Server) AddBatch(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var batch merge.Batch
	if err := c.ShouldBindJSON(&batch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if _, err := merge.ParseMode(string(batch.Mode)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := sess.AddBatch(batch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type AddDocumentRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	Mode    string `json:"mode"`
}

func (s *Server) AddDocument(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	if s.Generator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "extraction is not configured"})
		return
	}
	var req AddDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	mode, err := merge.ParseMode(req.Mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := s.Generator.ProcessDocument(c.Request.Context(), sess, core.Document{Name: req.Name, Content: req.Content}, mode)
	if err != nil {
		s.Logger.Error("failed to process document", "document", req.Name, "error", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetSchema returns the schema text with the session totals, or the raw
// encoded document when a format is given.
func (s *Server) GetSchema(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	if raw := c.Query("format"); raw != "" {
		f, err := schema.ParseFormat(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		data, err := schema.Encode(sess.Document(), f)
		if err != nil {
			writeError(c, err)
			return
		}
		c.Data(http.StatusOK, f.ContentType(), data)
		return
	}

	text, totals := sess.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"namespace":        sess.Namespace(),
		"schema":           text,
		"report":           totals,
		"pending_removals": sess.PendingRemovals(),
	})
}

type ConfirmRemovalsRequest struct {
	Keys []model.Key `json:"keys"`
}

// ConfirmRemovals deletes flagged records. An empty key list confirms every
// pending removal.
func (s *Server) ConfirmRemovals(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req ConfirmRemovalsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	keys := make([]model.Key, 0, len(req.Keys))
	for _, k := range req.Keys {
		t, err := model.ParseEntityType(string(k.Type))
		if err != nil {
			writeError(c, err)
			return
		}
		keys = append(keys, model.NewKey(t, k.Name))
	}

	report, err := sess.ConfirmRemovals(keys...)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) DeleteSession(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	s.Logger.Info("session closed", "session", id)
	c.Status(http.StatusNoContent)
}

func (s *Server) session(c *gin.Context) (*session.Session, bool) {
	id := c.Param("id")
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	}
	return sess, ok
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrMalformedSchema),
		errors.Is(err, model.ErrInvalidEntityType),
		errors.Is(err, model.ErrEmptyName),
		errors.Is(err, model.ErrDuplicateKey),
		errors.Is(err, model.ErrEmptyBatchID),
		errors.Is(err, model.ErrInvalidNamespace):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrNotFlagged):
		status = http.StatusConflict
	}
	body := gin.H{"error": err.Error()}
	var malformed *model.MalformedSchemaError
	if errors.As(err, &malformed) && malformed.Line > 0 {
		body["line"] = malformed.Line
	}
	c.JSON(status, body)
}

