// Package server exposes the HTTP API: URL submission, task status, query,
// document listing, and stats.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"articlerag/internal/answer"
	"articlerag/internal/jobs"
	"articlerag/pkg/models"
)

// DocumentsPageSize is the fixed page size of the document listing.
const DocumentsPageSize = 100

// JobQueue is the job surface the API needs.
type JobQueue interface {
	Enqueue(ctx context.Context, url string) (string, error)
	Get(ctx context.Context, id string) (*jobs.Job, error)
}

// Answerer runs the query pipeline.
type Answerer interface {
	Answer(ctx context.Context, question string, topK int) (*answer.Answer, error)
}

// DocumentStore is the listing surface the API needs.
type DocumentStore interface {
	List(ctx context.Context, skip, limit int) ([]models.Document, error)
	Count(ctx context.Context) (int, error)
}

// VectorCounter reports the number of stored vectors.
type VectorCounter interface {
	Count(ctx context.Context) (int, error)
}

// Server is the HTTP API server.
type Server struct {
	echo     *echo.Echo
	queue    JobQueue
	answerer Answerer
	store    DocumentStore
	vectors  VectorCounter
}

// New creates the API server and registers its routes.
func New(queue JobQueue, answerer Answerer, store DocumentStore, vectors VectorCounter) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:     e,
		queue:    queue,
		answerer: answerer,
		store:    store,
		vectors:  vectors,
	}

	e.POST("/add-url", s.handleAddURL)
	e.GET("/tasks/:id", s.handleGetTask)
	e.POST("/query", s.handleQuery)
	e.GET("/documents", s.handleListDocuments)
	e.GET("/stats", s.handleStats)
	e.GET("/health", s.handleHealth)

	return s
}

// Start serves HTTP on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	slog.Info("starting HTTP server", "addr", addr)
	err := s.echo.Start(addr)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the routing tree, for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

type addURLRequest struct {
	URL string `json:"url"`
}

type addURLResponse struct {
	Message string `json:"message"`
	TaskID  string `json:"task_id"`
}

func (s *Server) handleAddURL(c echo.Context) error {
	var req addURLRequest
	if err := c.Bind(&req); err != nil || req.URL == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "url is required"})
	}

	taskID, err := s.queue.Enqueue(c.Request().Context(), req.URL)
	if err != nil {
		slog.Error("failed to enqueue url", "url", req.URL, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to enqueue url"})
	}

	return c.JSON(http.StatusAccepted, addURLResponse{
		Message: "URL queued for processing",
		TaskID:  taskID,
	})
}

func (s *Server) handleGetTask(c echo.Context) error {
	job, err := s.queue.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		slog.Error("failed to load task", "task_id", c.Param("id"), "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load task"})
	}
	if job == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "task not found"})
	}

	return c.JSON(http.StatusOK, job)
}

type queryRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
}

func (s *Server) handleQuery(c echo.Context) error {
	var req queryRequest
	if err := c.Bind(&req); err != nil || req.Question == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "question is required"})
	}

	result, err := s.answerer.Answer(c.Request().Context(), req.Question, req.TopK)
	if err != nil {
		slog.Error("query failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
	}
	if result.Sources == nil {
		result.Sources = []string{}
	}

	return c.JSON(http.StatusOK, result)
}

type documentSummary struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type documentsResponse struct {
	Page      int               `json:"page"`
	PageSize  int               `json:"page_size"`
	Total     int               `json:"total"`
	Documents []documentSummary `json:"documents"`
}

func (s *Server) handleListDocuments(c echo.Context) error {
	page := 1
	if raw := c.QueryParam("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "page must be a positive integer"})
		}
		page = parsed
	}

	ctx := c.Request().Context()
	total, err := s.store.Count(ctx)
	if err != nil {
		slog.Error("failed to count documents", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list documents"})
	}

	docs, err := s.store.List(ctx, (page-1)*DocumentsPageSize, DocumentsPageSize)
	if err != nil {
		slog.Error("failed to list documents", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list documents"})
	}

	summaries := make([]documentSummary, len(docs))
	for i, doc := range docs {
		summaries[i] = documentSummary{
			ID:        doc.ID,
			URL:       doc.URL,
			Title:     doc.Data.Title,
			CreatedAt: doc.CreatedAt,
		}
	}

	return c.JSON(http.StatusOK, documentsResponse{
		Page:      page,
		PageSize:  DocumentsPageSize,
		Total:     total,
		Documents: summaries,
	})
}

type statsResponse struct {
	Documents int  `json:"documents"`
	Vectors   *int `json:"vectors"`
}

func (s *Server) handleStats(c echo.Context) error {
	ctx := c.Request().Context()

	docs, err := s.store.Count(ctx)
	if err != nil {
		slog.Error("failed to count documents", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to compute stats"})
	}

	// The vector index is secondary; if it is unreachable the stats still
	// report the document count, with a null vector count.
	resp := statsResponse{Documents: docs}
	if vectors, err := s.vectors.Count(ctx); err != nil {
		slog.Warn("failed to count vectors", "error", err)
	} else {
		resp.Vectors = &vectors
	}

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
