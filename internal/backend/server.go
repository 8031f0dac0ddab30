// Package backend is the authoritative remote store: a small JSON API over
// SQLite that the sync gateway lists, saves and uploads against.
package backend

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sadopc/hard75/internal/program"
	"github.com/sadopc/hard75/internal/remote"
)

const (
	PathStorage     = "/api/storage"
	maxJSONBody     = 10 << 20 // 10MB
	maxUploadBody   = 20 << 20 // 20MB
	shutdownTimeout = 5 * time.Second
)

var backendRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "hard75_backend_requests_total",
	Help: "Backend API requests by route and status code.",
}, []string{"route", "status"})

// Options configures the server. PublicURL is the externally visible base
// used in upload targets and image URLs; when empty it is derived from each
// request's Host.
type Options struct {
	PublicURL string
	Logger    *slog.Logger
}

type Server struct {
	store     *Store
	router    *gin.Engine
	publicURL string
	logger    *slog.Logger
}

// NewServer wires the API routes over st.
func NewServer(st *Store, opts Options) *Server {
	router := gin.New()

	s := &Server{
		store:     st,
		router:    router,
		publicURL: strings.TrimRight(opts.PublicURL, "/"),
		logger:    opts.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	router.Use(gin.Recovery(), s.observe)

	api := router.Group("/api")
	{
		api.GET("/list", s.handleList)
		api.POST("/entry", s.handleSave)
		api.POST("/upload-url", s.handleUploadURL)
		api.GET("/image-url", s.handleImageURL)
		api.POST("/storage", s.handleUpload)
		api.GET("/storage/:id", s.handleDownload)
	}
	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("backend listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// observe logs and counts every request.
func (s *Server) observe(c *gin.Context) {
	start := time.Now()
	c.Next()

	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	status := c.Writer.Status()
	backendRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	s.logger.Debug("request",
		"method", c.Request.Method,
		"route", route,
		"status", status,
		"duration", time.Since(start),
	)
}

func (s *Server) base(c *gin.Context) string {
	if s.publicURL != "" {
		return s.publicURL
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

func (s *Server) blobURL(c *gin.Context, id string) string {
	return s.base(c) + PathStorage + "/" + id
}

// resolve returns the URL of a stored blob, or nil if it does not exist.
func (s *Server) resolve(c *gin.Context, id string) (*string, error) {
	if id == "" {
		return nil, nil
	}
	ok, err := s.store.HasBlob(c.Request.Context(), id)
	if err != nil || !ok {
		return nil, err
	}
	u := s.blobURL(c, id)
	return &u, nil
}

func (s *Server) fail(c *gin.Context, status int, code string, err error) {
	if err != nil {
		s.logger.Error("request failed", "route", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"ok": false, "error": code})
}

func (s *Server) handleList(c *gin.Context) {
	date := c.Query("date")
	if _, err := program.ParseDate(date); err != nil {
		s.fail(c, http.StatusBadRequest, "invalid_date", nil)
		return
	}

	records, err := s.store.ListByDate(c.Request.Context(), date)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "list_failed", err)
		return
	}

	rows := make([]remote.Row, 0, len(records))
	for _, r := range records {
		row := remote.Row{
			Date:            r.Date,
			TaskKey:         r.TaskKey,
			Completed:       r.Completed,
			Description:     r.Description,
			ImageStorageIDs: r.ImageStorageIDs,
			UpdatedAt:       r.UpdatedAt,
		}
		if r.ImageStorageID != "" {
			id := r.ImageStorageID
			row.ImageStorageID = &id
			if row.ImageURL, err = s.resolve(c, id); err != nil {
				s.fail(c, http.StatusInternalServerError, "list_failed", err)
				return
			}
		}
		if len(r.ImageStorageIDs) > 0 {
			row.Images = make([]remote.ImageRef, len(r.ImageStorageIDs))
			for i, id := range r.ImageStorageIDs {
				u, err := s.resolve(c, id)
				if err != nil {
					s.fail(c, http.StatusInternalServerError, "list_failed", err)
					return
				}
				row.Images[i] = remote.ImageRef{StorageID: id}
				if u != nil {
					row.Images[i].URL = *u
				}
			}
		}
		rows = append(rows, row)
	}
	c.JSON(http.StatusOK, remote.ListResponse{OK: true, Rows: rows})
}

func (s *Server) handleSave(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxJSONBody)
	var req remote.SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, "invalid_body", nil)
		return
	}
	if _, err := program.ParseDate(req.Date); err != nil {
		s.fail(c, http.StatusBadRequest, "invalid_date", nil)
		return
	}
	if !program.TaskKey(req.TaskKey).Valid() {
		s.fail(c, http.StatusBadRequest, "invalid_task", nil)
		return
	}

	id, err := s.store.Save(c.Request.Context(), SaveParams{
		Date:            req.Date,
		TaskKey:         req.TaskKey,
		Completed:       req.Completed,
		Description:     req.Description,
		ImageStorageID:  req.ImageStorageID,
		ImageStorageIDs: req.ImageStorageIDs,
		ClearImage:      req.ClearImage,
	})
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "save_failed", err)
		return
	}
	c.JSON(http.StatusOK, remote.SaveResponse{OK: true, Result: id})
}

func (s *Server) handleUploadURL(c *gin.Context) {
	var req remote.UploadTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, "invalid_body", nil)
		return
	}
	u := s.base(c) + PathStorage
	c.JSON(http.StatusOK, remote.URLResponse{OK: true, URL: &u})
}

func (s *Server) handleImageURL(c *gin.Context) {
	u, err := s.resolve(c, c.Query("storageId"))
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "url_failed", err)
		return
	}
	c.JSON(http.StatusOK, remote.URLResponse{OK: true, URL: u})
}

func (s *Server) handleUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBody)
	data, err := c.GetRawData()
	if err != nil {
		s.fail(c, http.StatusRequestEntityTooLarge, "upload_too_large", nil)
		return
	}
	if len(data) == 0 {
		s.fail(c, http.StatusBadRequest, "no_file", nil)
		return
	}
	contentType := c.ContentType()
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	id, err := s.store.PutBlob(c.Request.Context(), contentType, data)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "upload_failed", err)
		return
	}
	c.JSON(http.StatusOK, remote.UploadResponse{StorageID: id})
}

func (s *Server) handleDownload(c *gin.Context) {
	b, err := s.store.GetBlob(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "download_failed", err)
		return
	}
	if b == nil {
		s.fail(c, http.StatusNotFound, "not_found", nil)
		return
	}
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Data(http.StatusOK, b.ContentType, b.Data)
}
