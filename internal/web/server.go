// Package web serves the single-page upload and question UI.
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"askpdf/internal/config"
	"askpdf/internal/embedding"
	"askpdf/internal/models"
	"askpdf/internal/parser"
	"askpdf/internal/rag"
)

const (
	pageTitle       = "Ask your PDF"
	pageTemplate    = "index.html"
	shutdownTimeout = 10 * time.Second
)

//go:embed templates/*.html
var templates embed.FS

// Server holds the current document session. Handlers that touch the
// session run one at a time.
type Server struct {
	cfg      *config.Config
	embedder embedding.Embedder
	answerer rag.Answerer
	engine   *gin.Engine
	markdown goldmark.Markdown

	mu      sync.Mutex
	session *rag.Session
}

type pageData struct {
	Title    string
	Filename string
	Chunks   int
	Question string
	Answer   template.HTML
	Sources  []models.Chunk
	Error    string
}

func NewServer(cfg *config.Config, embedder embedding.Embedder, answerer rag.Answerer) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:      cfg,
		embedder: embedder,
		answerer: answerer,
		engine:   gin.New(),
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(
				html.WithHardWraps(),
			),
		),
	}

	s.engine.Use(requestLogger(), gin.Recovery())
	s.engine.SetHTMLTemplate(template.Must(template.ParseFS(templates, "templates/*.html")))

	s.engine.GET("/", s.index)
	s.engine.POST("/upload", s.upload)
	s.engine.POST("/ask", s.ask)
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Starting web server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
		log.Info().Msg("Shutting down web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) index(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.render(c, http.StatusOK, s.page())
}

func (s *Server) upload(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes())
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(c, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds %d MB", s.cfg.Server.MaxUploadMB))
			return
		}
		s.fail(c, http.StatusBadRequest, fmt.Errorf("no file uploaded: %w", err))
		return
	}
	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".pdf") {
		s.fail(c, http.StatusBadRequest, fmt.Errorf("%w: %s is not a .pdf file", models.ErrUnreadablePDF, fileHeader.Filename))
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		s.fail(c, http.StatusBadRequest, fmt.Errorf("failed to open upload: %w", err))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		s.fail(c, http.StatusBadRequest, fmt.Errorf("failed to read upload: %w", err))
		return
	}
	if !parser.IsPDF(data) {
		s.fail(c, http.StatusBadRequest, fmt.Errorf("%w: %s has no PDF header", models.ErrUnreadablePDF, fileHeader.Filename))
		return
	}

	text, err := parser.ExtractText(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		s.fail(c, statusFor(err), err)
		return
	}

	session, err := rag.NewSession(c.Request.Context(), fileHeader.Filename, text, &s.cfg.RAG, s.embedder)
	if err != nil {
		s.fail(c, statusFor(err), err)
		return
	}
	s.session = session

	s.render(c, http.StatusOK, s.page())
}

func (s *Server) ask(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		s.fail(c, http.StatusBadRequest, fmt.Errorf("%w: upload a PDF first", models.ErrEmptyIndex))
		return
	}
	question := strings.TrimSpace(c.PostForm("question"))
	if question == "" {
		s.fail(c, http.StatusBadRequest, errors.New("question is empty"))
		return
	}

	resp, err := s.session.Ask(c.Request.Context(), question, s.answerer)
	if err != nil {
		s.fail(c, statusFor(err), err)
		return
	}

	answer, err := s.renderMarkdown(resp.Content)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}

	data := s.page()
	data.Question = question
	data.Answer = answer
	data.Sources = resp.Sources
	s.render(c, http.StatusOK, data)
}

func (s *Server) page() pageData {
	data := pageData{Title: pageTitle}
	if s.session != nil {
		data.Filename = s.session.Filename
		data.Chunks = s.session.Index.Len()
	}
	return data
}

func (s *Server) fail(c *gin.Context, status int, err error) {
	log.Error().Err(err).Int("status", status).Str("path", c.Request.URL.Path).Msg("Request failed")
	data := s.page()
	data.Error = err.Error()
	s.render(c, status, data)
}

func (s *Server) render(c *gin.Context, status int, data pageData) {
	c.HTML(status, pageTemplate, data)
}

func (s *Server) renderMarkdown(text string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("failed to render answer: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrProvider):
		return http.StatusBadGateway
	case errors.Is(err, models.ErrConfig),
		errors.Is(err, models.ErrUnreadablePDF),
		errors.Is(err, models.ErrEmptyIndex):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("Handled request")
	}
}
