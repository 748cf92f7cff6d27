package server

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/df07/go-whitted-raytracer/pkg/config"
	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/display"
	"github.com/df07/go-whitted-raytracer/pkg/framestore"
	"github.com/df07/go-whitted-raytracer/pkg/loaders"
	"github.com/df07/go-whitted-raytracer/pkg/renderer"
	"github.com/df07/go-whitted-raytracer/pkg/scene"
)

//go:embed static
var staticFiles embed.FS

const (
	minImageSize = 16
	maxImageSize = 4096
)

// Server handles web requests for the raytracer viewer
type Server struct {
	cfg       *config.Config
	store     *framestore.Store // nil disables frame caching
	logger    *slog.Logger
	scenesDir string
	upgrader  websocket.Upgrader
}

// NewServer creates a new web server. store may be nil.
func NewServer(cfg *config.Config, store *framestore.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = core.Logger()
	}
	scenesDir := cfg.ScenesDir
	if scenesDir == "" {
		scenesDir = scene.FindScenesDir()
	}

	s := &Server{
		cfg:       cfg,
		store:     store,
		logger:    logger,
		scenesDir: scenesDir,
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	return s
}

// Handler returns the HTTP routes wrapped in request logging
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	mux.Handle("/", http.FileServer(http.FS(static)))

	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/scenes", s.handleScenes)
	mux.HandleFunc("/api/frame", s.handleFrame)
	mux.HandleFunc("/api/inspect", s.handleInspect)
	mux.HandleFunc("/api/render", s.handleRender)

	return s.logRequests(mux)
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web server listening", "addr", s.cfg.Address)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.logger.Info("web server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if strings.EqualFold(origin, allowed) {
			return true
		}
	}
	return false
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack passes through to the underlying writer so /api/render can upgrade
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http request",
			"method", r.Method, "path", r.URL.Path,
			"status", rec.status, "elapsed", time.Since(start))
	})
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"frameCache": s.store != nil,
	})
}

// handleScenes lists built-in scenes and the JSON files in the scenes directory
func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	response, err := scene.ListAllScenes(s.scenesDir)
	if err != nil {
		s.logger.Error("failed to list scenes", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list scenes")
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// handleFrame renders a complete frame, or serves it from the frame store
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	sceneID := query.Get("scene")
	if sceneID == "" {
		sceneID = "default"
	}
	sceneObj, cacheID, err := s.loadScene(sceneID)
	if err != nil {
		writeSceneError(w, err)
		return
	}

	width, height, err := s.parseSize(query, sceneObj.Config)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	format := display.FormatPNG
	if name := query.Get("format"); name != "" {
		if format, err = display.ParseFormat(name); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	frame, cached, err := s.frame(r.Context(), cacheID, sceneObj, width, height)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	var out image.Image = frame
	if preview, _ := strconv.ParseBool(query.Get("preview")); preview {
		caption := fmt.Sprintf("%s  %dx%d", sceneID, width, height)
		if out, err = display.Sheet(frame, caption); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	var buf bytes.Buffer
	if err := display.Encode(&buf, out, format); err != nil {
		s.logger.Error("failed to encode frame", "scene", sceneID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to encode frame")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	if cached {
		w.Header().Set("X-Frame-Cache", "hit")
	} else {
		w.Header().Set("X-Frame-Cache", "miss")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// frameKey names a frame in the store
func frameKey(cacheID string, width, height int) string {
	return fmt.Sprintf("%s-%dx%d", cacheID, width, height)
}

// frame returns the rendered frame for a scene at a size, consulting the
// frame store first and filling it on a miss
func (s *Server) frame(ctx context.Context, cacheID string, sceneObj *scene.Scene, width, height int) (*image.RGBA, bool, error) {
	key := frameKey(cacheID, width, height)
	if s.store != nil {
		img, err := s.store.Get(key)
		if err == nil {
			return img, true, nil
		}
		if !errors.Is(err, framestore.ErrNotFound) {
			s.logger.Warn("frame cache read failed", "key", key, "error", err)
		}
	}

	sceneObj.Config.Width = width
	sceneObj.Config.Height = height
	fb := renderer.NewFramebuffer(width, height)
	r := renderer.NewRenderer(sceneObj, renderer.Config{
		NumWorkers:  s.cfg.Workers,
		RowsPerTask: 1,
		Logger:      s.logger.With("scene", cacheID),
	})
	if _, err := r.RenderProgressive(ctx, fb, nil); err != nil {
		return nil, false, fmt.Errorf("render interrupted: %w", err)
	}

	img := fb.RGBA()
	s.archive(key, img)
	return img, false, nil
}

// archive stores a finished frame. Failures only cost a future cache miss.
func (s *Server) archive(key string, img image.Image) {
	if s.store == nil {
		return
	}
	if _, err := s.store.Put(key, img); err != nil {
		s.logger.Warn("failed to store frame", "key", key, "error", err)
	}
}

// loadScene resolves a scene ID: a built-in name, or json:<name> for a file
// in the scenes directory. The returned cache ID names the scene in the frame
// store; for files it carries a hash of the contents so edits miss the cache.
func (s *Server) loadScene(id string) (*scene.Scene, string, error) {
	name, isFile := strings.CutPrefix(id, "json:")
	if !isFile {
		sceneObj, err := scene.Builtin(id)
		return sceneObj, id, err
	}
	if s.scenesDir == "" || name == "" || name != filepath.Base(name) {
		return nil, "", fmt.Errorf("%w: %q", scene.ErrUnknownScene, id)
	}
	path := filepath.Join(s.scenesDir, name+".json")
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", fmt.Errorf("%w: %q", scene.ErrUnknownScene, id)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to read scene file: %w", err)
	}
	sceneObj, err := loaders.ParseSceneJSON(data, s.scenesDir)
	if err != nil {
		return nil, "", fmt.Errorf("scene %s: %w", path, err)
	}
	sum := sha256.Sum256(data)
	return sceneObj, id + "@" + hex.EncodeToString(sum[:4]), nil
}

// parseSize reads width and height, defaulting to the scene's configured size
func (s *Server) parseSize(values url.Values, defaults scene.Config) (int, int, error) {
	width, err := parseIntParam(values, "width", defaults.Width, minImageSize, maxImageSize)
	if err != nil {
		return 0, 0, err
	}
	height, err := parseIntParam(values, "height", defaults.Height, minImageSize, maxImageSize)
	if err != nil {
		return 0, 0, err
	}
	if err := s.checkPixels(width, height); err != nil {
		return 0, 0, err
	}
	return width, height, nil
}

func (s *Server) checkPixels(width, height int) error {
	if width*height > s.cfg.MaxPixels {
		return fmt.Errorf("%dx%d exceeds the %d pixel limit", width, height, s.cfg.MaxPixels)
	}
	return nil
}

// parseIntParam parses an integer parameter from URL query with validation
func parseIntParam(values url.Values, key string, defaultValue, min, max int) (int, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %d and %d, got: %d", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeSceneError(w http.ResponseWriter, err error) {
	if errors.Is(err, scene.ErrUnknownScene) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusUnprocessableEntity, err.Error())
}
