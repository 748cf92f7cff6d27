package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/df07/go-whitted-raytracer/pkg/renderer"
	"github.com/df07/go-whitted-raytracer/pkg/scene"
)

const (
	writeWait       = 10 * time.Second
	pingInterval    = 30 * time.Second
	maxRequestBytes = 4096
)

// RenderRequest is the first message a client sends on /api/render
type RenderRequest struct {
	Scene       string `json:"scene"`                 // Scene ID, e.g. "default" or "json:glass-row"
	Width       int    `json:"width,omitempty"`       // Defaults to the scene's width
	Height      int    `json:"height,omitempty"`      // Defaults to the scene's height
	MaxDepth    *int   `json:"maxDepth,omitempty"`    // Defaults to the scene's depth
	RowsPerBand int    `json:"rowsPerBand,omitempty"` // Rows streamed per band update
}

// Event is a message streamed to the client
type Event struct {
	Type    string          `json:"type"` // "band", "console", "complete", "error"
	Band    *BandUpdate     `json:"band,omitempty"`
	Console *ConsoleMessage `json:"console,omitempty"`
	Stats   *Stats          `json:"stats,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// BandUpdate carries the pixels of one finished row band
type BandUpdate struct {
	Y0         int    `json:"y0"`
	Y1         int    `json:"y1"` // Exclusive
	Width      int    `json:"width"`
	BandNumber int    `json:"bandNumber"`
	TotalBands int    `json:"totalBands"`
	ImageData  string `json:"imageData"` // Base64 encoded PNG of just this band
}

// Stats represents render statistics
type Stats struct {
	TotalPixels      int     `json:"totalPixels"`
	TotalBands       int     `json:"totalBands"`
	CompletedBands   int     `json:"completedBands"`
	Workers          int     `json:"workers"`
	PrimaryRays      int64   `json:"primaryRays"`
	SecondaryRays    int64   `json:"secondaryRays"`
	ShadowRays       int64   `json:"shadowRays"`
	RaysPerSecond    float64 `json:"raysPerSecond"`
	AverageLuminance float64 `json:"averageLuminance"`
	ElapsedMs        int64   `json:"elapsedMs"`
}

func newStats(rs renderer.RenderStats) *Stats {
	return &Stats{
		TotalPixels:      rs.TotalPixels,
		TotalBands:       rs.TotalBands,
		CompletedBands:   rs.CompletedBands,
		Workers:          rs.NumWorkers,
		PrimaryRays:      rs.Rays.PrimaryRays,
		SecondaryRays:    rs.Rays.SecondaryRays,
		ShadowRays:       rs.Rays.ShadowRays,
		RaysPerSecond:    rs.RaysPerSecond(),
		AverageLuminance: rs.AverageLuminance,
		ElapsedMs:        rs.Elapsed.Milliseconds(),
	}
}

// eventSink queues events for the connection's single writer. Sends after
// close are dropped.
type eventSink struct {
	mu     sync.Mutex
	closed bool
	ch     chan Event
}

func newEventSink(size int) *eventSink {
	return &eventSink{ch: make(chan Event, size)}
}

// send blocks until the event is queued or ctx is done
func (s *eventSink) send(ctx context.Context, ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// trySend drops the event when the queue is full
func (s *eventSink) trySend(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- ev:
	default:
	}
}

func (s *eventSink) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// handleRender streams a render over a WebSocket, one message per row band
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxRequestBytes)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sink := newEventSink(64)
	writerDone := make(chan struct{})
	go s.writeEvents(conn, sink.ch, cancel, writerDone)
	defer func() {
		sink.close()
		<-writerDone
	}()

	var req RenderRequest
	if err := conn.ReadJSON(&req); err != nil {
		sink.send(ctx, Event{Type: "error", Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}

	// The client sends nothing after the request, so any read result means
	// it went away
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	renderID := fmt.Sprintf("render-%d", time.Now().UnixNano())
	logger := slog.New(NewConsoleHandler(s.logger.Handler(), slog.LevelInfo, func(msg ConsoleMessage) {
		sink.trySend(Event{Type: "console", Console: &msg})
	})).With("render_id", renderID)

	pipeline, err := s.setupRenderingPipeline(&req, logger)
	if err != nil {
		sink.send(ctx, Event{Type: "error", Error: err.Error()})
		return
	}

	logger.Info("render requested", "scene", req.Scene, "width", pipeline.fb.Width(), "height", pipeline.fb.Height())

	stats, err := pipeline.renderer.RenderProgressive(ctx, pipeline.fb, func(band renderer.BandResult) {
		data, err := encodeBand(pipeline.fb.SubImage(band.Bounds))
		if err != nil {
			logger.Error("failed to encode band", "band", band.BandNumber, "error", err)
			return
		}
		sink.send(ctx, Event{Type: "band", Band: &BandUpdate{
			Y0:         band.Bounds.Min.Y,
			Y1:         band.Bounds.Max.Y,
			Width:      band.Bounds.Dx(),
			BandNumber: band.BandNumber,
			TotalBands: band.TotalBands,
			ImageData:  data,
		}})
	})
	if err != nil {
		sink.send(ctx, Event{Type: "error", Error: fmt.Sprintf("render cancelled: %v", err), Stats: newStats(stats)})
		return
	}

	if pipeline.cacheable {
		s.archive(frameKey(pipeline.cacheID, pipeline.fb.Width(), pipeline.fb.Height()), pipeline.fb.RGBA())
	}
	sink.send(ctx, Event{Type: "complete", Stats: newStats(stats)})
}

// renderingPipeline contains the configured scene and renderer for one request
type renderingPipeline struct {
	scene     *scene.Scene
	renderer  *renderer.Renderer
	fb        *renderer.Framebuffer
	cacheID   string
	cacheable bool // Renders at the scene's own depth match /api/frame output
}

// setupRenderingPipeline validates a request and builds its renderer
func (s *Server) setupRenderingPipeline(req *RenderRequest, logger *slog.Logger) (*renderingPipeline, error) {
	if req.Scene == "" {
		req.Scene = "default"
	}
	sceneObj, cacheID, err := s.loadScene(req.Scene)
	if err != nil {
		return nil, err
	}

	width, height := req.Width, req.Height
	if width == 0 {
		width = sceneObj.Config.Width
	}
	if height == 0 {
		height = sceneObj.Config.Height
	}
	if width < minImageSize || width > maxImageSize || height < minImageSize || height > maxImageSize {
		return nil, fmt.Errorf("image size must be between %d and %d, got %dx%d", minImageSize, maxImageSize, width, height)
	}
	if err := s.checkPixels(width, height); err != nil {
		return nil, err
	}
	sceneObj.Config.Width = width
	sceneObj.Config.Height = height

	cacheable := true
	if req.MaxDepth != nil {
		if *req.MaxDepth < 0 || *req.MaxDepth > 32 {
			return nil, fmt.Errorf("maxDepth must be between 0 and 32, got %d", *req.MaxDepth)
		}
		cacheable = *req.MaxDepth == sceneObj.Config.MaxDepth
		sceneObj.Config.MaxDepth = *req.MaxDepth
	}
	if req.RowsPerBand < 0 {
		return nil, fmt.Errorf("rowsPerBand must be non-negative, got %d", req.RowsPerBand)
	}
	rows := req.RowsPerBand
	if rows == 0 {
		rows = max(1, height/32)
	}

	return &renderingPipeline{
		scene: sceneObj,
		renderer: renderer.NewRenderer(sceneObj, renderer.Config{
			NumWorkers:  s.cfg.Workers,
			RowsPerTask: rows,
			Logger:      logger,
		}),
		fb:        renderer.NewFramebuffer(width, height),
		cacheID:   cacheID,
		cacheable: cacheable,
	}, nil
}

// writeEvents is the only goroutine writing to conn
func (s *Server) writeEvents(conn *websocket.Conn, events <-chan Event, cancel context.CancelFunc, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	failed := false
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				if !failed {
					conn.SetWriteDeadline(time.Now().Add(writeWait))
					conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				}
				return
			}
			if failed {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				s.logger.Debug("websocket write failed", "error", err)
				failed = true
				cancel()
			}
		case <-ticker.C:
			if failed {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				failed = true
				cancel()
			}
		}
	}
}

// encodeBand converts a band of the frame to base64-encoded PNG
func encodeBand(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
