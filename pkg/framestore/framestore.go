// Package framestore archives rendered frames on disk as compressed raw
// RGBA payloads indexed by a JSON manifest.
package framestore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/df07/go-whitted-raytracer/pkg/core"
)

// ErrNotFound is returned by Get for keys that were never stored
var ErrNotFound = errors.New("frame not found")

const manifestName = "manifest.json"

var keyCleaner = regexp.MustCompile(`[^a-zA-Z0-9_.-]+`)

// Entry describes one stored frame
type Entry struct {
	File      string `json:"file"`
	Codec     string `json:"codec"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	RawBytes  int    `json:"raw_bytes"`
	Stored    int    `json:"stored_bytes"`
	CreatedAt string `json:"created_at"`
}

// Manifest indexes the frames in a store directory
type Manifest struct {
	Version int              `json:"version"`
	Frames  map[string]Entry `json:"frames"`
}

// Store is a directory of compressed frames. It is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	dir      string
	codec    Codec
	now      func() time.Time
	manifest Manifest
}

// Open prepares dir as a frame store, loading an existing manifest if one
// is present. New frames are written with codec.
func Open(dir string, codec Codec) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("frame store directory must be provided")
	}
	if codec == nil {
		codec = ZstdCodec{}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create frame store: %w", err)
	}

	s := &Store{
		dir:      dir,
		codec:    codec,
		now:      time.Now,
		manifest: Manifest{Version: 1, Frames: map[string]Entry{}},
	}

	data, err := os.ReadFile(filepath.Join(dir, manifestName))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	default:
		if err := json.Unmarshal(data, &s.manifest); err != nil {
			return nil, fmt.Errorf("failed to parse manifest: %w", err)
		}
		if s.manifest.Frames == nil {
			s.manifest.Frames = map[string]Entry{}
		}
	}

	core.Logger().Debug("frame store opened", "dir", dir, "codec", codec.Name(), "frames", len(s.manifest.Frames))
	return s, nil
}

// Dir returns the directory backing the store
func (s *Store) Dir() string {
	return s.dir
}

// Put compresses img and records it under key, replacing any earlier frame.
// The manifest in memory only changes once it has been written to disk.
func (s *Store) Put(key string, img image.Image) (Entry, error) {
	if key == "" {
		return Entry{}, fmt.Errorf("invalid frame key %q", key)
	}

	rgba := toRGBA(img)
	raw := rgba.Pix[:4*rgba.Rect.Dx()*rgba.Rect.Dy()]
	payload, err := s.codec.Compress(raw)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to compress frame %s: %w", key, err)
	}

	entry := Entry{
		File:      fmt.Sprintf("%s.rgba.%s", fileStem(key), s.codec.Extension()),
		Codec:     s.codec.Name(),
		Width:     rgba.Rect.Dx(),
		Height:    rgba.Rect.Dy(),
		RawBytes:  len(raw),
		Stored:    len(payload),
		CreatedAt: s.now().UTC().Format(time.RFC3339Nano),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, entry.File)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return Entry{}, fmt.Errorf("failed to write frame %s: %w", key, err)
	}

	next := Manifest{Version: s.manifest.Version, Frames: maps.Clone(s.manifest.Frames)}
	next.Frames[key] = entry
	if err := writeManifest(s.dir, next); err != nil {
		os.Remove(tmp)
		return Entry{}, err
	}
	old, replaced := s.manifest.Frames[key]
	s.manifest = next

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return Entry{}, fmt.Errorf("failed to store frame %s: %w", key, err)
	}
	if replaced && old.File != entry.File {
		os.Remove(filepath.Join(s.dir, old.File))
	}

	core.Logger().Debug("frame stored", "key", key, "file", entry.File,
		"raw_bytes", entry.RawBytes, "stored_bytes", entry.Stored)
	return entry, nil
}

// fileStem derives a readable file name from key. The hash suffix keeps keys
// that clean to the same characters apart.
func fileStem(key string) string {
	sum := sha256.Sum256([]byte(key))
	return keyCleaner.ReplaceAllString(key, "_") + "-" + hex.EncodeToString(sum[:4])
}

// Get decompresses the frame stored under key
func (s *Store) Get(key string) (*image.RGBA, error) {
	s.mu.Lock()
	entry, ok := s.manifest.Frames[key]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	codec, err := CodecByName(entry.Codec)
	if err != nil {
		return nil, fmt.Errorf("frame %s: %w", key, err)
	}
	payload, err := os.ReadFile(filepath.Join(s.dir, entry.File))
	if err != nil {
		return nil, fmt.Errorf("failed to read frame %s: %w", key, err)
	}
	raw, err := codec.Decompress(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress frame %s: %w", key, err)
	}
	if len(raw) != entry.Width*entry.Height*4 {
		return nil, fmt.Errorf("frame %s: payload is %d bytes, want %d", key, len(raw), entry.Width*entry.Height*4)
	}

	return &image.RGBA{
		Pix:    raw,
		Stride: entry.Width * 4,
		Rect:   image.Rect(0, 0, entry.Width, entry.Height),
	}, nil
}

// Has reports whether key is stored
func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.manifest.Frames[key]
	return ok
}

// Keys lists stored keys in sorted order
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.manifest.Frames))
	for k := range s.manifest.Frames {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeManifest(dir string, manifest Manifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	tmp := filepath.Join(dir, manifestName+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, manifestName)); err != nil {
		return fmt.Errorf("failed to replace manifest: %w", err)
	}
	return nil
}

// toRGBA returns a tightly packed RGBA copy anchored at the origin
func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) && rgba.Stride == 4*b.Dx() {
		return rgba
	}
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
