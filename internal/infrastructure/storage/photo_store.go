package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultURLPrefix      = "uploads"
	defaultThumbnailWidth = 320
	thumbDir              = "thumbs"
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// ThumbnailQueue hands thumbnail generation to background workers.
// Enqueue reports false when the job was not accepted.
type ThumbnailQueue interface {
	Enqueue(photo string) bool
}

type Config struct {
	Dir            string
	URLPrefix      string // path under which Dir is served statically
	ThumbnailWidth int
}

// FileStore keeps selfies on the local filesystem as <uuid>.<ext> with a
// JPEG thumbnail under thumbs/. References look like "uploads/<file>".
type FileStore struct {
	dir    string
	prefix string
	width  int
	queue  ThumbnailQueue
	log    zerolog.Logger
}

func NewFileStore(cfg Config, log zerolog.Logger) (*FileStore, error) {
	if cfg.URLPrefix == "" {
		cfg.URLPrefix = defaultURLPrefix
	}
	if cfg.ThumbnailWidth <= 0 {
		cfg.ThumbnailWidth = defaultThumbnailWidth
	}
	if err := os.MkdirAll(filepath.Join(cfg.Dir, thumbDir), 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &FileStore{
		dir:    cfg.Dir,
		prefix: strings.Trim(cfg.URLPrefix, "/"),
		width:  cfg.ThumbnailWidth,
		log:    log.With().Str("component", "photo_store").Logger(),
	}, nil
}

// UseQueue makes Save generate thumbnails asynchronously. Without a queue
// they are generated inline.
func (s *FileStore) UseQueue(q ThumbnailQueue) {
	s.queue = q
}

func (s *FileStore) Save(ctx context.Context, userID string, content []byte, mimeType string) (string, error) {
	ext, ok := extensions[mimeType]
	if !ok {
		return "", fmt.Errorf("unsupported photo type %q", mimeType)
	}

	name := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(s.dir, name), content, 0o644); err != nil {
		return "", fmt.Errorf("write photo: %w", err)
	}

	s.log.Debug().Str("user_id", userID).Str("photo", name).Int("bytes", len(content)).Msg("photo stored")

	if s.queue == nil || !s.queue.Enqueue(name) {
		if err := s.GenerateThumbnail(ctx, name); err != nil {
			s.log.Warn().Err(err).Str("photo", name).Msg("thumbnail generation failed")
		}
	}
	return path.Join(s.prefix, name), nil
}

// GenerateThumbnail writes a resized JPEG copy of a stored photo.
func (s *FileStore) GenerateThumbnail(_ context.Context, name string) error {
	raw, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return fmt.Errorf("read photo: %w", err)
	}

	img, err := decodeImage(raw, name)
	if err != nil {
		return fmt.Errorf("decode photo: %w", err)
	}

	thumb := img
	if img.Bounds().Dx() > s.width {
		thumb = imaging.Resize(img, s.width, 0, imaging.Lanczos)
	}
	if err := imaging.Save(thumb, filepath.Join(s.dir, thumbDir, thumbName(name)), imaging.JPEGQuality(80)); err != nil {
		return fmt.Errorf("save thumbnail: %w", err)
	}
	return nil
}

// Delete removes the photo and its thumbnail. Missing files are ignored.
func (s *FileStore) Delete(_ context.Context, ref string) error {
	name, err := s.nameFromRef(ref)
	if err != nil {
		return err
	}
	for _, p := range []string{
		filepath.Join(s.dir, name),
		filepath.Join(s.dir, thumbDir, thumbName(name)),
	} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", filepath.Base(p), err)
		}
	}
	return nil
}

// ThumbnailRef derives the thumbnail reference of a photo reference.
func (s *FileStore) ThumbnailRef(ref string) string {
	name, err := s.nameFromRef(ref)
	if err != nil {
		return ""
	}
	return path.Join(s.prefix, thumbDir, thumbName(name))
}

func (s *FileStore) nameFromRef(ref string) (string, error) {
	name := strings.TrimPrefix(strings.TrimPrefix(ref, "/"), s.prefix+"/")
	if name == "" || name == ref || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid photo reference %q", ref)
	}
	return name, nil
}

func thumbName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".jpg"
}

// decodeImage handles WebP itself; imaging covers JPEG and PNG and applies
// EXIF orientation so phone selfies are not rotated.
func decodeImage(raw []byte, name string) (image.Image, error) {
	if strings.EqualFold(filepath.Ext(name), ".webp") {
		return webp.Decode(bytes.NewReader(raw))
	}
	return imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
}
