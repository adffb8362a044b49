package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alphaexam/alphaexam-backend/internal/config"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Sentinel errors for media uploads.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
)

// sniffLen is how many leading bytes are read to detect the content type.
const sniffLen = 3072

// Allowed figure MIME types.
var allowedMIMETypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Storage persists an uploaded figure and returns its public URL.
type Storage interface {
	Put(ctx context.Context, name string, r io.Reader) (string, error)
}

// LocalStorage writes figures under a directory served at /uploads.
type LocalStorage struct {
	dir string
}

// NewLocalStorage creates a LocalStorage rooted at dir.
func NewLocalStorage(dir string) *LocalStorage {
	return &LocalStorage{dir: dir}
}

func (l *LocalStorage) Put(_ context.Context, name string, r io.Reader) (string, error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	dst, err := os.Create(filepath.Join(l.dir, name))
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return "/uploads/" + name, nil
}

// CloudinaryStorage uploads figures to a Cloudinary folder.
type CloudinaryStorage struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryStorage creates a CloudinaryStorage from a CLOUDINARY_URL.
func NewCloudinaryStorage(url, folder string) (*CloudinaryStorage, error) {
	cld, err := cloudinary.NewFromURL(url)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	return &CloudinaryStorage{cld: cld, folder: folder}, nil
}

func (c *CloudinaryStorage) Put(ctx context.Context, name string, r io.Reader) (string, error) {
	res, err := c.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		PublicID: strings.TrimSuffix(name, filepath.Ext(name)),
		Folder:   c.folder,
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	return res.SecureURL, nil
}

// MediaService validates figure uploads and hands them to a Storage.
type MediaService struct {
	storage  Storage
	maxBytes int64
	log      zerolog.Logger
}

// NewMediaService picks Cloudinary when CLOUDINARY_URL is set and local disk
// otherwise.
func NewMediaService(cfg *config.Config, log zerolog.Logger) (*MediaService, error) {
	log = log.With().Str("component", "media_service").Logger()

	var storage Storage = NewLocalStorage(cfg.UploadDir)
	if cfg.CloudinaryURL != "" {
		cld, err := NewCloudinaryStorage(cfg.CloudinaryURL, cfg.CloudinaryFolder)
		if err != nil {
			return nil, err
		}
		storage = cld
		log.Info().Str("folder", cfg.CloudinaryFolder).Msg("Figures stored on Cloudinary")
	}
	return newMediaService(storage, cfg.MaxUploadBytes, log), nil
}

func newMediaService(storage Storage, maxBytes int64, log zerolog.Logger) *MediaService {
	return &MediaService{storage: storage, maxBytes: maxBytes, log: log}
}

// SaveUpload checks size and sniffed content type, then stores the file
// under a random name. The declared Content-Type header is not trusted.
func (s *MediaService) SaveUpload(ctx context.Context, file io.Reader, size int64) (string, error) {
	if size > s.maxBytes {
		return "", fmt.Errorf("%w: %d bytes (max: %d)", ErrFileTooLarge, size, s.maxBytes)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	mime := mimetype.Detect(head)
	ext, ok := allowedMIMETypes[mime.String()]
	if !ok {
		return "", fmt.Errorf("%w: %s (allowed: %s)",
			ErrUnsupportedFileType, mime.String(), strings.Join(allowedTypes(), ", "))
	}

	body := io.LimitReader(io.MultiReader(bytes.NewReader(head), file), s.maxBytes+1)
	url, err := s.storage.Put(ctx, uuid.New().String()+ext, body)
	if err != nil {
		return "", err
	}
	s.log.Debug().Str("url", url).Str("mime", mime.String()).Msg("Figure uploaded")
	return url, nil
}

// MaxBytes is the largest accepted figure.
func (s *MediaService) MaxBytes() int64 {
	return s.maxBytes
}

func allowedTypes() []string {
	types := make([]string, 0, len(allowedMIMETypes))
	for t := range allowedMIMETypes {
		types = append(types, t)
	}
	return types
}
