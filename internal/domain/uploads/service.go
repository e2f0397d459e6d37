package uploads

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/yanqian/dermaai/pkg/errors"
)

// DefaultMaxBytes is the upload ceiling when none is configured.
const DefaultMaxBytes = 16 << 20

// Service persists uploaded images.
type Service interface {
	Save(ctx context.Context, kind, filename string, data []byte, mimeType string) (StoredImage, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Discard(ctx context.Context, key string) error
}

type service struct {
	cfg     Config
	storage ObjectStorage
	newID   func() string
	logger  *slog.Logger
}

// NewService wires the upload store.
func NewService(cfg Config, storage ObjectStorage, logger *slog.Logger) Service {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	return &service{
		cfg:     cfg,
		storage: storage,
		newID:   uuid.NewString,
		logger:  logger.With("component", "uploads.service"),
	}
}

// Save stores data under kind/<uuid>_<sanitized name>, so concurrent uploads
// with the same client filename never overwrite each other.
func (s *service) Save(ctx context.Context, kind, filename string, data []byte, mimeType string) (StoredImage, error) {
	name := SecureFilename(filename)
	if name == "" {
		return StoredImage{}, apperrors.Wrap(apperrors.CodeInvalidInput, "Invalid filename", nil)
	}
	if len(data) == 0 {
		return StoredImage{}, apperrors.Wrap(apperrors.CodeInvalidInput, "Please upload an image", nil)
	}
	if int64(len(data)) > s.cfg.MaxBytes {
		return StoredImage{}, apperrors.Wrap(apperrors.CodeInvalidInput, fmt.Sprintf("image exceeds %d bytes", s.cfg.MaxBytes), nil)
	}
	stored := s.newID() + "_" + name
	key := path.Join(SecureFilename(kind), stored)
	obj, err := s.storage.Put(ctx, key, data, mimeType)
	if err != nil {
		return StoredImage{}, apperrors.Wrap(apperrors.CodeStorageError, "failed to store upload", err)
	}
	s.logger.Debug("upload stored", "key", obj.Key, "size", obj.Size)
	return StoredImage{
		Key:      obj.Key,
		Filename: stored,
		Size:     obj.Size,
		MimeType: mimeType,
	}, nil
}

// Open streams a stored upload. Keys must have the kind/name shape Save returns.
func (s *service) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if !validKey(key) {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "invalid upload key", nil)
	}
	rc, err := s.storage.Get(ctx, key)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUploadNotFound, "upload not found", err)
	}
	return rc, nil
}

// Discard removes an upload that turned out to be unusable.
func (s *service) Discard(ctx context.Context, key string) error {
	if !validKey(key) {
		return apperrors.Wrap(apperrors.CodeInvalidInput, "invalid upload key", nil)
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError, "failed to delete upload", err)
	}
	s.logger.Debug("upload discarded", "key", key)
	return nil
}

func validKey(key string) bool {
	kind, name, ok := strings.Cut(key, "/")
	return ok && kind != "" && name != "" && SecureFilename(kind) == kind && SecureFilename(name) == name
}
