package filestorage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/yigit/campuswell/internal/pkg/logger"
)

// Upload errors
var (
	ErrFileTooLarge       = errors.New("file too large")
	ErrUnsupportedType    = errors.New("unsupported file type")
	ErrInvalidStoragePath = errors.New("invalid storage path")
)

// ImageTypes maps accepted image MIME types to their extension.
var ImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// FileStorage stores uploaded files and returns the URL they are served from.
type FileStorage interface {
	SaveImage(fileHeader *multipart.FileHeader, subPath string, maxSize int64) (string, error)
	DeleteFile(fileURL string) error
}

// LocalStorage handles saving files to the local filesystem.
type LocalStorage struct {
	basePath string // The root directory where files will be stored
	baseURL  string // URL prefix the directory is served under
}

// NewLocalStorage creates a new LocalStorage instance and ensures basePath exists.
func NewLocalStorage(basePath, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		logger.Error().Err(err).Str("path", basePath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}

	return &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}, nil
}

// BasePath is the directory files are written to.
func (ls *LocalStorage) BasePath() string {
	return ls.basePath
}

// SaveImage checks size and sniffed content type, then stores the file under subPath
// with a random name.
func (ls *LocalStorage) SaveImage(fileHeader *multipart.FileHeader, subPath string, maxSize int64) (string, error) {
	if fileHeader == nil {
		return "", fmt.Errorf("%w: no file", ErrUnsupportedType)
	}
	if maxSize > 0 && fileHeader.Size > maxSize {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, fileHeader.Size, maxSize)
	}
	if strings.Contains(subPath, "..") {
		return "", ErrInvalidStoragePath
	}

	file, err := fileHeader.Open()
	if err != nil {
		logger.Error().Err(err).Str("filename", fileHeader.Filename).Msg("Failed to open uploaded file")
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read uploaded file: %w", err)
	}
	mimeType := http.DetectContentType(head[:n])
	ext, ok := ImageTypes[mimeType]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}

	dir := filepath.Join(ls.basePath, subPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Error().Err(err).Str("path", dir).Msg("Failed to create subdirectory")
		return "", fmt.Errorf("failed to create subdirectory: %w", err)
	}

	name := uuid.NewString() + ext
	dstPath := filepath.Join(dir, name)
	dst, err := os.Create(dstPath)
	if err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to create destination file")
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, io.MultiReader(bytes.NewReader(head[:n]), file)); err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to copy uploaded file content")
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("failed to save file content: %w", err)
	}

	url := ls.baseURL + "/" + name
	if subPath != "" {
		url = ls.baseURL + "/" + strings.Trim(subPath, "/") + "/" + name
	}
	logger.Info().Str("filename", fileHeader.Filename).Str("url", url).Msg("File saved successfully")
	return url, nil
}

// DeleteFile removes a file previously returned by SaveImage. Missing files and URLs
// outside the storage are ignored.
func (ls *LocalStorage) DeleteFile(fileURL string) error {
	if fileURL == "" || !strings.HasPrefix(fileURL, ls.baseURL+"/") {
		return nil
	}
	rel := strings.TrimPrefix(fileURL, ls.baseURL+"/")
	if strings.Contains(rel, "..") {
		return ErrInvalidStoragePath
	}

	physicalPath := filepath.Join(ls.basePath, filepath.FromSlash(rel))
	if err := os.Remove(physicalPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		logger.Error().Err(err).Str("path", physicalPath).Msg("Failed to delete file")
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
