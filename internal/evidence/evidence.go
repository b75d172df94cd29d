package evidence

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"

	"github.com/sandeepkv93/attendance-session-service/internal/config"
)

var (
	ErrTooLarge        = errors.New("evidence file exceeds size limit")
	ErrUnsupportedType = errors.New("evidence file type not supported")
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// New returns the store selected by EVIDENCE_BACKEND.
func New(cfg *config.Config) (Store, error) {
	switch cfg.EvidenceBackend {
	case "cloudinary":
		cld, err := cloudinary.NewFromURL(cfg.CloudinaryURL)
		if err != nil {
			return nil, fmt.Errorf("init cloudinary: %w", err)
		}
		return NewCloudinaryStore(cld.Upload.Upload, cld.Upload.Destroy, cfg.CloudinaryFolder, cfg.EvidenceMaxBytes), nil
	default:
		return NewLocalStore(cfg.EvidenceDir, cfg.EvidenceMaxBytes)
	}
}

type Store interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
	// Delete removes a previously saved photo. Unknown references are not an
	// error.
	Delete(ctx context.Context, ref string) error
}

func extensionOf(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
	return ext, nil
}

// LocalStore writes photos under dir with random names and returns the
// file name as the reference.
type LocalStore struct {
	dir      string
	maxBytes int64
}

func NewLocalStore(dir string, maxBytes int64) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create evidence dir: %w", err)
	}
	return &LocalStore{dir: dir, maxBytes: maxBytes}, nil
}

func (s *LocalStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	ext, err := extensionOf(filename)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := uuid.NewString() + ext
	path := filepath.Join(s.dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", fmt.Errorf("create evidence file: %w", err)
	}
	n, copyErr := io.Copy(f, io.LimitReader(r, s.maxBytes+1))
	closeErr := f.Close()
	if copyErr == nil && n > s.maxBytes {
		copyErr = ErrTooLarge
	}
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return name, nil
}

// Delete removes the file named by ref. Only the base name is used, so a
// reference cannot escape dir.
func (s *LocalStore) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := filepath.Base(ref)
	if name == "." || name == string(filepath.Separator) {
		return nil
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove evidence file: %w", err)
	}
	return nil
}

type (
	uploadFunc  func(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	destroyFunc func(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
)

// CloudinaryStore uploads photos and returns the secure delivery URL.
type CloudinaryStore struct {
	upload   uploadFunc
	destroy  destroyFunc
	folder   string
	maxBytes int64
}

func NewCloudinaryStore(upload uploadFunc, destroy destroyFunc, folder string, maxBytes int64) *CloudinaryStore {
	return &CloudinaryStore{upload: upload, destroy: destroy, folder: folder, maxBytes: maxBytes}
}

func (s *CloudinaryStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	if _, err := extensionOf(filename); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read evidence: %w", err)
	}
	if n > s.maxBytes {
		return "", ErrTooLarge
	}
	res, err := s.upload(ctx, &buf, uploader.UploadParams{
		PublicID: uuid.NewString(),
		Folder:   s.folder,
	})
	if err != nil {
		return "", fmt.Errorf("upload evidence: %w", err)
	}
	if res == nil {
		return "", errors.New("upload evidence: empty response")
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("upload evidence: %s", res.Error.Message)
	}
	return res.SecureURL, nil
}

// Delete destroys the asset behind a delivery URL returned by Save.
func (s *CloudinaryStore) Delete(ctx context.Context, ref string) error {
	publicID, ok := publicIDFromURL(ref)
	if !ok {
		return fmt.Errorf("delete evidence: unrecognised reference %q", ref)
	}
	res, err := s.destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("delete evidence: %w", err)
	}
	if res != nil && res.Error.Message != "" {
		return fmt.Errorf("delete evidence: %s", res.Error.Message)
	}
	return nil
}

// publicIDFromURL extracts "<folder>/<id>" from
// https://res.cloudinary.com/<cloud>/image/upload/v<version>/<folder>/<id>.<ext>.
func publicIDFromURL(ref string) (string, bool) {
	_, rest, found := strings.Cut(ref, "/upload/")
	if !found || rest == "" {
		return "", false
	}
	if first, tail, ok := strings.Cut(rest, "/"); ok && len(first) > 1 && first[0] == 'v' && isDigits(first[1:]) {
		rest = tail
	}
	rest = strings.TrimSuffix(rest, filepath.Ext(rest))
	if rest == "" {
		return "", false
	}
	return rest, true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
