// Package blob stores task attachments as objects in named buckets and hands
// out public URLs for them.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/colonyops/casetrack/pkg/randid"
	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
)

// sniffLen is how many leading bytes are inspected to detect a MIME type.
const sniffLen = 3072

// ErrTooLarge is returned when an upload exceeds the configured size limit.
var ErrTooLarge = errors.New("file exceeds size limit")

// ErrInvalidName is returned for bucket or object names that would escape
// the storage root.
var ErrInvalidName = errors.New("invalid object name")

// Object describes a stored file.
type Object struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Store is an object store on top of an afero filesystem. Buckets are top
// level directories.
type Store struct {
	fs      afero.Fs
	src     afero.Fs
	baseURL string
	maxSize int64
	now     func() time.Time
	random  func() string
}

// New creates a store over fs. Objects are served under baseURL and uploads
// larger than maxSize bytes are rejected; maxSize <= 0 disables the limit.
func New(fs afero.Fs, baseURL string, maxSize int64) *Store {
	return &Store{
		fs:      fs,
		src:     afero.NewOsFs(),
		baseURL: strings.TrimRight(baseURL, "/"),
		maxSize: maxSize,
		now:     time.Now,
		random:  func() string { return randid.Generate(11) },
	}
}

// NewOS creates a store rooted at dir on the local filesystem.
func NewOS(dir, baseURL string, maxSize int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return New(afero.NewBasePathFs(afero.NewOsFs(), dir), baseURL, maxSize), nil
}

// MaxSize returns the upload limit in bytes.
func (s *Store) MaxSize() int64 { return s.maxSize }

// FS exposes the underlying filesystem, e.g. for serving files over HTTP.
func (s *Store) FS() afero.Fs { return s.fs }

// ObjectName builds the stored name for an upload: a random token, the upload
// time in unix milliseconds and the original extension.
func ObjectName(random string, at time.Time, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return fmt.Sprintf("%s_%d", random, at.UnixMilli())
	}
	return fmt.Sprintf("%s_%d.%s", random, at.UnixMilli(), ext)
}

// PublicURL returns the URL an object is served at.
func (s *Store) PublicURL(bucket, name string) string {
	return s.baseURL + "/" + url.PathEscape(bucket) + "/" + url.PathEscape(name)
}

// Upload stores r under a generated name in bucket. When contentType is
// empty it is sniffed from the content. ext is the extension to keep, with
// or without the leading dot; when empty the sniffed type's extension is
// used.
func (s *Store) Upload(ctx context.Context, bucket string, r io.Reader, ext, contentType string) (Object, error) {
	if err := checkName(bucket); err != nil {
		return Object{}, err
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Object{}, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	detected := mimetype.Detect(head)
	if contentType == "" {
		contentType = detected.String()
	}
	if ext == "" {
		ext = detected.Extension()
	}

	name := ObjectName(s.random(), s.now(), ext)
	obj := Object{
		Bucket:      bucket,
		Name:        name,
		URL:         s.PublicURL(bucket, name),
		ContentType: contentType,
	}

	if err := s.fs.MkdirAll(bucket, 0o755); err != nil {
		return Object{}, fmt.Errorf("create bucket %s: %w", bucket, err)
	}

	objPath := path.Join(bucket, name)
	f, err := s.fs.Create(objPath)
	if err != nil {
		return Object{}, fmt.Errorf("create object: %w", err)
	}

	body := io.MultiReader(bytes.NewReader(head), &ctxReader{ctx: ctx, r: r})
	if s.maxSize > 0 {
		body = io.LimitReader(body, s.maxSize+1)
	}

	written, copyErr := io.Copy(f, body)
	closeErr := f.Close()
	switch {
	case copyErr != nil:
		_ = s.fs.Remove(objPath)
		return Object{}, fmt.Errorf("write object: %w", copyErr)
	case closeErr != nil:
		_ = s.fs.Remove(objPath)
		return Object{}, fmt.Errorf("close object: %w", closeErr)
	case s.maxSize > 0 && written > s.maxSize:
		_ = s.fs.Remove(objPath)
		return Object{}, ErrTooLarge
	}

	obj.Size = written
	return obj, nil
}

// UploadFile stores the local file at filePath in bucket.
func (s *Store) UploadFile(ctx context.Context, bucket, filePath string) (Object, error) {
	info, err := s.src.Stat(filePath)
	if err != nil {
		return Object{}, fmt.Errorf("stat %s: %w", filePath, err)
	}
	if info.IsDir() {
		return Object{}, fmt.Errorf("%s is a directory", filePath)
	}
	if s.maxSize > 0 && info.Size() > s.maxSize {
		return Object{}, ErrTooLarge
	}

	f, err := s.src.Open(filePath)
	if err != nil {
		return Object{}, fmt.Errorf("open %s: %w", filePath, err)
	}
	defer func() { _ = f.Close() }()

	return s.Upload(ctx, bucket, f, filepath.Ext(filePath), "")
}

// Open returns a reader for a stored object.
func (s *Store) Open(bucket, name string) (afero.File, error) {
	if err := checkName(bucket); err != nil {
		return nil, err
	}
	if err := checkName(name); err != nil {
		return nil, err
	}
	return s.fs.Open(path.Join(bucket, name))
}

// Remove deletes a stored object. Removing a missing object is not an error.
func (s *Store) Remove(_ context.Context, bucket, name string) error {
	if err := checkName(bucket); err != nil {
		return err
	}
	if err := checkName(name); err != nil {
		return err
	}
	if err := s.fs.Remove(path.Join(bucket, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

// ParseURL extracts bucket and object name from a URL produced by PublicURL.
// ok is false for URLs served from elsewhere.
func (s *Store) ParseURL(raw string) (bucket, name string, ok bool) {
	rest, found := strings.CutPrefix(raw, s.baseURL+"/")
	if !found {
		return "", "", false
	}
	b, n, found := strings.Cut(rest, "/")
	if !found {
		return "", "", false
	}
	bucket, err := url.PathUnescape(b)
	if err != nil {
		return "", "", false
	}
	name, err = url.PathUnescape(n)
	if err != nil {
		return "", "", false
	}
	if checkName(bucket) != nil || checkName(name) != nil {
		return "", "", false
	}
	return bucket, name, true
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// ctxReader stops a copy once ctx is cancelled.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
