// Package media stages uploaded files, probes them and moves them to and from the media host.
package media

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// maxValueBytes caps a single non-file form value.
const maxValueBytes = 64 << 10

// StagedFile is an uploaded file written to local disk.
type StagedFile struct {
	Field       string
	Filename    string
	ContentType string
	Path        string
	Size        int64
}

// Ext returns the lower-cased extension of the original filename.
func (f StagedFile) Ext() string {
	return strings.ToLower(filepath.Ext(f.Filename))
}

// Staged holds the outcome of one multipart request. Cleanup must be deferred by the caller as
// soon as Stage returns.
type Staged struct {
	Values url.Values
	files  map[string]StagedFile

	once sync.Once
}

// File returns the staged file for field.
func (s *Staged) File(field string) (StagedFile, bool) {
	if s == nil {
		return StagedFile{}, false
	}
	f, ok := s.files[field]
	return f, ok
}

// Cleanup removes every staged file. It is safe to call more than once and on a nil Staged.
func (s *Staged) Cleanup() error {
	if s == nil {
		return nil
	}
	var errs []error
	s.once.Do(func() {
		for _, f := range s.files {
			if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

// Stager streams multipart file parts into temporary files.
type Stager struct {
	Dir      string
	MaxBytes int64
	// OnStaged, when set, is called for every file written to disk.
	OnStaged func(StagedFile)
}

// NewStager constructs a Stager writing below dir and rejecting bodies larger than maxBytes.
func NewStager(dir string, maxBytes int64) *Stager {
	if strings.TrimSpace(dir) == "" {
		dir = os.TempDir()
	}
	return &Stager{Dir: dir, MaxBytes: maxBytes}
}

// Stage reads the multipart body of r. Only the listed fields may carry a file and each of them at
// most one. On error nothing is left on disk.
func (st *Stager) Stage(w http.ResponseWriter, r *http.Request, fields ...string) (*Staged, error) {
	if st.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, st.MaxBytes)
	}

	reader, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotMultipart, err)
	}

	allowed := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		allowed[f] = struct{}{}
	}

	staged := &Staged{Values: url.Values{}, files: make(map[string]StagedFile)}
	if err := st.read(reader, allowed, staged); err != nil {
		_ = staged.Cleanup()
		return nil, err
	}
	return staged, nil
}

func (st *Stager) read(reader *multipart.Reader, allowed map[string]struct{}, staged *Staged) error {
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return classify(err)
		}

		field := part.FormName()
		if part.FileName() == "" {
			value, err := io.ReadAll(io.LimitReader(part, maxValueBytes+1))
			part.Close()
			if err != nil {
				return classify(err)
			}
			if len(value) > maxValueBytes {
				return fmt.Errorf("%w: field %s", ErrUploadTooLarge, field)
			}
			staged.Values.Add(field, string(value))
			continue
		}

		if _, ok := allowed[field]; !ok {
			part.Close()
			return fmt.Errorf("%w: %s", ErrUnexpectedField, field)
		}
		if _, dup := staged.files[field]; dup {
			part.Close()
			return fmt.Errorf("%w: %s", ErrTooManyFiles, field)
		}

		file, err := st.write(part)
		part.Close()
		if file.Path != "" {
			staged.files[field] = file
		}
		if err != nil {
			return err
		}
		if st.OnStaged != nil {
			st.OnStaged(file)
		}
	}
}

func (st *Stager) write(part *multipart.Part) (StagedFile, error) {
	file := StagedFile{
		Field:       part.FormName(),
		Filename:    filepath.Base(part.FileName()),
		ContentType: part.Header.Get("Content-Type"),
	}

	out, err := os.CreateTemp(st.Dir, "upload-*"+file.Ext())
	if err != nil {
		return file, fmt.Errorf("create staging file: %w", err)
	}
	file.Path = out.Name()

	n, err := io.Copy(out, part)
	file.Size = n
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return file, classify(err)
	}
	return file, nil
}

func classify(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: limit %d bytes", ErrUploadTooLarge, tooLarge.Limit)
	}
	return fmt.Errorf("read multipart body: %w", err)
}
