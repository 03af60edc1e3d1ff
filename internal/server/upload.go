package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"filegate/internal/queue"
	"filegate/internal/validate"
)

// maxMultipartOverhead covers boundaries and non-file form fields on top of
// the configured file size limit.
const maxMultipartOverhead = 1 << 20

// acceptedResponse is returned when an upload enters the pipeline.
type acceptedResponse struct {
	ProcessingID string `json:"processingId"`
}

// handleUpload is the submission path: validate, persist to temp, create the
// status record, enqueue, and hand the caller an id to poll. It returns
// before any processing happens.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxFileSize+maxMultipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			// The body blew past the cap before the part was fully read, so
			// only the declared request length is available as the size.
			s.log.Warn("upload body exceeds limit", "content_length", r.ContentLength)
			respondRejection(w, validate.TooLarge(r.ContentLength, s.cfg.MaxFileSize))
			return
		}
		s.log.Warn("upload missing file part", "error", err)
		respondError(w, http.StatusBadRequest, "No file provided.")
		return
	}
	defer file.Close()

	meta := validate.Metadata{Filename: header.Filename, Size: header.Size}
	if rej := validate.CheckMetadata(meta, s.cfg.MaxFileSize); rej != nil {
		s.log.Warn("upload rejected", "filename", header.Filename, "reason", rej.Reason)
		respondRejection(w, rej)
		return
	}

	// Header bytes are read only after the extension cleared the allow-list.
	head := make([]byte, validate.HeaderLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		s.log.Error("read upload header", "filename", header.Filename, "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error during upload processing.")
		return
	}
	if rej := validate.CheckSignature(header.Filename, head[:n]); rej != nil {
		s.log.Warn("upload rejected", "filename", header.Filename, "reason", rej.Reason)
		respondRejection(w, rej)
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		s.log.Error("rewind upload", "filename", header.Filename, "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error during upload processing.")
		return
	}

	finalName := safeFilename(header.Filename)
	tempPath, err := s.saveTemp(file, finalName)
	if err != nil {
		s.log.Error("persist upload to temp", "filename", header.Filename, "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error during upload processing.")
		return
	}

	// Record creation precedes the enqueue so a polling client can never see
	// an unknown id for an id it was handed.
	id := uuid.NewString()
	s.store.Create(id)
	s.queue.Enqueue(queue.Item{ID: id, TempPath: tempPath, FinalName: finalName})

	s.log.Info("upload accepted",
		"id", id,
		"filename", header.Filename,
		"size", humanize.IBytes(uint64(header.Size)),
	)
	respondJSON(w, http.StatusAccepted, acceptedResponse{ProcessingID: id})
}

// saveTemp streams the upload into the temp directory and returns the path.
// The partial file is removed on any write failure.
func (s *Server) saveTemp(file multipart.File, name string) (string, error) {
	path := filepath.Join(s.cfg.TempDir, name)
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o640)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return path, nil
}

// safeFilename derives a name that cannot collide across concurrent uploads
// or escape the storage directory: original stem, random suffix, original
// extension.
func safeFilename(original string) string {
	base := filepath.Base(original)
	ext := validate.Ext(base)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." {
		stem = "upload"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s_%s%s", stem, suffix, ext)
}
