// Package validate implements the synchronous ingress checks every upload
// passes before it is accepted: non-empty, within the size limit, extension on
// the allow-list, and leading bytes matching the signature registered for that
// extension. All functions are pure and safe for concurrent use.
package validate

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
)

// HeaderLen is how many leading bytes the signature check needs at most.
const HeaderLen = 8

// Reason identifies why an upload was rejected.
type Reason string

const (
	ReasonEmptyFile           Reason = "EmptyFile"
	ReasonTooLarge            Reason = "TooLarge"
	ReasonDisallowedExtension Reason = "DisallowedExtension"
	ReasonSignatureMismatch   Reason = "SignatureMismatch"
)

// allowedExtensions is ordered for stable presentation in responses.
var allowedExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".pdf"}

// fileSignatures maps an allowed extension to the byte prefix a genuine file
// of that type starts with.
var fileSignatures = map[string][]byte{
	".jpg":  {0xFF, 0xD8, 0xFF},
	".jpeg": {0xFF, 0xD8, 0xFF},
	".png":  {0x89, 0x50, 0x4E, 0x47},
	".gif":  {0x47, 0x49, 0x46, 0x38},
	".pdf":  {0x25, 0x50, 0x44, 0x46},
}

// Metadata is what the submitter declares about a file before any content is
// read.
type Metadata struct {
	Filename string
	Size     int64
}

// Rejection explains a failed check. It carries the context fields the API
// reports alongside the error message; zero-valued fields are not relevant to
// the reason.
type Rejection struct {
	Reason            Reason
	Message           string
	FileSize          int64
	SizeLimit         int64
	AllowedExtensions []string
}

func (r *Rejection) Error() string { return r.Message }

// AllowedExtensions returns the extension allow-list.
func AllowedExtensions() []string {
	out := make([]string, len(allowedExtensions))
	copy(out, allowedExtensions)
	return out
}

// Ext returns the lower-cased extension of the submitted filename.
func Ext(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// CheckMetadata runs the declaration-only checks in order, short-circuiting on
// the first failure: non-empty, within limit, extension allowed. It never
// touches file content, so callers can reject disallowed extensions before
// reading a single byte.
func CheckMetadata(meta Metadata, sizeLimit int64) *Rejection {
	if meta.Size == 0 {
		return &Rejection{
			Reason:  ReasonEmptyFile,
			Message: "File is empty.",
		}
	}
	if meta.Size > sizeLimit {
		return TooLarge(meta.Size, sizeLimit)
	}
	if _, ok := fileSignatures[Ext(meta.Filename)]; !ok {
		return &Rejection{
			Reason:            ReasonDisallowedExtension,
			Message:           "File extension not allowed.",
			AllowedExtensions: AllowedExtensions(),
		}
	}
	return nil
}

// TooLarge builds the rejection for a file of size bytes against limit. It is
// exported for callers that detect the overflow themselves, e.g. when a
// request body outgrows its reader cap before the declared size is known.
func TooLarge(size, limit int64) *Rejection {
	return &Rejection{
		Reason:    ReasonTooLarge,
		Message:   "File size exceeds the limit of " + humanize.IBytes(uint64(limit)) + ".",
		FileSize:  size,
		SizeLimit: limit,
	}
}

// CheckSignature verifies the leading bytes match the signature registered for
// the filename's extension. The extension must already have passed
// CheckMetadata; an unknown extension is rejected outright.
func CheckSignature(filename string, header []byte) *Rejection {
	sig, ok := fileSignatures[Ext(filename)]
	if !ok || len(header) < len(sig) || !bytes.Equal(header[:len(sig)], sig) {
		return &Rejection{
			Reason:  ReasonSignatureMismatch,
			Message: "File signature does not match its extension.",
		}
	}
	return nil
}

// Check runs the full validation sequence. Handlers that stream uploads use
// CheckMetadata and CheckSignature separately so the extension is vetted
// before any header bytes are read; Check exists for callers that already
// hold both.
func Check(meta Metadata, header []byte, sizeLimit int64) *Rejection {
	if rej := CheckMetadata(meta, sizeLimit); rej != nil {
		return rej
	}
	return CheckSignature(meta.Filename, header)
}
