package inspection

import (
	"mime"
	"path/filepath"
	"slices"
	"strings"

	"github.com/safetrack/safetrack/internal/errors"
)

// Default attachment limits.
const DefaultMaxAttachmentBytes int64 = 8 * 1024 * 1024

// DefaultAllowedAttachmentTypes lists the MIME types accepted by default.
var DefaultAllowedAttachmentTypes = []string{"image/jpeg", "image/png", "application/pdf"}

// Attachment is a file the caller has uploaded and wants referenced from a response.
type Attachment struct {
	Name        string // original file name, used when ContentType is empty
	ContentType string
	Size        int64
	Ref         string // storage URL or key stored on the response
}

// AttachmentRejection reports one file that failed validation.
type AttachmentRejection struct {
	Name string
	Err  error // wraps ErrAttachmentRejected
}

// AttachmentPolicy validates attachments before a response is persisted.
type AttachmentPolicy struct {
	MaxBytes     int64
	AllowedTypes []string
}

// DefaultAttachmentPolicy returns the 8 MiB jpeg/png/pdf policy.
func DefaultAttachmentPolicy() AttachmentPolicy {
	return AttachmentPolicy{
		MaxBytes:     DefaultMaxAttachmentBytes,
		AllowedTypes: slices.Clone(DefaultAllowedAttachmentTypes),
	}
}

// Validate splits files into accepted references and per-file rejections.
// A bad file never affects the others.
func (p AttachmentPolicy) Validate(files []Attachment) (accepted []string, rejected []AttachmentRejection) {
	for _, f := range files {
		if err := p.check(f); err != nil {
			rejected = append(rejected, AttachmentRejection{Name: f.Name, Err: err})
			continue
		}
		accepted = append(accepted, f.Ref)
	}
	return accepted, rejected
}

func (p AttachmentPolicy) check(f Attachment) error {
	if strings.TrimSpace(f.Ref) == "" {
		return newError(ErrAttachmentRejected, "validate_attachment", "%s has no storage reference", f.Name).
			FileContext(f.Name, f.Size).
			Build()
	}

	if f.Size <= 0 {
		return newError(ErrAttachmentRejected, "validate_attachment", "%s is empty", f.Name).
			FileContext(f.Name, f.Size).
			Build()
	}

	if p.MaxBytes > 0 && f.Size > p.MaxBytes {
		return newError(ErrAttachmentRejected, "validate_attachment", "%s is %d bytes, limit is %d", f.Name, f.Size, p.MaxBytes).
			FileContext(f.Name, f.Size).
			Context("max_bytes", p.MaxBytes).
			Build()
	}

	mediaType := contentTypeOf(f)
	if !slices.Contains(p.AllowedTypes, mediaType) {
		return newError(ErrAttachmentRejected, "validate_attachment", "%s has type %q which is not allowed", f.Name, mediaType).
			FileContext(f.Name, f.Size).
			Context("content_type", mediaType).
			Build()
	}

	return nil
}

// contentTypeOf normalizes the declared type, falling back to the file extension.
func contentTypeOf(f Attachment) string {
	declared := f.ContentType
	if declared == "" {
		declared = mime.TypeByExtension(strings.ToLower(filepath.Ext(f.Name)))
	}
	if declared == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(declared))
	}
	return mediaType
}

// attachmentErrors joins rejections into one error for logging.
func attachmentErrors(rejected []AttachmentRejection) error {
	errs := make([]error, 0, len(rejected))
	for _, r := range rejected {
		errs = append(errs, r.Err)
	}
	return errors.Join(errs...)
}
