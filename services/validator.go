package services

import (
	"fmt"
	"io"
	"mime/multipart"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
)

// UploadFile is one file of an upload request
type UploadFile struct {
	Filename string
	Size     int64
	// DeclaredType is the client supplied content type. It is recorded for
	// logging only; the sniffed type decides.
	DeclaredType string
	Open         func() (io.ReadCloser, error)
}

// FromFileHeader adapts a parsed multipart file
func FromFileHeader(fh *multipart.FileHeader) UploadFile {
	return UploadFile{
		Filename:     fh.Filename,
		Size:         fh.Size,
		DeclaredType: fh.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// ValidationResult is the outcome of validating one file
type ValidationResult struct {
	Accepted bool
	MimeType string
	Reason   string
}

// Rejection reasons reported to clients
const (
	ReasonNoFile      = "No file uploaded"
	ReasonInvalidType = "Invalid file type. Only JPG, PNG, WebP, and GIF allowed"
	ReasonUnreadable  = "Failed to read uploaded file"
)

// UploadValidator decides whether a file may be stored. The content-sniffed
// MIME type is authoritative, never the declared one.
type UploadValidator struct {
	maxSize int64
	allowed map[string]struct{}
}

func NewUploadValidator(maxSize int64, allowedTypes []string) *UploadValidator {
	allowed := make(map[string]struct{}, len(allowedTypes))
	for _, t := range allowedTypes {
		allowed[t] = struct{}{}
	}
	return &UploadValidator{maxSize: maxSize, allowed: allowed}
}

// MaxSize returns the largest accepted file size in bytes
func (v *UploadValidator) MaxSize() int64 {
	return v.maxSize
}

func (v *UploadValidator) Validate(file UploadFile) ValidationResult {
	if file.Open == nil || (file.Filename == "" && file.Size == 0) {
		return reject(ReasonNoFile)
	}

	if file.Size > v.maxSize {
		return reject(v.tooLargeReason())
	}

	rc, err := file.Open()
	if err != nil {
		return reject(ReasonUnreadable)
	}
	defer rc.Close()

	detected, err := mimetype.DetectReader(rc)
	if err != nil {
		return reject(ReasonUnreadable)
	}

	// Walk up the type tree so that e.g. an animated PNG is accepted as image/png.
	for m := detected; m != nil; m = m.Parent() {
		if _, ok := v.allowed[m.String()]; ok {
			return ValidationResult{Accepted: true, MimeType: m.String()}
		}
	}
	return reject(ReasonInvalidType)
}

func (v *UploadValidator) tooLargeReason() string {
	maxMB := strconv.FormatFloat(float64(v.maxSize)/(1024*1024), 'f', -1, 64)
	return fmt.Sprintf("File too large. Maximum size is %sMB", maxMB)
}

func reject(reason string) ValidationResult {
	return ValidationResult{Reason: reason}
}
