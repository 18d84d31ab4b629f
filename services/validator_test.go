package services

import (
	"errors"
	"io"
	"testing"
)

func TestValidateAcceptsSniffedImageTypes(t *testing.T) {
	v := NewUploadValidator(20*1024*1024, []string{"image/jpeg", "image/png", "image/webp", "image/gif"})

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"photo.png", pngBytes, "image/png"},
		{"anim.gif", gifBytes, "image/gif"},
		{"shot.jpg", jpegBytes, "image/jpeg"},
		{"modern.webp", webpBytes, "image/webp"},
		// The extension does not matter, only the content does.
		{"mislabelled.txt", pngBytes, "image/png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Validate(uploadFile(tt.name, tt.data))
			if !got.Accepted {
				t.Fatalf("Validate rejected %s: %s", tt.name, got.Reason)
			}
			if got.MimeType != tt.want {
				t.Errorf("MimeType = %q, want %q", got.MimeType, tt.want)
			}
		})
	}
}

func TestValidateRejections(t *testing.T) {
	v := NewUploadValidator(20*1024*1024, []string{"image/jpeg", "image/png", "image/webp", "image/gif"})

	oversized := uploadFile("huge.png", pngBytes)
	oversized.Size = 25 * 1024 * 1024

	unreadable := uploadFile("broken.png", pngBytes)
	unreadable.Open = func() (io.ReadCloser, error) { return nil, errors.New("disk gone") }

	tests := []struct {
		name   string
		file   UploadFile
		reason string
	}{
		{"disguised text", uploadFile("notes.png", textBytes), "Invalid file type. Only JPG, PNG, WebP, and GIF allowed"},
		{"too large", oversized, "File too large. Maximum size is 20MB"},
		{"no file", UploadFile{}, "No file uploaded"},
		{"unreadable", unreadable, ReasonUnreadable},
		{"empty content", uploadFile("empty.png", nil), "Invalid file type. Only JPG, PNG, WebP, and GIF allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Validate(tt.file)
			if got.Accepted {
				t.Fatalf("Validate accepted %s", tt.file.Filename)
			}
			if got.Reason != tt.reason {
				t.Errorf("Reason = %q, want %q", got.Reason, tt.reason)
			}
		})
	}
}

func TestValidateRespectsConfiguredTypes(t *testing.T) {
	v := NewUploadValidator(1024, []string{"image/png"})

	if got := v.Validate(uploadFile("a.gif", gifBytes)); got.Accepted {
		t.Error("gif accepted although only png is allowed")
	}
	if got := v.Validate(uploadFile("a.png", pngBytes)); !got.Accepted {
		t.Errorf("png rejected: %s", got.Reason)
	}
}

func TestValidateSizeLimitIsInclusive(t *testing.T) {
	v := NewUploadValidator(int64(len(pngBytes)), []string{"image/png"})

	if got := v.Validate(uploadFile("exact.png", pngBytes)); !got.Accepted {
		t.Errorf("file of exactly the maximum size rejected: %s", got.Reason)
	}
}

func TestTooLargeReasonFormatsFractionalMegabytes(t *testing.T) {
	v := NewUploadValidator(1536*1024, []string{"image/png"})
	file := uploadFile("big.png", pngBytes)
	file.Size = 2 * 1024 * 1024

	if got := v.Validate(file).Reason; got != "File too large. Maximum size is 1.5MB" {
		t.Errorf("Reason = %q", got)
	}
}
