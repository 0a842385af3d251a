package models

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	DefaultMaxPhotos   = 10
	DefaultMaxFileSize = 5 * 1024 * 1024
)

// Attachment is a logo or photo. Remote attachments were hydrated from server state and
// only carry their filename.
type Attachment struct {
	Filename    string `json:"filename" yaml:"filename"`
	ContentType string `json:"contentType,omitempty" yaml:"contentType,omitempty"`
	Size        int64  `json:"size,omitempty" yaml:"size,omitempty"`
	Data        []byte `json:"-" yaml:"-"`
	Remote      bool   `json:"remote,omitempty" yaml:"remote,omitempty"`
}

// NewAttachment builds a local attachment and sniffs its content type from the bytes.
func NewAttachment(filename string, data []byte) Attachment {
	return Attachment{
		Filename:    filename,
		ContentType: mimetype.Detect(data).String(),
		Size:        int64(len(data)),
		Data:        data,
	}
}

// RemoteAttachment references a file the backend already holds.
func RemoteAttachment(filename string) Attachment {
	return Attachment{Filename: filename, Remote: true}
}

func (a Attachment) HasData() bool {
	return len(a.Data) > 0
}

type AttachmentLimits struct {
	MaxPhotos   int
	MaxFileSize int64
}

func DefaultAttachmentLimits() AttachmentLimits {
	return AttachmentLimits{MaxPhotos: DefaultMaxPhotos, MaxFileSize: DefaultMaxFileSize}
}

// Check returns the reason a is refused, or "" when it is acceptable. Size and type come
// from the bytes when present; the declared values only count for byte-less attachments.
func (l AttachmentLimits) Check(a Attachment) string {
	if strings.TrimSpace(a.Filename) == "" {
		return "File name is required"
	}
	if a.Remote {
		return ""
	}
	size := a.Size
	if a.HasData() {
		size = int64(len(a.Data))
	}
	if l.MaxFileSize > 0 && size > l.MaxFileSize {
		return fmt.Sprintf("%s exceeds the %d MB limit", a.Filename, l.MaxFileSize/(1024*1024))
	}
	contentType := a.ContentType
	if a.HasData() {
		contentType = mimetype.Detect(a.Data).String()
	}
	if !strings.HasPrefix(contentType, "image/") {
		return fmt.Sprintf("%s is not an image", a.Filename)
	}
	return ""
}
