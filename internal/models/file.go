package models

import "time"

type FileType string

const (
	FileTypeImage    FileType = "image"
	FileTypeDocument FileType = "document"
	FileTypeOther    FileType = "other"
)

type File struct {
	ID               int64
	Filename         string
	OriginalFilename string
	ObjectKey        string
	SizeBytes        int64
	MimeType         string
	Extension        string
	SHA256           string
	FileType         FileType
	Description      *string
	AltText          *string
	ArticleID        *int64
	PaperID          *int64
	IsPublic         bool
	DownloadCount    int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsOrphaned reports whether the file is attached to neither an article
// nor a paper.
func (f *File) IsOrphaned() bool {
	return f.ArticleID == nil && f.PaperID == nil
}
