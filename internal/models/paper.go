package models

import "time"

type ReadingStatus string

const (
	ReadingStatusToRead    ReadingStatus = "to_read"
	ReadingStatusReading   ReadingStatus = "reading"
	ReadingStatusCompleted ReadingStatus = "completed"
	ReadingStatusSkipped   ReadingStatus = "skipped"
)

type PaperType string

const (
	PaperTypeJournal    PaperType = "journal"
	PaperTypeConference PaperType = "conference"
	PaperTypePreprint   PaperType = "preprint"
	PaperTypeThesis     PaperType = "thesis"
	PaperTypeBook       PaperType = "book"
)

type Paper struct {
	ID              int64
	Title           string
	Abstract        *string
	Authors         string
	Journal         *string
	Conference      *string
	Publisher       *string
	PublicationYear *int
	PublicationDate *time.Time
	Volume          *string
	Issue           *string
	Pages           *string
	DOI             *string
	ArxivID         *string
	PMID            *string
	ISBN            *string
	URL             *string
	PDFURL          *string
	Language        string
	PaperType       PaperType
	PersonalNotes   *string
	Rating          *int
	ReadingStatus   ReadingStatus
	Priority        int
	IsFavorite      bool
	CitationCount   int
	ReadAt          *time.Time
	CategoryID      *int64
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Tags []Tag
}
