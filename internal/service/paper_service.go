package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/takuyakubo/knowledge-system/internal/models"
	"github.com/takuyakubo/knowledge-system/internal/repository"
	"github.com/takuyakubo/knowledge-system/internal/slug"
)

var (
	ErrInvalidRating        = errors.New("rating must be between 1 and 5")
	ErrInvalidReadingStatus = errors.New("unknown reading status")
)

type PaperInput struct {
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
	PaperType       models.PaperType
	PersonalNotes   *string
	Rating          *int
	Priority        *int
	CategoryID      *int64
	TagNames        []string
}

type PaperService struct {
	papers *repository.PaperRepository
	tags   *repository.TagRepository
	log    zerolog.Logger
}

func NewPaperService(papers *repository.PaperRepository, tags *repository.TagRepository, log zerolog.Logger) *PaperService {
	return &PaperService{
		papers: papers,
		tags:   tags,
		log:    log,
	}
}

func (s *PaperService) Create(ctx context.Context, input PaperInput) (models.Paper, error) {
	if input.Title == "" {
		return models.Paper{}, ErrEmptyTitle
	}
	if input.Rating != nil && (*input.Rating < 1 || *input.Rating > 5) {
		return models.Paper{}, ErrInvalidRating
	}

	paper := models.Paper{
		Title:           input.Title,
		Abstract:        input.Abstract,
		Authors:         input.Authors,
		Journal:         input.Journal,
		Conference:      input.Conference,
		Publisher:       input.Publisher,
		PublicationYear: input.PublicationYear,
		PublicationDate: input.PublicationDate,
		Volume:          input.Volume,
		Issue:           input.Issue,
		Pages:           input.Pages,
		DOI:             input.DOI,
		ArxivID:         input.ArxivID,
		PMID:            input.PMID,
		ISBN:            input.ISBN,
		URL:             input.URL,
		PDFURL:          input.PDFURL,
		Language:        input.Language,
		PaperType:       input.PaperType,
		PersonalNotes:   input.PersonalNotes,
		Rating:          input.Rating,
		ReadingStatus:   models.ReadingStatusToRead,
		Priority:        3,
		CategoryID:      input.CategoryID,
	}
	if paper.Language == "" {
		paper.Language = "en"
	}
	if paper.PaperType == "" {
		paper.PaperType = models.PaperTypeJournal
	}
	if input.Priority != nil {
		paper.Priority = *input.Priority
	}

	if err := s.papers.Create(ctx, &paper); err != nil {
		return models.Paper{}, err
	}

	if err := s.attachTags(ctx, &paper, input.TagNames); err != nil {
		return models.Paper{}, err
	}

	return paper, nil
}

func (s *PaperService) Update(ctx context.Context, id int64, input PaperInput) (models.Paper, error) {
	if input.Rating != nil && (*input.Rating < 1 || *input.Rating > 5) {
		return models.Paper{}, ErrInvalidRating
	}

	paper, err := s.papers.GetByID(ctx, id)
	if err != nil {
		return models.Paper{}, err
	}

	if input.Title != "" {
		paper.Title = input.Title
	}
	if input.Authors != "" {
		paper.Authors = input.Authors
	}
	if input.Abstract != nil {
		paper.Abstract = input.Abstract
	}
	if input.Journal != nil {
		paper.Journal = input.Journal
	}
	if input.Conference != nil {
		paper.Conference = input.Conference
	}
	if input.Publisher != nil {
		paper.Publisher = input.Publisher
	}
	if input.PublicationYear != nil {
		paper.PublicationYear = input.PublicationYear
	}
	if input.PublicationDate != nil {
		paper.PublicationDate = input.PublicationDate
	}
	if input.Volume != nil {
		paper.Volume = input.Volume
	}
	if input.Issue != nil {
		paper.Issue = input.Issue
	}
	if input.Pages != nil {
		paper.Pages = input.Pages
	}
	if input.DOI != nil {
		paper.DOI = input.DOI
	}
	if input.ArxivID != nil {
		paper.ArxivID = input.ArxivID
	}
	if input.PMID != nil {
		paper.PMID = input.PMID
	}
	if input.ISBN != nil {
		paper.ISBN = input.ISBN
	}
	if input.URL != nil {
		paper.URL = input.URL
	}
	if input.PDFURL != nil {
		paper.PDFURL = input.PDFURL
	}
	if input.Language != "" {
		paper.Language = input.Language
	}
	if input.PaperType != "" {
		paper.PaperType = input.PaperType
	}
	if input.PersonalNotes != nil {
		paper.PersonalNotes = input.PersonalNotes
	}
	if input.Rating != nil {
		paper.Rating = input.Rating
	}
	if input.Priority != nil {
		paper.Priority = *input.Priority
	}
	if input.CategoryID != nil {
		paper.CategoryID = input.CategoryID
	}

	if err := s.papers.Update(ctx, paper); err != nil {
		return models.Paper{}, err
	}

	if input.TagNames != nil {
		if err := s.attachTags(ctx, &paper, input.TagNames); err != nil {
			return models.Paper{}, err
		}
	}

	return paper, nil
}

func (s *PaperService) SetRating(ctx context.Context, id int64, rating int) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}
	return s.papers.SetRating(ctx, id, rating)
}

func (s *PaperService) SetReadingStatus(ctx context.Context, id int64, status models.ReadingStatus) error {
	switch status {
	case models.ReadingStatusToRead, models.ReadingStatusReading,
		models.ReadingStatusCompleted, models.ReadingStatusSkipped:
	default:
		return ErrInvalidReadingStatus
	}
	return s.papers.SetReadingStatus(ctx, id, status)
}

func (s *PaperService) attachTags(ctx context.Context, paper *models.Paper, names []string) error {
	if names == nil {
		return nil
	}

	tags, err := s.tags.GetOrCreateByNames(ctx, names, slug.From)
	if err != nil {
		return err
	}

	tagIDs := make([]int64, 0, len(tags))
	for _, tag := range tags {
		tagIDs = append(tagIDs, tag.ID)
	}
	if err := s.papers.SetTags(ctx, paper.ID, tagIDs); err != nil {
		return err
	}

	paper.Tags = tags
	return nil
}
