package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/takuyakubo/knowledge-system/internal/models"
	"github.com/takuyakubo/knowledge-system/internal/repository"
	"github.com/takuyakubo/knowledge-system/internal/service"
)

type paperRequest struct {
	Title           string     `json:"title"`
	Abstract        *string    `json:"abstract"`
	Authors         string     `json:"authors"`
	Journal         *string    `json:"journal"`
	Conference      *string    `json:"conference"`
	Publisher       *string    `json:"publisher"`
	PublicationYear *int       `json:"publication_year"`
	PublicationDate *time.Time `json:"publication_date"`
	Volume          *string    `json:"volume"`
	Issue           *string    `json:"issue"`
	Pages           *string    `json:"pages"`
	DOI             *string    `json:"doi"`
	ArxivID         *string    `json:"arxiv_id"`
	PMID            *string    `json:"pmid"`
	ISBN            *string    `json:"isbn"`
	URL             *string    `json:"url"`
	PDFURL          *string    `json:"pdf_url"`
	Language        string     `json:"language"`
	PaperType       string     `json:"paper_type"`
	PersonalNotes   *string    `json:"personal_notes"`
	Rating          *int       `json:"rating"`
	Priority        *int       `json:"priority"`
	CategoryID      *int64     `json:"category_id"`
	Tags            []string   `json:"tags"`
}

func (r paperRequest) toInput() service.PaperInput {
	return service.PaperInput{
		Title:           r.Title,
		Abstract:        r.Abstract,
		Authors:         r.Authors,
		Journal:         r.Journal,
		Conference:      r.Conference,
		Publisher:       r.Publisher,
		PublicationYear: r.PublicationYear,
		PublicationDate: r.PublicationDate,
		Volume:          r.Volume,
		Issue:           r.Issue,
		Pages:           r.Pages,
		DOI:             r.DOI,
		ArxivID:         r.ArxivID,
		PMID:            r.PMID,
		ISBN:            r.ISBN,
		URL:             r.URL,
		PDFURL:          r.PDFURL,
		Language:        r.Language,
		PaperType:       models.PaperType(r.PaperType),
		PersonalNotes:   r.PersonalNotes,
		Rating:          r.Rating,
		Priority:        r.Priority,
		CategoryID:      r.CategoryID,
		TagNames:        r.Tags,
	}
}

type paperResponse struct {
	ID              int64         `json:"id"`
	Title           string        `json:"title"`
	Abstract        *string       `json:"abstract"`
	Authors         string        `json:"authors"`
	Journal         *string       `json:"journal"`
	Conference      *string       `json:"conference"`
	Publisher       *string       `json:"publisher"`
	PublicationYear *int          `json:"publication_year"`
	PublicationDate *time.Time    `json:"publication_date"`
	Volume          *string       `json:"volume"`
	Issue           *string       `json:"issue"`
	Pages           *string       `json:"pages"`
	DOI             *string       `json:"doi"`
	ArxivID         *string       `json:"arxiv_id"`
	PMID            *string       `json:"pmid"`
	ISBN            *string       `json:"isbn"`
	URL             *string       `json:"url"`
	PDFURL          *string       `json:"pdf_url"`
	Language        string        `json:"language"`
	PaperType       string        `json:"paper_type"`
	PersonalNotes   *string       `json:"personal_notes"`
	Rating          *int          `json:"rating"`
	ReadingStatus   string        `json:"reading_status"`
	Priority        int           `json:"priority"`
	IsFavorite      bool          `json:"is_favorite"`
	CitationCount   int           `json:"citation_count"`
	ReadAt          *time.Time    `json:"read_at"`
	CategoryID      *int64        `json:"category_id"`
	Tags            []tagResponse `json:"tags"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

func toPaperResponse(paper models.Paper) paperResponse {
	tags := make([]tagResponse, 0, len(paper.Tags))
	for _, tag := range paper.Tags {
		tags = append(tags, toTagResponse(tag))
	}
	return paperResponse{
		ID:              paper.ID,
		Title:           paper.Title,
		Abstract:        paper.Abstract,
		Authors:         paper.Authors,
		Journal:         paper.Journal,
		Conference:      paper.Conference,
		Publisher:       paper.Publisher,
		PublicationYear: paper.PublicationYear,
		PublicationDate: paper.PublicationDate,
		Volume:          paper.Volume,
		Issue:           paper.Issue,
		Pages:           paper.Pages,
		DOI:             paper.DOI,
		ArxivID:         paper.ArxivID,
		PMID:            paper.PMID,
		ISBN:            paper.ISBN,
		URL:             paper.URL,
		PDFURL:          paper.PDFURL,
		Language:        paper.Language,
		PaperType:       string(paper.PaperType),
		PersonalNotes:   paper.PersonalNotes,
		Rating:          paper.Rating,
		ReadingStatus:   string(paper.ReadingStatus),
		Priority:        paper.Priority,
		IsFavorite:      paper.IsFavorite,
		CitationCount:   paper.CitationCount,
		ReadAt:          paper.ReadAt,
		CategoryID:      paper.CategoryID,
		Tags:            tags,
		CreatedAt:       paper.CreatedAt,
		UpdatedAt:       paper.UpdatedAt,
	}
}

func sendPaperList(c *gin.Context, papers []models.Paper) {
	resp := make([]paperResponse, 0, len(papers))
	for _, paper := range papers {
		resp = append(resp, toPaperResponse(paper))
	}
	c.JSON(http.StatusOK, gin.H{"papers": resp, "count": len(resp)})
}

func (h HandlerSet) ListPapers(c *gin.Context) {
	filter := repository.PaperFilter{
		Skip:          queryInt(c, "skip", 0),
		Limit:         queryInt(c, "limit", 20),
		Search:        c.Query("search"),
		ReadingStatus: models.ReadingStatus(c.Query("reading_status")),
		FavoritesOnly: c.Query("favorites_only") == "true",
	}
	if raw := c.Query("category_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.CategoryID = &id
		}
	}
	if raw := c.Query("year"); raw != "" {
		if year, err := strconv.Atoi(raw); err == nil {
			filter.Year = &year
		}
	}

	papers, err := h.papers.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_papers_failed"})
		return
	}
	sendPaperList(c, papers)
}

func (h HandlerSet) CreatePaper(c *gin.Context) {
	var req paperRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	paper, err := h.paperService.Create(c.Request.Context(), req.toInput())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyTitle):
			c.JSON(http.StatusBadRequest, gin.H{"error": "title required"})
		case errors.Is(err, service.ErrInvalidRating):
			c.JSON(http.StatusBadRequest, gin.H{"error": "rating must be between 1 and 5"})
		case errors.Is(err, repository.ErrDuplicatePaper):
			c.JSON(http.StatusConflict, gin.H{"error": "paper_already_exists"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create_paper_failed"})
		}
		return
	}

	c.JSON(http.StatusCreated, toPaperResponse(paper))
}

func (h HandlerSet) PaperByDOI(c *gin.Context) {
	doi := strings.TrimPrefix(c.Param("doi"), "/")
	if doi == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "doi required"})
		return
	}

	paper, err := h.papers.GetByDOI(c.Request.Context(), doi)
	if err != nil {
		if errors.Is(err, repository.ErrPaperNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "paper_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get_paper_failed"})
		return
	}
	c.JSON(http.StatusOK, toPaperResponse(paper))
}

func (h HandlerSet) PaperByArxivID(c *gin.Context) {
	paper, err := h.papers.GetByArxivID(c.Request.Context(), c.Param("arxivId"))
	if err != nil {
		if errors.Is(err, repository.ErrPaperNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "paper_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get_paper_failed"})
		return
	}
	c.JSON(http.StatusOK, toPaperResponse(paper))
}

func (h HandlerSet) GetPaper(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	paper, err := h.papers.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrPaperNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "paper_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get_paper_failed"})
		return
	}
	c.JSON(http.StatusOK, toPaperResponse(paper))
}

func (h HandlerSet) UpdatePaper(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req paperRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	paper, err := h.paperService.Update(c.Request.Context(), id, req.toInput())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrPaperNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "paper_not_found"})
		case errors.Is(err, service.ErrInvalidRating):
			c.JSON(http.StatusBadRequest, gin.H{"error": "rating must be between 1 and 5"})
		case errors.Is(err, repository.ErrDuplicatePaper):
			c.JSON(http.StatusConflict, gin.H{"error": "paper_already_exists"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update_paper_failed"})
		}
		return
	}
	c.JSON(http.StatusOK, toPaperResponse(paper))
}

func (h HandlerSet) DeletePaper(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.papers.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrPaperNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "paper_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete_paper_failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

type ratePaperRequest struct {
	Rating int `json:"rating" binding:"required"`
}

func (h HandlerSet) RatePaper(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req ratePaperRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.paperService.SetRating(c.Request.Context(), id, req.Rating); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRating):
			c.JSON(http.StatusBadRequest, gin.H{"error": "rating must be between 1 and 5"})
		case errors.Is(err, repository.ErrPaperNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "paper_not_found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "rate_paper_failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "rating": req.Rating})
}

type paperStatusRequest struct {
	ReadingStatus string `json:"reading_status" binding:"required"`
}

func (h HandlerSet) SetPaperStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req paperStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status := models.ReadingStatus(req.ReadingStatus)
	if err := h.paperService.SetReadingStatus(c.Request.Context(), id, status); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidReadingStatus):
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown reading status"})
		case errors.Is(err, repository.ErrPaperNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "paper_not_found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "set_status_failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "reading_status": req.ReadingStatus})
}

func (h HandlerSet) FavoritePaper(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	favorite, err := h.papers.ToggleFavorite(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrPaperNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "paper_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "favorite_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "is_favorite": favorite})
}

func (h HandlerSet) CitePaper(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	citations, err := h.papers.IncrementCitations(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrPaperNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "paper_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cite_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "citation_count": citations})
}
