package client

import "time"

type User struct {
	ID          int64      `json:"id"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	DisplayName string     `json:"display_name"`
	FullName    *string    `json:"full_name"`
	Bio         *string    `json:"bio"`
	AvatarURL   *string    `json:"avatar_url"`
	IsActive    bool       `json:"is_active"`
	IsVerified  bool       `json:"is_verified"`
	IsSuperuser bool       `json:"is_superuser"`
	LastLoginAt *time.Time `json:"last_login_at"`
	LoginCount  int        `json:"login_count"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	User         *User  `json:"user,omitempty"`
}

type Tag struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description"`
	Color       *string   `json:"color"`
	Icon        *string   `json:"icon"`
	IsActive    bool      `json:"is_active"`
	UsageCount  int       `json:"usage_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Article struct {
	ID               int64      `json:"id"`
	Title            string     `json:"title"`
	Content          string     `json:"content"`
	Summary          *string    `json:"summary"`
	Slug             string     `json:"slug"`
	Status           string     `json:"status"`
	MetaDescription  *string    `json:"meta_description"`
	FeaturedImageURL *string    `json:"featured_image_url"`
	CategoryID       *int64     `json:"category_id"`
	IsPublic         bool       `json:"is_public"`
	PublishedAt      *time.Time `json:"published_at"`
	ViewCount        int        `json:"view_count"`
	LikeCount        int        `json:"like_count"`
	Tags             []Tag      `json:"tags"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type ArticleInput struct {
	Title            string   `json:"title,omitempty"`
	Content          string   `json:"content,omitempty"`
	Summary          *string  `json:"summary,omitempty"`
	Slug             string   `json:"slug,omitempty"`
	Status           string   `json:"status,omitempty"`
	MetaDescription  *string  `json:"meta_description,omitempty"`
	FeaturedImageURL *string  `json:"featured_image_url,omitempty"`
	CategoryID       *int64   `json:"category_id,omitempty"`
	IsPublic         *bool    `json:"is_public,omitempty"`
	Tags             []string `json:"tags,omitempty"`
}

type ArticleListOptions struct {
	Skip          int
	Limit         int
	PublishedOnly bool
	CategoryID    int64
	Search        string
}

type Paper struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Abstract        *string    `json:"abstract"`
	Authors         string     `json:"authors"`
	Journal         *string    `json:"journal"`
	Conference      *string    `json:"conference"`
	PublicationYear *int       `json:"publication_year"`
	DOI             *string    `json:"doi"`
	ArxivID         *string    `json:"arxiv_id"`
	URL             *string    `json:"url"`
	PDFURL          *string    `json:"pdf_url"`
	Language        string     `json:"language"`
	PaperType       string     `json:"paper_type"`
	PersonalNotes   *string    `json:"personal_notes"`
	Rating          *int       `json:"rating"`
	ReadingStatus   string     `json:"reading_status"`
	Priority        int        `json:"priority"`
	IsFavorite      bool       `json:"is_favorite"`
	CitationCount   int        `json:"citation_count"`
	ReadAt          *time.Time `json:"read_at"`
	CategoryID      *int64     `json:"category_id"`
	Tags            []Tag      `json:"tags"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type PaperInput struct {
	Title           string   `json:"title,omitempty"`
	Abstract        *string  `json:"abstract,omitempty"`
	Authors         string   `json:"authors,omitempty"`
	Journal         *string  `json:"journal,omitempty"`
	Conference      *string  `json:"conference,omitempty"`
	PublicationYear *int     `json:"publication_year,omitempty"`
	DOI             *string  `json:"doi,omitempty"`
	ArxivID         *string  `json:"arxiv_id,omitempty"`
	URL             *string  `json:"url,omitempty"`
	PDFURL          *string  `json:"pdf_url,omitempty"`
	Language        string   `json:"language,omitempty"`
	PaperType       string   `json:"paper_type,omitempty"`
	PersonalNotes   *string  `json:"personal_notes,omitempty"`
	Rating          *int     `json:"rating,omitempty"`
	Priority        *int     `json:"priority,omitempty"`
	CategoryID      *int64   `json:"category_id,omitempty"`
	Tags            []string `json:"tags,omitempty"`
}

type PaperListOptions struct {
	Skip          int
	Limit         int
	Search        string
	CategoryID    int64
	ReadingStatus string
	FavoritesOnly bool
	Year          int
}

type Category struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description *string    `json:"description"`
	ParentID    *int64     `json:"parent_id"`
	Level       int        `json:"level"`
	Path        string     `json:"path"`
	IsActive    bool       `json:"is_active"`
	Children    []Category `json:"children,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type CategoryInput struct {
	Name        string  `json:"name,omitempty"`
	Slug        string  `json:"slug,omitempty"`
	Description *string `json:"description,omitempty"`
	ParentID    *int64  `json:"parent_id,omitempty"`
}

type TagInput struct {
	Name        string  `json:"name,omitempty"`
	Slug        string  `json:"slug,omitempty"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
}

type File struct {
	ID               int64     `json:"id"`
	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"original_filename"`
	SizeBytes        int64     `json:"size_bytes"`
	MimeType         string    `json:"mime_type"`
	Extension        string    `json:"extension"`
	SHA256           string    `json:"sha256"`
	FileType         string    `json:"file_type"`
	ArticleID        *int64    `json:"article_id"`
	PaperID          *int64    `json:"paper_id"`
	DownloadCount    int       `json:"download_count"`
	CreatedAt        time.Time `json:"created_at"`
}
