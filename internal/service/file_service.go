package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"strings"

	"github.com/rs/zerolog"

	"github.com/takuyakubo/knowledge-system/internal/config"
	"github.com/takuyakubo/knowledge-system/internal/filetype"
	"github.com/takuyakubo/knowledge-system/internal/ids"
	"github.com/takuyakubo/knowledge-system/internal/models"
	"github.com/takuyakubo/knowledge-system/internal/repository"
	"github.com/takuyakubo/knowledge-system/internal/storage"
)

var (
	ErrFileTooLarge     = errors.New("file exceeds the size limit")
	ErrExtensionBlocked = errors.New("file extension is not allowed")
	ErrEmptyFile        = errors.New("empty file")
	ErrContentMismatch  = errors.New("file content does not match its extension")
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".svg": true,
}

var documentExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".txt": true, ".md": true,
	".tex": true, ".bib": true, ".csv": true, ".xlsx": true, ".pptx": true,
}

type UploadInput struct {
	File        multipart.File
	Header      *multipart.FileHeader
	Description *string
	AltText     *string
	ArticleID   *int64
	PaperID     *int64
	IsPublic    bool
}

type UploadResult struct {
	File models.File
	// Deduplicated is set when identical bytes were already stored and the
	// existing record was returned instead of a new one.
	Deduplicated bool
}

type FileService struct {
	files *repository.FileRepository
	store *storage.ObjectStore
	cfg   *config.AppConfig
	log   zerolog.Logger
}

func NewFileService(files *repository.FileRepository, store *storage.ObjectStore, cfg *config.AppConfig, log zerolog.Logger) *FileService {
	return &FileService{
		files: files,
		store: store,
		cfg:   cfg,
		log:   log,
	}
}

func (s *FileService) Upload(ctx context.Context, input UploadInput) (UploadResult, error) {
	if input.File == nil || input.Header == nil {
		return UploadResult{}, errors.New("invalid file payload")
	}

	ext := strings.ToLower(path.Ext(input.Header.Filename))
	if !s.extensionAllowed(ext) {
		return UploadResult{}, ErrExtensionBlocked
	}

	data, err := io.ReadAll(io.LimitReader(input.File, s.cfg.Upload.MaxSizeBytes+1))
	if err != nil {
		return UploadResult{}, fmt.Errorf("read file: %w", err)
	}
	if len(data) == 0 {
		return UploadResult{}, ErrEmptyFile
	}
	if int64(len(data)) > s.cfg.Upload.MaxSizeBytes {
		return UploadResult{}, ErrFileTooLarge
	}

	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	detected := filetype.DetectMIME(head)
	expected := filetype.MIMEForExtension(ext)

	// Image bytes are renderable by browsers, so the extension has to tell
	// the truth about them. Text formats carry no magic and are not checked.
	if imageExtensions[ext] && detected != expected {
		return UploadResult{}, ErrContentMismatch
	}

	contentType := expected
	if contentType == "" {
		contentType = detected
	}
	if contentType == "" {
		contentType = input.Header.Header.Get("Content-Type")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])

	if existing, err := s.files.FindBySHA256(ctx, digest); err == nil {
		return UploadResult{File: existing, Deduplicated: true}, nil
	} else if !errors.Is(err, repository.ErrFileNotFound) {
		return UploadResult{}, err
	}

	fileType := classifyExtension(ext)
	objectKey := buildObjectKey(fileType, ext)

	if err := s.store.Put(ctx, objectKey, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return UploadResult{}, err
	}

	file := models.File{
		Filename:         path.Base(objectKey),
		OriginalFilename: input.Header.Filename,
		ObjectKey:        objectKey,
		SizeBytes:        int64(len(data)),
		MimeType:         contentType,
		Extension:        ext,
		SHA256:           digest,
		FileType:         fileType,
		Description:      input.Description,
		AltText:          input.AltText,
		ArticleID:        input.ArticleID,
		PaperID:          input.PaperID,
		IsPublic:         input.IsPublic,
	}

	if err := s.files.Create(ctx, &file); err != nil {
		// The object is orphaned if the row fails; remove it again.
		if rmErr := s.store.Remove(ctx, objectKey); rmErr != nil {
			s.log.Warn().Err(rmErr).Str("object_key", objectKey).Msg("rollback object failed")
		}
		return UploadResult{}, fmt.Errorf("save metadata: %w", err)
	}

	return UploadResult{File: file}, nil
}

// Download streams the stored object and bumps the download counter.
func (s *FileService) Download(ctx context.Context, id int64) (models.File, io.ReadCloser, error) {
	file, err := s.files.GetByID(ctx, id)
	if err != nil {
		return models.File{}, nil, err
	}

	body, err := s.store.Get(ctx, file.ObjectKey)
	if err != nil {
		return models.File{}, nil, err
	}

	if err := s.files.IncrementDownloads(ctx, id); err != nil {
		s.log.Warn().Err(err).Int64("file_id", id).Msg("count download failed")
	}

	return file, body, nil
}

func (s *FileService) Delete(ctx context.Context, id int64) error {
	file, err := s.files.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.Remove(ctx, file.ObjectKey); err != nil {
		s.log.Warn().Err(err).Str("object_key", file.ObjectKey).Msg("remove object failed")
	}

	return s.files.Delete(ctx, id)
}

func (s *FileService) extensionAllowed(ext string) bool {
	for _, allowed := range s.cfg.Upload.AllowedExtensions {
		if strings.ToLower(strings.TrimSpace(allowed)) == ext {
			return true
		}
	}
	return false
}

func classifyExtension(ext string) models.FileType {
	switch {
	case imageExtensions[ext]:
		return models.FileTypeImage
	case documentExtensions[ext]:
		return models.FileTypeDocument
	default:
		return models.FileTypeOther
	}
}

func buildObjectKey(fileType models.FileType, ext string) string {
	return path.Join(string(fileType), ids.New()+ext)
}
