package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gorm.io/gorm"

	"github.com/diewo77/jsign/gate"
	"github.com/diewo77/jsign/internal/convert"
	"github.com/diewo77/jsign/internal/files"
	"github.com/diewo77/jsign/internal/models"
	"github.com/diewo77/jsign/internal/policy"
)

// Acknowledgment status strings shown in listings.
const (
	StatusAcknowledged = "Acknowledged"
	StatusPending      = "Pending Acknowledgment"
)

// DocumentService implements the upload-and-convert pipeline and the
// acknowledgment workflow. The current user always arrives via the request
// context (for gate checks) plus an explicit id parameter.
type DocumentService struct {
	db    *gorm.DB
	store *files.Store
	conv  *convert.Converter
	gate  *policy.AuthGate
}

func NewDocumentService(db *gorm.DB, store *files.Store, conv *convert.Converter, ag *policy.AuthGate) *DocumentService {
	return &DocumentService{db: db, store: store, conv: conv, gate: ag}
}

type DocumentSummary struct {
	ID       uint   `json:"id"`
	Filename string `json:"filename"`
	Uploader string `json:"uploader"`
	Status   string `json:"status"`
}

type UserRef struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

type DocumentDetail struct {
	ID                  uint      `json:"id"`
	Filename            string    `json:"filename"`
	Filepath            string    `json:"filepath"`
	Uploader            string    `json:"uploader"`
	SpecialRequirements string    `json:"special_requirements"`
	SignedBy            []UserRef `json:"signed_by"`
	NotSignedBy         []UserRef `json:"not_signed_by"`
}

// List returns all non-deleted documents, newest first, each annotated with
// whether the current user has acknowledged it.
func (s *DocumentService) List(ctx context.Context, currentUserID uint) ([]DocumentSummary, error) {
	var docs []models.Document
	if err := s.db.WithContext(ctx).
		Where("is_deleted = ?", false).
		Preload("Uploader").
		Order("created_at desc, id desc").
		Find(&docs).Error; err != nil {
		return nil, err
	}

	var acks []models.Acknowledgment
	if err := s.db.WithContext(ctx).Where("user_id = ?", currentUserID).Find(&acks).Error; err != nil {
		return nil, err
	}
	acked := make(map[uint]bool, len(acks))
	for _, a := range acks {
		acked[a.DocumentID] = true
	}

	out := make([]DocumentSummary, 0, len(docs))
	for _, d := range docs {
		status := StatusPending
		if acked[d.ID] {
			status = StatusAcknowledged
		}
		out = append(out, DocumentSummary{ID: d.ID, Filename: d.Filename, Uploader: d.Uploader.Username, Status: status})
	}
	return out, nil
}

// Detail returns document metadata plus the partition of all role=user
// accounts into those who have acknowledged it and those who have not.
func (s *DocumentService) Detail(ctx context.Context, docID uint) (*DocumentDetail, error) {
	var doc models.Document
	if err := s.db.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", docID, false).
		Preload("Uploader").
		First(&doc).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var allUsers []models.User
	if err := s.db.WithContext(ctx).Where("role = ?", models.RoleUser).Order("username").Find(&allUsers).Error; err != nil {
		return nil, err
	}
	var acks []models.Acknowledgment
	if err := s.db.WithContext(ctx).Where("document_id = ?", docID).Find(&acks).Error; err != nil {
		return nil, err
	}
	signedIDs := make(map[uint]bool, len(acks))
	for _, a := range acks {
		signedIDs[a.UserID] = true
	}

	detail := &DocumentDetail{
		ID:                  doc.ID,
		Filename:            doc.Filename,
		Filepath:            doc.Filepath,
		Uploader:            doc.Uploader.Username,
		SpecialRequirements: doc.SpecialRequirements,
		SignedBy:            []UserRef{},
		NotSignedBy:         []UserRef{},
	}
	if detail.SpecialRequirements == "" {
		detail.SpecialRequirements = "No special requirements provided."
	}
	for _, u := range allUsers {
		ref := UserRef{ID: u.ID, Username: u.Username}
		if signedIDs[u.ID] {
			detail.SignedBy = append(detail.SignedBy, ref)
		} else {
			detail.NotSignedBy = append(detail.NotSignedBy, ref)
		}
	}
	return detail, nil
}

// Upload stores the file and creates the Document row. PDFs are stored
// as-is; .docx/.xlsx go through the converter and the original temp file is
// removed after a successful conversion. Any other extension is rejected and
// the temp file deleted. A conversion failure leaves no row and no file.
func (s *DocumentService) Upload(ctx context.Context, uploaderID uint, filename string, src io.Reader, specialRequirements string) error {
	if err := s.gate.Authorize(ctx, gate.ActionCreate, policy.ResourceDocument, nil); err != nil {
		return ErrForbidden
	}

	sanitized := files.SanitizeFilename(filename)
	key, err := s.store.Save(src, sanitized)
	if err != nil {
		return err
	}

	finalKey := key
	switch ext := strings.ToLower(filepath.Ext(sanitized)); ext {
	case ".pdf":
		// stored as-is
	case ".docx", ".xlsx":
		srcPath, perr := s.store.Path(key)
		if perr != nil {
			s.store.Remove(key)
			return perr
		}
		pdfPath, cerr := s.conv.ToPDF(ctx, srcPath, s.store.Dir())
		if cerr != nil {
			s.store.Remove(key)
			return fmt.Errorf("%w: %v", ErrConversionFailed, cerr)
		}
		finalKey = filepath.Base(pdfPath)
		if rerr := s.store.Remove(key); rerr != nil {
			return rerr
		}
	default:
		s.store.Remove(key)
		return ErrUnsupportedType
	}

	doc := models.Document{
		Filename:            sanitized,
		Filepath:            finalKey,
		UploaderID:          uploaderID,
		SpecialRequirements: specialRequirements,
	}
	if err := s.db.WithContext(ctx).Create(&doc).Error; err != nil {
		s.store.Remove(finalKey)
		return err
	}
	return nil
}

// Acknowledge records that the user has reviewed the document. The duplicate
// check runs first: a second acknowledgment is a conflict even if the
// document has since been soft-deleted.
func (s *DocumentService) Acknowledge(ctx context.Context, userID, docID uint) error {
	if err := s.gate.Authorize(ctx, gate.ActionAcknowledge, policy.ResourceDocument, nil); err != nil {
		return ErrForbidden
	}

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Acknowledgment{}).
		Where("user_id = ? AND document_id = ?", userID, docID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrConflict
	}

	var doc models.Document
	if err := s.db.WithContext(ctx).Where("id = ? AND is_deleted = ?", docID, false).First(&doc).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrNotFound
		}
		return err
	}

	ack := models.Acknowledgment{UserID: userID, DocumentID: doc.ID}
	return s.db.WithContext(ctx).Create(&ack).Error
}

// SoftDelete hides the document from listings. Only the uploader or an admin
// may delete; the row and the stored file are never removed.
func (s *DocumentService) SoftDelete(ctx context.Context, docID uint) error {
	var doc models.Document
	if err := s.db.WithContext(ctx).Where("id = ? AND is_deleted = ?", docID, false).First(&doc).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrNotFound
		}
		return err
	}
	if err := s.gate.Authorize(ctx, gate.ActionDelete, policy.ResourceDocument, &doc); err != nil {
		return ErrForbidden
	}
	return s.db.WithContext(ctx).Model(&doc).Update("is_deleted", true).Error
}

// DownloadPath resolves a document to its on-disk path and display name.
// Soft-deleted documents stay downloadable: the row and file persist after
// deletion.
func (s *DocumentService) DownloadPath(ctx context.Context, docID uint) (path, displayName string, err error) {
	var doc models.Document
	if err := s.db.WithContext(ctx).First(&doc, docID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", "", ErrNotFound
		}
		return "", "", err
	}
	p, err := s.store.Path(doc.Filepath)
	if err != nil {
		return "", "", err
	}
	return p, doc.Filename, nil
}
