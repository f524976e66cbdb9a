package handlers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/safe2go/support-import/internal/api/dto"
	"github.com/safe2go/support-import/internal/auth"
	"github.com/safe2go/support-import/internal/domain"
	"github.com/safe2go/support-import/internal/extraction"
	apperrors "github.com/safe2go/support-import/pkg/util/errorutil"
)

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".bmp":  {},
	".webp": {},
}

// ImportService is what the import endpoints need from the service layer.
type ImportService interface {
	Preview(op domain.Operator, text string) ([]extraction.Candidate, error)
	ImportText(ctx context.Context, op domain.Operator, text string) (*domain.ImportSummary, error)
	ImportImage(ctx context.Context, op domain.Operator, fileName string, image []byte) (*domain.ImportSummary, error)
	ImportJSON(ctx context.Context, op domain.Operator, fileName string, r io.Reader) (*domain.ImportSummary, error)
	Summary(ctx context.Context, id string) (*domain.ImportSummary, error)
	TicketTrail(ctx context.Context, externalID string) (*domain.TicketTrail, error)
}

// ImportHandler exposes ticket import endpoints.
type ImportHandler struct {
	service       ImportService
	maxImageBytes int64
}

// NewImportHandler constructs handler.
func NewImportHandler(importService ImportService, maxImageBytes int) *ImportHandler {
	return &ImportHandler{service: importService, maxImageBytes: int64(maxImageBytes)}
}

// Extract POST /api/extract.
func (h *ImportHandler) Extract(c *fiber.Ctx) error {
	op, err := operator(c)
	if err != nil {
		return err
	}
	text, err := parseText(c)
	if err != nil {
		return err
	}
	candidates, err := h.service.Preview(*op, text)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ExtractResponse{Found: len(candidates), Candidates: candidates}})
}

// ImportText POST /api/imports/text.
func (h *ImportHandler) ImportText(c *fiber.Ctx) error {
	op, err := operator(c)
	if err != nil {
		return err
	}
	text, err := parseText(c)
	if err != nil {
		return err
	}
	summary, err := h.service.ImportText(c.UserContext(), *op, text)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": summary})
}

// ImportImage POST /api/imports/ocr.
func (h *ImportHandler) ImportImage(c *fiber.Ctx) error {
	op, err := operator(c)
	if err != nil {
		return err
	}
	header, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("multipart field \"file\" is required", nil)
	}
	if !isImage(header) {
		return apperrors.NewUnsupportedMedia("file must be an image", map[string]any{
			"file":    header.Filename,
			"allowed": "jpg, jpeg, png, gif, bmp, webp",
		})
	}
	if h.maxImageBytes > 0 && header.Size > h.maxImageBytes {
		return apperrors.NewValidationError("image is too large", map[string]any{
			"file":      header.Filename,
			"max_bytes": h.maxImageBytes,
		})
	}
	image, err := readFormFile(header)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	summary, err := h.service.ImportImage(c.UserContext(), *op, header.Filename, image)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": summary})
}

// ImportJSON POST /api/imports/json. Accepts a multipart "file" or the raw
// backup as the request body.
func (h *ImportHandler) ImportJSON(c *fiber.Ctx) error {
	op, err := operator(c)
	if err != nil {
		return err
	}

	var (
		fileName string
		payload  []byte
	)
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		header, err := c.FormFile("file")
		if err != nil {
			return apperrors.NewValidationError("multipart field \"file\" is required", nil)
		}
		if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != "" && ext != ".json" {
			return apperrors.NewUnsupportedMedia("file must be a JSON backup", map[string]any{"file": header.Filename})
		}
		if payload, err = readFormFile(header); err != nil {
			return apperrors.NewInternalError(err)
		}
		fileName = header.Filename
	} else {
		payload = c.Body()
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return apperrors.NewValidationError("backup payload is empty", nil)
	}

	summary, err := h.service.ImportJSON(c.UserContext(), *op, fileName, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": summary})
}

// GetImport GET /api/imports/:id.
func (h *ImportHandler) GetImport(c *fiber.Ctx) error {
	summary, err := h.service.Summary(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}

// GetTicketTrail GET /api/tickets/:external_id/history.
func (h *ImportHandler) GetTicketTrail(c *fiber.Ctx) error {
	trail, err := h.service.TicketTrail(c.UserContext(), c.Params("external_id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketTrailResponse(trail)})
}

func operator(c *fiber.Ctx) (*domain.Operator, error) {
	op, ok := auth.OperatorFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("operator required")
	}
	return op, nil
}

func parseText(c *fiber.Ctx) (string, error) {
	var req dto.TextImportRequest
	if err := c.BodyParser(&req); err != nil {
		return "", apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Text) == "" {
		return "", apperrors.NewValidationError("text required", nil)
	}
	return req.Text, nil
}

func isImage(header *multipart.FileHeader) bool {
	if _, ok := imageExtensions[strings.ToLower(filepath.Ext(header.Filename))]; ok {
		return true
	}
	return strings.HasPrefix(header.Header.Get(fiber.HeaderContentType), "image/")
}

func readFormFile(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
