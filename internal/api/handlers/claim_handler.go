package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"easybills/internal/dto"
	"easybills/internal/models"
	"easybills/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ClaimHandler struct {
	claimService *service.ClaimService
	logger       *zap.Logger
}

func NewClaimHandler(claimService *service.ClaimService, logger *zap.Logger) *ClaimHandler {
	return &ClaimHandler{
		claimService: claimService,
		logger:       logger,
	}
}

// CreateClaim godoc
// @Summary Submit a new expense claim
// @Description Create a claim, optionally with an attached receipt (multipart field "document")
// @Tags claims
// @Accept json
// @Accept multipart/form-data
// @Produce json
// @Param request body dto.CreateClaimRequest true "Claim fields"
// @Security Bearer
// @Success 201 {object} dto.ClaimResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/claims [post]
func (h *ClaimHandler) CreateClaim(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var req dto.CreateClaimRequest
	var upload *service.Upload
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		req = dto.CreateClaimRequest{
			Category:     c.FormValue("category"),
			Amount:       c.FormValue("amount"),
			Description:  c.FormValue("description"),
			DateIncurred: c.FormValue("date_incurred"),
			Status:       c.FormValue("status"),
		}
		if file, ferr := c.FormFile("document"); ferr == nil {
			if upload, err = readUpload(file); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Failed to read uploaded file",
				})
			}
		}
	} else if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	input, verr := buildCreateInput(req)
	if verr != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": verr})
	}

	claim, err := h.claimService.Create(c.Context(), userID, input, upload)
	if err != nil {
		return h.claimError(c, err, "Failed to create claim")
	}

	return c.Status(fiber.StatusCreated).JSON(dto.FromClaim(claim))
}

// ListMyClaims godoc
// @Summary List own claims
// @Description Get the caller's claims, newest first
// @Tags claims
// @Produce json
// @Security Bearer
// @Success 200 {array} dto.ClaimResponse
// @Failure 401 {object} map[string]string
// @Router /api/v1/claims [get]
func (h *ClaimHandler) ListMyClaims(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	claims, err := h.claimService.ListByOwner(c.Context(), userID)
	if err != nil {
		return h.claimError(c, err, "Failed to list claims")
	}

	return c.JSON(dto.FromClaims(claims))
}

// ListAllClaims godoc
// @Summary List every claim
// @Description Reviewer dashboard listing of all claims, newest first
// @Tags claims
// @Produce json
// @Security Bearer
// @Success 200 {array} dto.ClaimResponse
// @Failure 403 {object} map[string]string
// @Router /api/v1/claims/all [get]
func (h *ClaimHandler) ListAllClaims(c *fiber.Ctx) error {
	claims, err := h.claimService.ListAll(c.Context())
	if err != nil {
		return h.claimError(c, err, "Failed to list claims")
	}

	return c.JSON(dto.FromClaims(claims))
}

// GetClaim godoc
// @Summary Get one claim
// @Description Fetch a claim visible to its owner or a reviewer
// @Tags claims
// @Produce json
// @Param id path string true "Claim ID"
// @Security Bearer
// @Success 200 {object} dto.ClaimResponse
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/claims/{id} [get]
func (h *ClaimHandler) GetClaim(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}
	claimID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid claim ID",
		})
	}

	claim, err := h.claimService.Get(c.Context(), claimID, userID, models.Role(getRole(c)))
	if err != nil {
		return h.claimError(c, err, "Failed to fetch claim")
	}

	return c.JSON(dto.FromClaim(claim))
}

// UpdateStatus godoc
// @Summary Transition a claim's status
// @Description Reviewer-only status change; sends email and realtime updates as best-effort side effects
// @Tags claims
// @Accept json
// @Produce json
// @Param id path string true "Claim ID"
// @Param request body dto.UpdateStatusRequest true "Requested status label and notes"
// @Security Bearer
// @Success 200 {object} dto.ClaimResponse
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/v1/claims/{id}/status [put]
func (h *ClaimHandler) UpdateStatus(c *fiber.Ctx) error {
	claimID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid claim ID",
		})
	}

	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Status == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Status is required",
		})
	}

	claim, err := h.claimService.Transition(c.Context(), claimID, req.Status, models.Role(getRole(c)), req.Notes)
	if err != nil {
		return h.claimError(c, err, "Failed to update claim status")
	}

	return c.JSON(dto.FromClaim(claim))
}

// ResubmitClaim godoc
// @Summary Edit and resubmit a claim
// @Description Owner-only edit of a draft or referred-back claim; resets status to submitted
// @Tags claims
// @Accept json
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Claim ID"
// @Security Bearer
// @Success 200 {object} dto.ClaimResponse
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/claims/{id} [put]
func (h *ClaimHandler) ResubmitClaim(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}
	claimID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid claim ID",
		})
	}

	var req dto.ResubmitClaimRequest
	var upload *service.Upload
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		req = dto.ResubmitClaimRequest{
			Category:     c.FormValue("category"),
			Amount:       c.FormValue("amount"),
			Description:  c.FormValue("description"),
			DateIncurred: c.FormValue("date_incurred"),
		}
		if file, ferr := c.FormFile("document"); ferr == nil {
			if upload, err = readUpload(file); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Failed to read uploaded file",
				})
			}
		}
	} else if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	input, verr := buildResubmitInput(req)
	if verr != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": verr})
	}

	claim, err := h.claimService.Resubmit(c.Context(), claimID, userID, input, upload)
	if err != nil {
		return h.claimError(c, err, "Failed to resubmit claim")
	}

	return c.JSON(dto.FromClaim(claim))
}

// AttachDocument godoc
// @Summary Attach a receipt to a claim
// @Description Owner-only multipart upload (field "document"); appends metadata and an audit entry
// @Tags claims
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Claim ID"
// @Param document formData file true "Receipt file"
// @Security Bearer
// @Success 200 {object} dto.ClaimResponse
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/claims/{id}/documents [post]
func (h *ClaimHandler) AttachDocument(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}
	claimID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid claim ID",
		})
	}

	file, err := c.FormFile("document")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "File is required",
		})
	}
	upload, err := readUpload(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to read uploaded file",
		})
	}

	claim, err := h.claimService.AttachDocument(c.Context(), claimID, userID, *upload)
	if err != nil {
		return h.claimError(c, err, "Failed to attach document")
	}

	return c.JSON(dto.FromClaim(claim))
}

// ListDocuments godoc
// @Summary List a claim's documents
// @Tags claims
// @Produce json
// @Param id path string true "Claim ID"
// @Security Bearer
// @Success 200 {array} dto.DocumentResponse
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/claims/{id}/documents [get]
func (h *ClaimHandler) ListDocuments(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}
	claimID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid claim ID",
		})
	}

	claim, err := h.claimService.Get(c.Context(), claimID, userID, models.Role(getRole(c)))
	if err != nil {
		return h.claimError(c, err, "Failed to fetch claim")
	}

	return c.JSON(dto.FromClaim(claim).Documents)
}

// claimError maps service errors to HTTP responses.
func (h *ClaimHandler) claimError(c *fiber.Ctx, err error, logMsg string) error {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ve.Error()})
	case errors.Is(err, service.ErrClaimNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Claim not found"})
	case errors.Is(err, service.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	case errors.Is(err, service.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, service.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Claim was modified concurrently, please retry"})
	default:
		h.logger.Error(logMsg, zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": logMsg})
	}
}

func buildCreateInput(req dto.CreateClaimRequest) (service.CreateClaimInput, string) {
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return service.CreateClaimInput{}, "Invalid amount"
	}
	date, err := parseDate(req.DateIncurred)
	if err != nil {
		return service.CreateClaimInput{}, "Invalid date_incurred, expected YYYY-MM-DD"
	}
	return service.CreateClaimInput{
		Category:     req.Category,
		Amount:       amount,
		Description:  req.Description,
		DateIncurred: date,
		Status:       req.Status,
	}, ""
}

func buildResubmitInput(req dto.ResubmitClaimRequest) (service.ResubmitInput, string) {
	input := service.ResubmitInput{
		Category:    req.Category,
		Description: req.Description,
	}
	if req.Amount != "" {
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			return service.ResubmitInput{}, "Invalid amount"
		}
		input.Amount = &amount
	}
	if req.DateIncurred != "" {
		date, err := parseDate(req.DateIncurred)
		if err != nil {
			return service.ResubmitInput{}, "Invalid date_incurred, expected YYYY-MM-DD"
		}
		input.DateIncurred = date
	}
	return input, ""
}

func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}

func readUpload(file *multipart.FileHeader) (*service.Upload, error) {
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &service.Upload{
		FileName: file.Filename,
		MIMEType: contentType,
		Data:     data,
	}, nil
}

func getUserID(c *fiber.Ctx) (uuid.UUID, error) {
	userIDStr, ok := c.Locals("userID").(string)
	if !ok {
		return uuid.Nil, fiber.ErrUnauthorized
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, err
	}

	return userID, nil
}

func getRole(c *fiber.Ctx) string {
	role, _ := c.Locals("role").(string)
	return role
}
