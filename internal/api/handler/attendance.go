package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
	"github.com/saturnino-fabrica-de-software/presenca/internal/service"
)

const (
	maxImageSize = 10 * 1024 * 1024 // 10MB
)

var validImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// AttendanceService interface for the service
type AttendanceService interface {
	Register(ctx context.Context, id, name string, descriptors []domain.Descriptor) (*domain.Identity, error)
	Recognize(ctx context.Context, image []byte) (*domain.RecognitionResult, error)
	ListUsers(ctx context.Context, today string) (*service.UsersReport, error)
	ResetAttendance(ctx context.Context) error
	ResetDate(ctx context.Context, date string) (int, error)
	ResetAllData(ctx context.Context) error
}

// AttendanceHandler handles enrollment, recognition and ledger requests
type AttendanceHandler struct {
	service AttendanceService
	logger  *slog.Logger
}

// NewAttendanceHandler creates a new AttendanceHandler instance
func NewAttendanceHandler(service AttendanceService, logger *slog.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterResponse response for register endpoint
type RegisterResponse struct {
	Message  string `json:"message"`
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
}

// RecognizeResponse response for recognize endpoint. Distance is a
// pointer so an exact match (distance 0) still serializes the field.
type RecognizeResponse struct {
	Recognized      bool     `json:"recognized"`
	Message         string   `json:"message"`
	UserID          string   `json:"user_id,omitempty"`
	UserName        string   `json:"user_name,omitempty"`
	Distance        *float64 `json:"distance,omitempty"`
	AttendanceDates []string `json:"attendance_dates,omitempty"`
}

// MessageResponse is a plain confirmation message
type MessageResponse struct {
	Message string `json:"message"`
}

// ResetDateResponse response for the daily reset endpoint
type ResetDateResponse struct {
	Message      string `json:"message"`
	ClearedCount int    `json:"cleared_count"`
}

// Register POST /register_face - enroll a new identity
func (h *AttendanceHandler) Register(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.FormValue("id"))
	name := strings.TrimSpace(c.FormValue("name"))
	descriptorsJSON := c.FormValue("descriptors")

	if id == "" || name == "" || descriptorsJSON == "" {
		return domain.ErrInvalidInput.WithError(errors.New("missing id, name or descriptors"))
	}

	var descriptors []domain.Descriptor
	if err := json.Unmarshal([]byte(descriptorsJSON), &descriptors); err != nil {
		return domain.ErrInvalidInput.WithError(fmt.Errorf("decode descriptors: %w", err))
	}

	identity, err := h.service.Register(c.Context(), id, name, descriptors)
	if err != nil {
		return err
	}

	return c.JSON(RegisterResponse{
		Message:  "User registered successfully",
		UserID:   identity.ID,
		UserName: identity.Name,
	})
}

// Recognize POST /recognize_face - match a probe image and mark attendance
func (h *AttendanceHandler) Recognize(c *fiber.Ctx) error {
	imageBytes, err := extractAndValidateImage(c)
	if err != nil {
		return fmt.Errorf("recognize face: %w", err)
	}

	result, err := h.service.Recognize(c.Context(), imageBytes)
	if err != nil {
		return err
	}

	resp := RecognizeResponse{
		Recognized:      result.Recognized,
		Message:         result.Message,
		UserID:          result.ID,
		UserName:        result.Name,
		AttendanceDates: result.AttendanceDates,
	}
	if result.Recognized {
		resp.Distance = &result.Distance
	}
	return c.JSON(resp)
}

// ListUsers GET /users_data - list identities plus the daily summary
func (h *AttendanceHandler) ListUsers(c *fiber.Ctx) error {
	report, err := h.service.ListUsers(c.Context(), c.Query("date"))
	if err != nil {
		return err
	}
	return c.JSON(report)
}

// ResetAttendance POST /reset_attendance - clear the whole ledger
func (h *AttendanceHandler) ResetAttendance(c *fiber.Ctx) error {
	if err := h.service.ResetAttendance(c.Context()); err != nil {
		return err
	}
	return c.JSON(MessageResponse{
		Message: "All attendance records have been reset successfully.",
	})
}

// ResetDailyAttendance POST /reset_daily_attendance - clear one date
func (h *AttendanceHandler) ResetDailyAttendance(c *fiber.Ctx) error {
	var req struct {
		Date string `json:"date"`
	}
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrInvalidInput.WithError(err)
	}
	if req.Date == "" {
		return domain.ErrInvalidInput.WithError(errors.New("missing date parameter"))
	}

	cleared, err := h.service.ResetDate(c.Context(), req.Date)
	if err != nil {
		return err
	}

	return c.JSON(ResetDateResponse{
		Message:      fmt.Sprintf("Attendance for %s has been reset for %d users.", req.Date, cleared),
		ClearedCount: cleared,
	})
}

// ResetAllData POST /reset_all_data - wipe identities and attendance
func (h *AttendanceHandler) ResetAllData(c *fiber.Ctx) error {
	if err := h.service.ResetAllData(c.Context()); err != nil {
		return err
	}
	return c.JSON(MessageResponse{
		Message: "All registered users and attendance records have been reset successfully.",
	})
}

// extractAndValidateImage extracts and validates the image from the form
func extractAndValidateImage(c *fiber.Ctx) ([]byte, error) {
	file, err := c.FormFile("image")
	if err != nil {
		return nil, domain.ErrInvalidInput.WithError(errors.New("no image file provided"))
	}

	if file.Size > maxImageSize {
		return nil, domain.ErrInvalidImage.WithError(nil)
	}

	if file.Size == 0 {
		return nil, domain.ErrInvalidImage.WithError(nil)
	}

	contentType := file.Header.Get("Content-Type")
	if !validImageTypes[contentType] {
		return nil, domain.ErrInvalidImage.WithError(nil)
	}

	f, err := file.Open()
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	defer func() {
		_ = f.Close()
	}()

	imageBytes, err := io.ReadAll(f)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}

	return imageBytes, nil
}
