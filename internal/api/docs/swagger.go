package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// RegisterResponse represents the response for a successful registration
type RegisterResponse struct {
	Message  string `json:"message" example:"User registered successfully"`
	UserID   string `json:"user_id" example:"S1"`
	UserName string `json:"user_name" example:"Alice"`
}

// RecognizeResponse represents the response for a recognition attempt
type RecognizeResponse struct {
	Recognized      bool     `json:"recognized" example:"true"`
	Message         string   `json:"message" example:"Attendance recorded"`
	UserID          string   `json:"user_id,omitempty" example:"S1"`
	UserName        string   `json:"user_name,omitempty" example:"Alice"`
	Distance        float64  `json:"distance" example:"0.32"`
	AttendanceDates []string `json:"attendance_dates,omitempty" example:"2025-02-10,2025-02-11"`
}

// UserData represents one enrolled identity in the listing
type UserData struct {
	ID              string   `json:"id" example:"S1"`
	Name            string   `json:"name" example:"Alice"`
	RegisteredAt    string   `json:"registration_date" example:"2025-02-10T09:00:00Z"`
	DescriptorCount int      `json:"descriptor_count" example:"2"`
	AttendanceCount int      `json:"attendance_count" example:"12"`
	AttendanceDates []string `json:"attendance_dates"`
}

// DailySummaryData represents the present/absent partition for a date
type DailySummaryData struct {
	TotalRegistered int      `json:"total_registered" example:"30"`
	PresentCount    int      `json:"present_count" example:"25"`
	AbsentCount     int      `json:"absent_count" example:"5"`
	PresentNames    []string `json:"present_names"`
	AbsentNames     []string `json:"absent_names"`
	PresentIDs      []string `json:"present_today_ids"`
}

// UsersDataResponse represents the full users listing
type UsersDataResponse struct {
	Users        []UserData       `json:"users"`
	DailySummary DailySummaryData `json:"daily_summary"`
}

// MessageResponse represents a plain confirmation
type MessageResponse struct {
	Message string `json:"message" example:"All attendance records have been reset successfully."`
}

// ResetDateResponse represents the daily reset confirmation
type ResetDateResponse struct {
	Message      string `json:"message" example:"Attendance for 2025-02-10 has been reset for 3 users."`
	ClearedCount int    `json:"cleared_count" example:"3"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"INVALID_INPUT"`
	Message string `json:"message" example:"Invalid request"`
}

func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Presenca Attendance API",
		Version:     "v1.0.0",
		Description: "Face-recognition attendance service: one-shot enrollment, nearest-neighbor recognition and a once-per-day attendance ledger",
		Host:        "localhost:3000",
		Path:        "/",
	})

	endpoints := []*endpoint.EndPoint{
		// POST /register_face - Enroll identity
		endpoint.New(
			endpoint.POST,
			"/register_face",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("Register a new identity"),
			endpoint.WithDescription("Enrolls an identity with one or more 128-component descriptors. Registration is one-shot: re-registering an id is always rejected."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(RegisterResponse{}, "200", "User registered successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "INVALID_INPUT", Message: "Invalid request"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "DUPLICATE_IDENTITY", Message: "Identity already registered"}, "409", "Conflict"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
		),

		// POST /recognize_face - Recognize and mark attendance
		endpoint.New(
			endpoint.POST,
			"/recognize_face",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("Recognize a face and mark today's attendance"),
			endpoint.WithDescription("Extracts a descriptor from the uploaded image and matches it against enrolled identities. No-face, empty-registry and above-tolerance cases are 200 responses with recognized:false."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(RecognizeResponse{}, "200", "Recognition completed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "INVALID_INPUT", Message: "No image file provided"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
		),

		// GET /users_data - List users and daily summary
		endpoint.New(
			endpoint.GET,
			"/users_data",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("List enrolled identities with the daily summary"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("date", parameter.Query, parameter.WithDescription("Summary date (YYYY-MM-DD, default: today)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(UsersDataResponse{}, "200", "Listing retrieved successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "INVALID_INPUT", Message: "Malformed date"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
		),

		// POST /reset_attendance - Clear the whole ledger
		endpoint.New(
			endpoint.POST,
			"/reset_attendance",
			endpoint.WithTags("Reset"),
			endpoint.WithSummary("Reset all attendance records"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(MessageResponse{}, "200", "Ledger cleared"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
		),

		// POST /reset_daily_attendance - Clear one date across all identities
		endpoint.New(
			endpoint.POST,
			"/reset_daily_attendance",
			endpoint.WithTags("Reset"),
			endpoint.WithSummary("Reset attendance for a single date"),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ResetDateResponse{}, "200", "Date cleared"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "INVALID_INPUT", Message: "Missing date parameter"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
		),

		// POST /reset_all_data - Wipe identities and attendance
		endpoint.New(
			endpoint.POST,
			"/reset_all_data",
			endpoint.WithTags("Reset"),
			endpoint.WithSummary("Reset all registered users and attendance"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(MessageResponse{}, "200", "All data cleared"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
