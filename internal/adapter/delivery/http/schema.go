package http

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shorturls/internal/entity"
)

const (
	statusError   = "error"
	statusHealthy = "healthy"
)

// shortenRequest represents the structure for a request to shorten a URL.
// Validity is in minutes.
type shortenRequest struct {
	URL       string  `json:"url" validate:"required,url"`
	Validity  *int    `json:"validity" validate:"omitempty,min=1,max=525600"`
	ShortCode *string `json:"shortcode" validate:"omitempty,shortcode"`
}

func (req *shortenRequest) validity() time.Duration {
	if req.Validity == nil {
		return 0
	}
	return time.Duration(*req.Validity) * time.Minute
}

func (req *shortenRequest) shortCode() string {
	if req.ShortCode == nil {
		return ""
	}
	return *req.ShortCode
}

// shortenResponse represents the structure for a response to a successful shortening.
type shortenResponse struct {
	ShortLink string    `json:"shortlink"`
	Expiry    time.Time `json:"expiry"`
}

// clickResponse represents a single recorded redirect.
type clickResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Referrer  string    `json:"referrer,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	Location  string    `json:"location"`
}

// urlStatsResponse represents the structure for a response containing URL statistics.
type urlStatsResponse struct {
	ShortCode   string          `json:"shortcode"`
	OriginalURL string          `json:"originalUrl"`
	ShortLink   string          `json:"shortlink"`
	CreatedAt   time.Time       `json:"createdAt"`
	Expiry      time.Time       `json:"expiry"`
	ClickCount  int             `json:"clickCount"`
	Clicks      []clickResponse `json:"clicks"`
}

// toURLStatsResponse converts an entity.URL to a urlStatsResponse.
func toURLStatsResponse(url *entity.URL, shortLink string) urlStatsResponse {
	clicks := make([]clickResponse, 0, len(url.Clicks))
	for _, c := range url.Clicks {
		clicks = append(clicks, clickResponse{
			Timestamp: c.Timestamp.UTC(),
			Referrer:  c.Referrer,
			UserAgent: c.UserAgent,
			Location:  c.Location,
		})
	}

	return urlStatsResponse{
		ShortCode:   url.ShortCode,
		OriginalURL: url.OriginalURL,
		ShortLink:   shortLink,
		CreatedAt:   url.CreatedAt.UTC(),
		Expiry:      url.ExpiresAt.UTC(),
		ClickCount:  len(url.Clicks),
		Clicks:      clicks,
	}
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// validationError represents an individual validation error.
type validationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// errorResponse represents a structured error response.
type errorResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Errors  []validationError `json:"errors,omitempty"`
}

// Predefined error responses for common scenarios.
var (
	emptyRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "empty request body",
	}

	invalidRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "invalid request body",
	}

	urlNotFoundResponse = errorResponse{
		Status:  statusError,
		Message: "short url does not exist or has expired",
	}

	shortCodeExistsResponse = errorResponse{
		Status:  statusError,
		Message: "short code is already in use",
	}

	routeNotFoundResponse = errorResponse{
		Status:  statusError,
		Message: "route not found",
	}

	methodNotAllowedResponse = errorResponse{
		Status:  statusError,
		Message: "method not allowed",
	}

	serverErrorResponse = errorResponse{
		Status:  statusError,
		Message: "server error occurred",
	}
)

// messageForTag returns a user-friendly message based on the validation tag.
func messageForTag(tag string) string {
	switch tag {
	case "required":
		return "this field is required"
	case "url":
		return "invalid url"
	case "min", "max":
		return "validity must be between 1 and 525600 minutes"
	case "shortcode":
		return "shortcode must be 3-20 alphanumeric characters"
	default:
		return "invalid value"
	}
}

// getValidationErrors processes validation errors and returns a list of validationError.
func getValidationErrors(err error) []validationError {
	var validationErrs []validationError

	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		for _, e := range errs {
			validationErrs = append(validationErrs, validationError{
				Field:   e.Field(),
				Message: messageForTag(e.Tag()),
			})
		}
	}

	return validationErrs
}

// validationErrorResponse constructs an errorResponse for validation errors.
func validationErrorResponse(err error) errorResponse {
	return errorResponse{
		Status:  statusError,
		Message: "validation error",
		Errors:  getValidationErrors(err),
	}
}
