package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apperrors "wbbcli/internal/errors"
)

// DefaultMaxBodySize bounds JSON request bodies
const DefaultMaxBodySize = 1 << 20

// RequestValidator decodes JSON bodies and validates them with struct tags
type RequestValidator struct {
	validator   *validator.Validate
	logger      *slog.Logger
	maxBodySize int64
}

// NewRequestValidator creates a validator that reports fields by their JSON
// names
func NewRequestValidator(logger *slog.Logger) *RequestValidator {
	v := validator.New()
	v.RegisterValidation("rundir", isRunDir)
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &RequestValidator{
		validator:   v,
		logger:      logger.With(slog.String("component", "request_validator")),
		maxBodySize: DefaultMaxBodySize,
	}
}

// Decode reads the JSON body of r into dst and validates it. The returned
// error is always an *apperrors.APIError.
func (rv *RequestValidator) Decode(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return apperrors.NewValidationError("request body is required")
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, rv.maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		rv.logger.DebugContext(r.Context(), "invalid request body",
			slog.String("error", err.Error()),
			slog.String("request_id", GetRequestID(r.Context())))
		if errors.Is(err, io.EOF) {
			return apperrors.NewValidationError("request body is required")
		}
		return apperrors.InvalidRequestWithError(err)
	}

	return rv.ValidateStruct(dst)
}

// ValidateStruct validates v and converts failures to a 400 APIError listing
// each field
func (rv *RequestValidator) ValidateStruct(v interface{}) error {
	err := rv.validator.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError(err.Error())
	}

	details := make([]apperrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, apperrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apperrors.NewValidationErrors(details)
}

// ContentTypeValidator ensures requests with a body declare an allowed type
func ContentTypeValidator(contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodDelete || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			for _, allowed := range contentTypes {
				if strings.HasPrefix(contentType, allowed) {
					next.ServeHTTP(w, r)
					return
				}
			}

			render.Render(w, r, apperrors.NewWithDetails(
				http.StatusUnsupportedMediaType,
				"UNSUPPORTED_MEDIA_TYPE",
				"Unsupported content type",
				map[string]interface{}{
					"content_type": contentType,
					"allowed":      contentTypes,
				},
			))
		})
	}
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "nefield":
		return fmt.Sprintf("%s must differ from %s", field, param)
	case "rundir":
		return fmt.Sprintf("%s must be a non-empty path", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

// isRunDir accepts non-empty paths without NUL bytes
func isRunDir(fl validator.FieldLevel) bool {
	path := fl.Field().String()
	return strings.TrimSpace(path) != "" && !strings.ContainsRune(path, 0)
}
