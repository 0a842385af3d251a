// Package backend is the typed client for the workshop backend's onboarding, catalog and
// permission endpoints.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/google/uuid"

	"workshop-onboarding/internal/common/errors"
	apihttp "workshop-onboarding/internal/common/http"
	"workshop-onboarding/internal/common/logger"
	"workshop-onboarding/internal/common/metrics"
	"workshop-onboarding/internal/common/observability"
	"workshop-onboarding/internal/common/validation"
	"workshop-onboarding/internal/models"
)

const (
	StatusPath      = "/api/v1/workshops/onboarding/status"
	DraftPath       = "/api/v1/workshops/onboarding/draft"
	CompletePath    = "/api/v1/workshops/onboarding/complete"
	CategoriesPath  = "/api/v1/services/categories"
	ServicesPath    = "/api/v1/services"
	PermissionsPath = "/api/v1/auth/me/permissions"
	WorkshopsPath   = "/api/v1/workshops"

	serviceName = "workshop-backend"
)

// CompletionRequest is the final submission. Attachments with bytes are uploaded as files.
type CompletionRequest struct {
	Payload models.DraftPayload
	Logo    *models.Attachment
	Photos  []models.Attachment
}

func (r CompletionRequest) hasFiles() bool {
	if r.Logo != nil && r.Logo.HasData() {
		return true
	}
	for _, p := range r.Photos {
		if p.HasData() {
			return true
		}
	}
	return false
}

type Client struct {
	http   *apihttp.Client
	obs    *observability.Observability
	logger logger.Logger
}

func NewClient(httpClient *apihttp.Client, obs *observability.Observability, log logger.Logger) *Client {
	if obs == nil {
		obs = observability.NewNoop()
	}
	return &Client{
		http:   httpClient,
		obs:    obs,
		logger: logger.ForComponent(log, "backend-client"),
	}
}

// GetOnboardingStatus fetches the remote status. The body is schema-checked before decoding.
func (c *Client) GetOnboardingStatus(ctx context.Context) (*models.OnboardingStatus, error) {
	var status *models.OnboardingStatus
	err := c.observe(ctx, "get-status", func(ctx context.Context) error {
		body, err := c.http.Send(ctx, apihttp.Request{Method: http.MethodGet, Path: StatusPath})
		if err != nil {
			return err
		}
		status, err = decodeStatus(body)
		return err
	})
	return status, err
}

// SaveDraft replaces the remote draft with payload. The same idempotency key may be reused
// when retrying one logical save.
func (c *Client) SaveDraft(ctx context.Context, payload models.DraftPayload, idempotencyKey string) (*models.OnboardingStatus, error) {
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}
	var status *models.OnboardingStatus
	err := c.observe(ctx, "save-draft", func(ctx context.Context) error {
		body, err := c.sendJSON(ctx, http.MethodPut, DraftPath, payload, map[string]string{
			apihttp.HeaderIdempotencyKey: idempotencyKey,
		})
		if err != nil {
			return err
		}
		status = decodeOptionalStatus(body)
		return nil
	})
	return status, err
}

// Complete submits the final onboarding. Without local attachment bytes the body is plain
// JSON; otherwise a multipart form with a "payload" JSON part plus "logo" and "photos" files.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (*models.OnboardingStatus, error) {
	var status *models.OnboardingStatus
	err := c.observe(ctx, "complete", func(ctx context.Context) error {
		var (
			body []byte
			err  error
		)
		if req.hasFiles() {
			if err := validatePayload(req.Payload); err != nil {
				return err
			}
			var form []byte
			var contentType string
			form, contentType, err = encodeMultipart(req)
			if err != nil {
				return errors.NewInvalidRequestError(err.Error())
			}
			body, err = c.http.Send(ctx, apihttp.Request{
				Method:      http.MethodPost,
				Path:        CompletePath,
				Body:        form,
				ContentType: contentType,
			})
		} else {
			body, err = c.sendJSON(ctx, http.MethodPost, CompletePath, req.Payload, nil)
		}
		if err != nil {
			return err
		}
		status = decodeOptionalStatus(body)
		return nil
	})
	return status, err
}

func (c *Client) ListCategories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	err := c.observe(ctx, "list-categories", func(ctx context.Context) error {
		return c.http.DoJSON(ctx, http.MethodGet, CategoriesPath, nil, &out, nil)
	})
	if out == nil {
		out = []models.Category{}
	}
	return out, err
}

func (c *Client) ListServices(ctx context.Context) ([]models.Service, error) {
	var out []models.Service
	err := c.observe(ctx, "list-services", func(ctx context.Context) error {
		return c.http.DoJSON(ctx, http.MethodGet, ServicesPath, nil, &out, nil)
	})
	if out == nil {
		out = []models.Service{}
	}
	return out, err
}

func (c *Client) GetPermissions(ctx context.Context) (*models.UserPermissions, error) {
	var out models.UserPermissions
	err := c.observe(ctx, "get-permissions", func(ctx context.Context) error {
		return c.http.DoJSON(ctx, http.MethodGet, PermissionsPath, nil, &out, nil)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetWorkshop returns the profile of the logged-in operator's workshop.
func (c *Client) GetWorkshop(ctx context.Context) (*models.Workshop, error) {
	var out models.Workshop
	err := c.observe(ctx, "get-workshop", func(ctx context.Context) error {
		return c.http.DoJSON(ctx, http.MethodGet, WorkshopsPath, nil, &out, nil)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateWorkshop replaces name, address and phone number of workshop id. A request with an
// empty field is refused before anything is sent.
func (c *Client) UpdateWorkshop(ctx context.Context, id int64, req models.UpdateWorkshopRequest) (*models.Workshop, error) {
	req = req.Normalize()
	if fields := req.Validate(); len(fields) > 0 {
		return nil, errors.NewFormValidationError("Please fix the highlighted fields", fields)
	}
	var out models.Workshop
	err := c.observe(ctx, "update-workshop", func(ctx context.Context) error {
		return c.http.DoJSON(ctx, http.MethodPut, fmt.Sprintf("%s/%d", WorkshopsPath, id), req, &out, nil)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) sendJSON(ctx context.Context, method, path string, payload models.DraftPayload, headers map[string]string) ([]byte, error) {
	if err := validatePayload(payload); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.NewInvalidRequestError(err.Error())
	}
	return c.http.Send(ctx, apihttp.Request{
		Method:      method,
		Path:        path,
		Body:        raw,
		ContentType: "application/json",
		Headers:     headers,
	})
}

func (c *Client) observe(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	ctx, span := c.obs.StartSpan(ctx, "backend."+operation)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	outcome := metrics.Outcome(err)
	metrics.BackendCalls.WithLabelValues(operation, outcome).Inc()
	metrics.BackendCallDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
	c.obs.RecordOperation(ctx, operation, outcome, elapsed)

	if err != nil {
		span.RecordError(err)
		c.logger.Debug("backend operation failed", map[string]interface{}{
			"operation": operation,
			"error":     err,
		})
	}
	return err
}

// validatePayload refuses a payload the backend would reject. The failing fields are kept in
// the error metadata under "fields".
func validatePayload(payload models.DraftPayload) error {
	schema := validation.DraftPayloadSchema
	result := schema.ValidateValue(payload)
	if err := result.Err(schema.Name()); err != nil {
		return errors.NewInvalidRequestError(err.Error()).WithMetadata("fields", result.Fields())
	}
	return nil
}

func decodeStatus(body []byte) (*models.OnboardingStatus, error) {
	if err := validation.OnboardingStatusSchema.ValidateBytes(body).Err(validation.OnboardingStatusSchema.Name()); err != nil {
		return nil, errors.NewInvalidResponseError(serviceName, err)
	}
	var status models.OnboardingStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, errors.NewInvalidResponseError(serviceName, err)
	}
	return &status, nil
}

// decodeOptionalStatus reads the status echoed by the draft and complete endpoints. The write
// already succeeded at this point, so an empty or unrecognised body yields a nil status.
func decodeOptionalStatus(body []byte) *models.OnboardingStatus {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	status, err := decodeStatus(body)
	if err != nil {
		return nil
	}
	return status
}

func encodeMultipart(req CompletionRequest) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	payload, err := json.Marshal(req.Payload)
	if err != nil {
		return nil, "", err
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="payload"`)
	header.Set("Content-Type", "application/json")
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(payload); err != nil {
		return nil, "", err
	}

	if req.Logo != nil && req.Logo.HasData() {
		if err := writeFile(w, "logo", *req.Logo); err != nil {
			return nil, "", err
		}
	}
	for _, photo := range req.Photos {
		if !photo.HasData() {
			continue
		}
		if err := writeFile(w, "photos", photo); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func writeFile(w *multipart.Writer, field string, a models.Attachment) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, a.Filename))
	contentType := a.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = part.Write(a.Data)
	return err
}
