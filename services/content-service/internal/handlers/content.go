package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/mimb-immigration/platform/services/content-service/internal/storage"
)

type Store interface {
	ListServices(ctx context.Context, includeInactive bool) ([]storage.Service, error)
	UpsertService(ctx context.Context, s storage.Service) (storage.Service, error)
	ListTestimonials(ctx context.Context, includeInactive bool) ([]storage.Testimonial, error)
	UpsertTestimonial(ctx context.Context, t storage.Testimonial) (storage.Testimonial, error)
	ListFAQ(ctx context.Context, includeInactive bool) ([]storage.FAQEntry, error)
	UpsertFAQ(ctx context.Context, f storage.FAQEntry) (storage.FAQEntry, error)
	ListSiteContent(ctx context.Context) ([]storage.SiteContent, error)
	UpsertSiteContent(ctx context.Context, c storage.SiteContent) (storage.SiteContent, error)
	ListSiteImages(ctx context.Context) ([]storage.SiteImage, error)
	UpsertSiteImage(ctx context.Context, img storage.SiteImage) (storage.SiteImage, error)
	CreateContactSubmission(ctx context.Context, c storage.ContactSubmission) (storage.ContactSubmission, error)
	ListContactSubmissions(ctx context.Context, limit int) ([]storage.ContactSubmission, error)
	UpdateContactStatus(ctx context.Context, id, status string) (storage.ContactSubmission, error)
}

type ContentHandler struct {
	store  Store
	logger *slog.Logger
}

func NewContentHandler(store Store, logger *slog.Logger) *ContentHandler {
	return &ContentHandler{store: store, logger: logger}
}

// Public read endpoints. Admin variants include inactive rows.

func (h *ContentHandler) Services(w http.ResponseWriter, r *http.Request) {
	listOrUpsert(h, w, r,
		func(ctx context.Context, admin bool) (any, error) {
			items, err := h.store.ListServices(ctx, admin)
			return emptyIfNil(items), err
		},
		func(ctx context.Context, body []byte) (any, error) {
			var s storage.Service
			if err := json.Unmarshal(body, &s); err != nil {
				return nil, errBadJSON
			}
			if strings.TrimSpace(s.TitleFr) == "" || strings.TrimSpace(s.TitleEn) == "" {
				return nil, errValidation("title_fr and title_en are required")
			}
			return h.store.UpsertService(ctx, s)
		})
}

func (h *ContentHandler) Testimonials(w http.ResponseWriter, r *http.Request) {
	listOrUpsert(h, w, r,
		func(ctx context.Context, admin bool) (any, error) {
			items, err := h.store.ListTestimonials(ctx, admin)
			return emptyIfNil(items), err
		},
		func(ctx context.Context, body []byte) (any, error) {
			var t storage.Testimonial
			if err := json.Unmarshal(body, &t); err != nil {
				return nil, errBadJSON
			}
			if strings.TrimSpace(t.Name) == "" || strings.TrimSpace(t.ContentFr) == "" {
				return nil, errValidation("name and content_fr are required")
			}
			if t.Rating < 0 || t.Rating > 5 {
				return nil, errValidation("rating must be between 0 and 5")
			}
			return h.store.UpsertTestimonial(ctx, t)
		})
}

func (h *ContentHandler) FAQ(w http.ResponseWriter, r *http.Request) {
	listOrUpsert(h, w, r,
		func(ctx context.Context, admin bool) (any, error) {
			items, err := h.store.ListFAQ(ctx, admin)
			return emptyIfNil(items), err
		},
		func(ctx context.Context, body []byte) (any, error) {
			var f storage.FAQEntry
			if err := json.Unmarshal(body, &f); err != nil {
				return nil, errBadJSON
			}
			if strings.TrimSpace(f.QuestionFr) == "" || strings.TrimSpace(f.AnswerFr) == "" {
				return nil, errValidation("question_fr and answer_fr are required")
			}
			return h.store.UpsertFAQ(ctx, f)
		})
}

func (h *ContentHandler) SiteContent(w http.ResponseWriter, r *http.Request) {
	listOrUpsert(h, w, r,
		func(ctx context.Context, _ bool) (any, error) {
			items, err := h.store.ListSiteContent(ctx)
			return emptyIfNil(items), err
		},
		func(ctx context.Context, body []byte) (any, error) {
			var c storage.SiteContent
			if err := json.Unmarshal(body, &c); err != nil {
				return nil, errBadJSON
			}
			if strings.TrimSpace(c.Key) == "" {
				return nil, errValidation("key is required")
			}
			return h.store.UpsertSiteContent(ctx, c)
		})
}

func (h *ContentHandler) SiteImages(w http.ResponseWriter, r *http.Request) {
	listOrUpsert(h, w, r,
		func(ctx context.Context, _ bool) (any, error) {
			items, err := h.store.ListSiteImages(ctx)
			return emptyIfNil(items), err
		},
		func(ctx context.Context, body []byte) (any, error) {
			var img storage.SiteImage
			if err := json.Unmarshal(body, &img); err != nil {
				return nil, errBadJSON
			}
			if strings.TrimSpace(img.Key) == "" || strings.TrimSpace(img.ImageURL) == "" {
				return nil, errValidation("key and image_url are required")
			}
			return h.store.UpsertSiteImage(ctx, img)
		})
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// Contact handles the public contact form.
func (h *ContentHandler) Contact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "name and message are required")
		return
	}
	if !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}

	created, err := h.store.CreateContactSubmission(r.Context(), storage.ContactSubmission{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Phone:   strings.TrimSpace(req.Phone),
		Message: strings.TrimSpace(req.Message),
	})
	if err != nil {
		h.logger.Error("contact submission failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeData(w, http.StatusCreated, created)
}

// AdminContacts lists submissions and updates their triage status.
func (h *ContentHandler) AdminContacts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit := 50
		if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
				limit = n
			}
		}
		items, err := h.store.ListContactSubmissions(r.Context(), limit)
		if err != nil {
			h.logger.Error("list contact submissions failed", "err", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeData(w, http.StatusOK, emptyIfNil(items))
	case http.MethodPatch:
		var req struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		switch req.Status {
		case "new", "read", "replied", "archived":
		default:
			writeError(w, http.StatusBadRequest, "unknown status")
			return
		}
		updated, err := h.store.UpdateContactStatus(r.Context(), req.ID, req.Status)
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "submission not found")
			return
		}
		if err != nil {
			h.logger.Error("update contact status failed", "err", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeData(w, http.StatusOK, updated)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

var errBadJSON = errors.New("invalid json body")

type validationError string

func (e validationError) Error() string { return string(e) }

func errValidation(msg string) error { return validationError(msg) }

func listOrUpsert(h *ContentHandler, w http.ResponseWriter, r *http.Request,
	list func(ctx context.Context, admin bool) (any, error),
	upsert func(ctx context.Context, body []byte) (any, error),
) {
	switch r.Method {
	case http.MethodGet:
		admin := strings.HasPrefix(r.URL.Path, "/api/v1/admin/")
		data, err := list(r.Context(), admin)
		if err != nil {
			h.logger.Error("content list failed", "path", r.URL.Path, "err", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeData(w, http.StatusOK, data)
	case http.MethodPut, http.MethodPost:
		if !strings.HasPrefix(r.URL.Path, "/api/v1/admin/") {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		body := make([]byte, 0, 4096)
		buf := json.NewDecoder(r.Body)
		var raw json.RawMessage
		if err := buf.Decode(&raw); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		body = append(body, raw...)
		data, err := upsert(r.Context(), body)
		if err != nil {
			var ve validationError
			switch {
			case errors.Is(err, errBadJSON):
				writeError(w, http.StatusBadRequest, errBadJSON.Error())
			case errors.As(err, &ve):
				writeError(w, http.StatusBadRequest, ve.Error())
			default:
				h.logger.Error("content upsert failed", "path", r.URL.Path, "err", err)
				writeError(w, http.StatusInternalServerError, "internal error")
			}
			return
		}
		writeData(w, http.StatusOK, data)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}
