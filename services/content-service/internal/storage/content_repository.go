// Package storage persists the bilingual site content and the contact
// form submissions.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mimb-immigration/platform/libs/db"
)

var ErrNotFound = errors.New("not found")

type Service struct {
	ID            string    `json:"id"`
	TitleFr       string    `json:"title_fr"`
	TitleEn       string    `json:"title_en"`
	DescriptionFr string    `json:"description_fr"`
	DescriptionEn string    `json:"description_en"`
	Icon          string    `json:"icon,omitempty"`
	DisplayOrder  int       `json:"display_order"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Testimonial struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ContentFr    string    `json:"content_fr"`
	ContentEn    string    `json:"content_en"`
	LocationFr   string    `json:"location_fr,omitempty"`
	LocationEn   string    `json:"location_en,omitempty"`
	Rating       int       `json:"rating"`
	DisplayOrder int       `json:"display_order"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type FAQEntry struct {
	ID           string    `json:"id"`
	QuestionFr   string    `json:"question_fr"`
	QuestionEn   string    `json:"question_en"`
	AnswerFr     string    `json:"answer_fr"`
	AnswerEn     string    `json:"answer_en"`
	DisplayOrder int       `json:"display_order"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type SiteContent struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"`
	ValueFr     string    `json:"value_fr"`
	ValueEn     string    `json:"value_en"`
	ContentType string    `json:"content_type"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type SiteImage struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	ImageURL  string    `json:"image_url"`
	AltTextFr string    `json:"alt_text_fr,omitempty"`
	AltTextEn string    `json:"alt_text_en,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ContactSubmission struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListServices returns the service catalogue. Public callers get active
// rows only; the admin panel passes includeInactive.
func (r *Repository) ListServices(ctx context.Context, includeInactive bool) ([]Service, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, title_fr, title_en, description_fr, description_en,
		       COALESCE(icon, ''), COALESCE(display_order, 0), COALESCE(is_active, true),
		       created_at, updated_at
		FROM services
		WHERE $1 OR COALESCE(is_active, true)
		ORDER BY COALESCE(display_order, 0), created_at
	`, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Service
	for rows.Next() {
		var s Service
		if err := rows.Scan(&s.ID, &s.TitleFr, &s.TitleEn, &s.DescriptionFr, &s.DescriptionEn,
			&s.Icon, &s.DisplayOrder, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repository) UpsertService(ctx context.Context, s Service) (Service, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO services (id, title_fr, title_en, description_fr, description_en, icon, display_order, is_active)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, NULLIF($6, ''), $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			title_fr = EXCLUDED.title_fr,
			title_en = EXCLUDED.title_en,
			description_fr = EXCLUDED.description_fr,
			description_en = EXCLUDED.description_en,
			icon = EXCLUDED.icon,
			display_order = EXCLUDED.display_order,
			is_active = EXCLUDED.is_active,
			updated_at = now()
		RETURNING id, title_fr, title_en, description_fr, description_en,
		          COALESCE(icon, ''), COALESCE(display_order, 0), COALESCE(is_active, true),
		          created_at, updated_at
	`, s.ID, s.TitleFr, s.TitleEn, s.DescriptionFr, s.DescriptionEn, s.Icon, s.DisplayOrder, s.IsActive)
	var out Service
	err := row.Scan(&out.ID, &out.TitleFr, &out.TitleEn, &out.DescriptionFr, &out.DescriptionEn,
		&out.Icon, &out.DisplayOrder, &out.IsActive, &out.CreatedAt, &out.UpdatedAt)
	return out, err
}

func (r *Repository) ListTestimonials(ctx context.Context, includeInactive bool) ([]Testimonial, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, content_fr, content_en,
		       COALESCE(location_fr, ''), COALESCE(location_en, ''),
		       COALESCE(rating, 5), COALESCE(display_order, 0), COALESCE(is_active, true),
		       created_at, updated_at
		FROM testimonials
		WHERE $1 OR COALESCE(is_active, true)
		ORDER BY COALESCE(display_order, 0), created_at
	`, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Testimonial
	for rows.Next() {
		var t Testimonial
		if err := rows.Scan(&t.ID, &t.Name, &t.ContentFr, &t.ContentEn,
			&t.LocationFr, &t.LocationEn, &t.Rating, &t.DisplayOrder, &t.IsActive,
			&t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repository) UpsertTestimonial(ctx context.Context, t Testimonial) (Testimonial, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO testimonials (id, name, content_fr, content_en, location_fr, location_en, rating, display_order, is_active)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			content_fr = EXCLUDED.content_fr,
			content_en = EXCLUDED.content_en,
			location_fr = EXCLUDED.location_fr,
			location_en = EXCLUDED.location_en,
			rating = EXCLUDED.rating,
			display_order = EXCLUDED.display_order,
			is_active = EXCLUDED.is_active,
			updated_at = now()
		RETURNING id, name, content_fr, content_en,
		          COALESCE(location_fr, ''), COALESCE(location_en, ''),
		          COALESCE(rating, 5), COALESCE(display_order, 0), COALESCE(is_active, true),
		          created_at, updated_at
	`, t.ID, t.Name, t.ContentFr, t.ContentEn, t.LocationFr, t.LocationEn, t.Rating, t.DisplayOrder, t.IsActive)
	var out Testimonial
	err := row.Scan(&out.ID, &out.Name, &out.ContentFr, &out.ContentEn,
		&out.LocationFr, &out.LocationEn, &out.Rating, &out.DisplayOrder, &out.IsActive,
		&out.CreatedAt, &out.UpdatedAt)
	return out, err
}

func (r *Repository) ListFAQ(ctx context.Context, includeInactive bool) ([]FAQEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, question_fr, question_en, answer_fr, answer_en,
		       COALESCE(display_order, 0), COALESCE(is_active, true),
		       created_at, updated_at
		FROM faq
		WHERE $1 OR COALESCE(is_active, true)
		ORDER BY COALESCE(display_order, 0), created_at
	`, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FAQEntry
	for rows.Next() {
		var f FAQEntry
		if err := rows.Scan(&f.ID, &f.QuestionFr, &f.QuestionEn, &f.AnswerFr, &f.AnswerEn,
			&f.DisplayOrder, &f.IsActive, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *Repository) UpsertFAQ(ctx context.Context, f FAQEntry) (FAQEntry, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO faq (id, question_fr, question_en, answer_fr, answer_en, display_order, is_active)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			question_fr = EXCLUDED.question_fr,
			question_en = EXCLUDED.question_en,
			answer_fr = EXCLUDED.answer_fr,
			answer_en = EXCLUDED.answer_en,
			display_order = EXCLUDED.display_order,
			is_active = EXCLUDED.is_active,
			updated_at = now()
		RETURNING id, question_fr, question_en, answer_fr, answer_en,
		          COALESCE(display_order, 0), COALESCE(is_active, true),
		          created_at, updated_at
	`, f.ID, f.QuestionFr, f.QuestionEn, f.AnswerFr, f.AnswerEn, f.DisplayOrder, f.IsActive)
	var out FAQEntry
	err := row.Scan(&out.ID, &out.QuestionFr, &out.QuestionEn, &out.AnswerFr, &out.AnswerEn,
		&out.DisplayOrder, &out.IsActive, &out.CreatedAt, &out.UpdatedAt)
	return out, err
}

func (r *Repository) ListSiteContent(ctx context.Context) ([]SiteContent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, key, COALESCE(value_fr, ''), COALESCE(value_en, ''), content_type, updated_at
		FROM site_content
		ORDER BY key
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SiteContent
	for rows.Next() {
		var c SiteContent
		if err := rows.Scan(&c.ID, &c.Key, &c.ValueFr, &c.ValueEn, &c.ContentType, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpsertSiteContent writes a keyed text block. The key is the natural
// identifier, matching how the site front end looks content up.
func (r *Repository) UpsertSiteContent(ctx context.Context, c SiteContent) (SiteContent, error) {
	if c.ContentType == "" {
		c.ContentType = "text"
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO site_content (key, value_fr, value_en, content_type)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4)
		ON CONFLICT (key) DO UPDATE SET
			value_fr = EXCLUDED.value_fr,
			value_en = EXCLUDED.value_en,
			content_type = EXCLUDED.content_type,
			updated_at = now()
		RETURNING id, key, COALESCE(value_fr, ''), COALESCE(value_en, ''), content_type, updated_at
	`, c.Key, c.ValueFr, c.ValueEn, c.ContentType)
	var out SiteContent
	err := row.Scan(&out.ID, &out.Key, &out.ValueFr, &out.ValueEn, &out.ContentType, &out.UpdatedAt)
	return out, err
}

func (r *Repository) ListSiteImages(ctx context.Context) ([]SiteImage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, key, image_url, COALESCE(alt_text_fr, ''), COALESCE(alt_text_en, ''), updated_at
		FROM site_images
		ORDER BY key
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SiteImage
	for rows.Next() {
		var img SiteImage
		if err := rows.Scan(&img.ID, &img.Key, &img.ImageURL, &img.AltTextFr, &img.AltTextEn, &img.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

func (r *Repository) UpsertSiteImage(ctx context.Context, img SiteImage) (SiteImage, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO site_images (key, image_url, alt_text_fr, alt_text_en)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''))
		ON CONFLICT (key) DO UPDATE SET
			image_url = EXCLUDED.image_url,
			alt_text_fr = EXCLUDED.alt_text_fr,
			alt_text_en = EXCLUDED.alt_text_en,
			updated_at = now()
		RETURNING id, key, image_url, COALESCE(alt_text_fr, ''), COALESCE(alt_text_en, ''), updated_at
	`, img.Key, img.ImageURL, img.AltTextFr, img.AltTextEn)
	var out SiteImage
	err := row.Scan(&out.ID, &out.Key, &out.ImageURL, &out.AltTextFr, &out.AltTextEn, &out.UpdatedAt)
	return out, err
}

func (r *Repository) CreateContactSubmission(ctx context.Context, c ContactSubmission) (ContactSubmission, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO contact_submissions (name, email, phone, message, status)
		VALUES ($1, $2, NULLIF($3, ''), $4, 'new')
		RETURNING id, name, email, COALESCE(phone, ''), message, status, created_at, updated_at
	`, c.Name, c.Email, c.Phone, c.Message)
	var out ContactSubmission
	err := row.Scan(&out.ID, &out.Name, &out.Email, &out.Phone, &out.Message, &out.Status, &out.CreatedAt, &out.UpdatedAt)
	return out, err
}

func (r *Repository) ListContactSubmissions(ctx context.Context, limit int) ([]ContactSubmission, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, email, COALESCE(phone, ''), message, status, created_at, updated_at
		FROM contact_submissions
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ContactSubmission
	for rows.Next() {
		var c ContactSubmission
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Message, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateContactStatus(ctx context.Context, id, status string) (ContactSubmission, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE contact_submissions
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, name, email, COALESCE(phone, ''), message, status, created_at, updated_at
	`, id, status)
	var out ContactSubmission
	err := row.Scan(&out.ID, &out.Name, &out.Email, &out.Phone, &out.Message, &out.Status, &out.CreatedAt, &out.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ContactSubmission{}, ErrNotFound
	}
	return out, err
}
