package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"trueneutral/internal/domain"
	"trueneutral/internal/logging"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// RecommendationResponse is the external JSON shape of one recommendation.
type RecommendationResponse struct {
	Title            string  `json:"title"`
	Author           string  `json:"author"`
	Genres           string  `json:"genres"`
	CorrelationScore float64 `json:"correlation_score"`
	Summary          string  `json:"summary,omitempty"`
}

// ErrorResponse is returned with every non-2xx JSON reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type healthResponse struct {
	Status    string `json:"status"`
	ModelID   string `json:"model_id"`
	Embedder  string `json:"embedder"`
	Documents int    `json:"documents"`
}

// queryParams are the request inputs shared by the form and the JSON endpoint.
type queryParams struct {
	Title       string `validate:"max=500"`
	Summary     string `validate:"max=20000"`
	NSim        int    `validate:"gte=0"`
	WithSummary bool
}

// Recommendations handles GET /api/v1/recommendations.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params, err := h.parseParams(q.Get("title"), q.Get("summary"), q.Get("nsim"), q.Get("summary_text"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	recs, err := h.svc.Recommend(r.Context(), params.query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]RecommendationResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toResponse(rec))
	}
	h.writeJSON(w, r, http.StatusOK, out)
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	md := h.svc.Metadata()
	h.writeJSON(w, r, http.StatusOK, healthResponse{
		Status:    "ok",
		ModelID:   md.ID.String(),
		Embedder:  md.Embedder,
		Documents: md.DocumentCount,
	})
}

func (h *Handler) parseParams(title, summary, nsim, withSummary string) (queryParams, error) {
	p := queryParams{
		Title:       strings.TrimSpace(title),
		Summary:     strings.TrimSpace(summary),
		WithSummary: parseBool(withSummary),
	}
	if nsim = strings.TrimSpace(nsim); nsim != "" {
		n, err := strconv.Atoi(nsim)
		if err != nil {
			return p, &domain.InvalidQueryError{Reason: "nsim must be an integer"}
		}
		p.NSim = n
	}
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return p, &domain.InvalidQueryError{Reason: strings.ToLower(verrs[0].Field()) + " failed " + verrs[0].Tag() + " check"}
		}
		return p, &domain.InvalidQueryError{Reason: err.Error()}
	}
	if h.cfg.MaxNSim > 0 && p.NSim > h.cfg.MaxNSim {
		return p, &domain.InvalidQueryError{Reason: "nsim must be at most " + strconv.Itoa(h.cfg.MaxNSim)}
	}
	return p, nil
}

func (p queryParams) query() domain.Query {
	return domain.Query{Title: p.Title, Summary: p.Summary, NSim: p.NSim, WithSummary: p.WithSummary}
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func toResponse(rec domain.Recommendation) RecommendationResponse {
	return RecommendationResponse{
		Title:            rec.Book.Title,
		Author:           rec.Book.Author,
		Genres:           rec.Book.Genres,
		CorrelationScore: rec.Score,
		Summary:          rec.ShortSummary,
	}
}

// statusFor maps query errors onto HTTP status codes and stable error codes.
func statusFor(err error) (int, string) {
	var invalid *domain.InvalidQueryError
	var unknown *domain.UnknownTitleError
	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest, "invalid_query"
	case errors.As(err, &unknown):
		return http.StatusNotFound, "unknown_title"
	}
	return http.StatusInternalServerError, "internal_error"
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logging.Ctx(r.Context(), h.logger).Error().Err(err).Msg("query failed")
		msg = "internal error"
	}
	h.writeJSON(w, r, status, ErrorResponse{Error: msg, Code: code})
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Ctx(r.Context(), h.logger).Error().Err(err).Msg("failed to encode JSON response")
	}
}
