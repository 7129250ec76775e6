package api

import (
	"fmt"
	"html/template"
	"net/http"

	"trueneutral/internal/domain"
	"trueneutral/internal/logging"
)

var pageTmpl = template.Must(template.New("page").Funcs(template.FuncMap{
	"score": func(f float64) string { return fmt.Sprintf("%.2f", f) },
}).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Book recommendations</title></head>
<body>
<h1>Book recommendations</h1>
<form method="post" action="/">
  <p><label>Book title<br><input type="text" name="title" value="{{.Title}}" size="60"></label></p>
  <p><label>Book Summary<br><textarea name="summary" rows="8" cols="60">{{.Summary}}</textarea></label></p>
  <p><label>Results <input type="number" name="nsim" min="1" value="{{.NSim}}"></label>
     <label><input type="checkbox" name="summary_text" value="on"{{if .WithSummary}} checked{{end}}> Show short summaries</label></p>
  <p><input type="submit" value="Get recommendations"></p>
</form>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
{{if .Results}}
<ol>
{{range .Results}}
  <li>
    <strong>{{.Book.Title}}</strong> by {{.Book.Author}}<br>
    Genres: {{.Book.Genres}}<br>
    Correlation: {{score .Score}}
    {{if .ShortSummary}}<p>Short Summary: {{.ShortSummary}}</p>{{end}}
  </li>
{{end}}
</ol>
{{end}}
</body>
</html>
`))

type pageData struct {
	Title       string
	Summary     string
	NSim        int
	WithSummary bool
	Error       string
	Results     []domain.Recommendation
}

// Form handles GET /.
func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pageData{NSim: 10})
}

// FormSubmit handles POST / and renders the results below the form.
func (h *Handler) FormSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, pageData{NSim: 10, Error: "malformed form"})
		return
	}
	params, err := h.parseParams(r.PostFormValue("title"), r.PostFormValue("summary"),
		r.PostFormValue("nsim"), r.PostFormValue("summary_text"))
	data := pageData{Title: params.Title, Summary: params.Summary, NSim: params.NSim, WithSummary: params.WithSummary}
	if data.NSim == 0 {
		data.NSim = 10
	}
	if err == nil {
		data.Results, err = h.svc.Recommend(r.Context(), params.query())
	}
	if err != nil {
		status, _ := statusFor(err)
		data.Error = err.Error()
		if status == http.StatusInternalServerError {
			logging.Ctx(r.Context(), h.logger).Error().Err(err).Msg("query failed")
			data.Error = "internal error"
		}
		h.render(w, r, status, data)
		return
	}
	h.render(w, r, http.StatusOK, data)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTmpl.Execute(w, data); err != nil {
		logging.Ctx(r.Context(), h.logger).Error().Err(err).Msg("failed to render page")
	}
}
