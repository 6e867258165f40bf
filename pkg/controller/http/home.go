package http

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskmatrix/pkg/domain/model"
	"github.com/secmon-lab/riskmatrix/pkg/domain/model/config"
	"github.com/secmon-lab/riskmatrix/pkg/usecase"
	"github.com/secmon-lab/riskmatrix/pkg/utils/errutil"
	"github.com/secmon-lab/riskmatrix/pkg/utils/safe"
)

//go:embed templates/*.html
var templateFS embed.FS

func parsePages() (*template.Template, error) {
	pages, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse page templates")
	}
	return pages, nil
}

type homePage struct {
	Title string
	View  *model.HomeView
}

type errorPage struct {
	Title   string
	App     config.AppInfo
	Message string
}

// homeHandler renders the welcome page, or the startup error with 503 when the application failed
func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	view, err := s.app.HomeView(ctx)
	if err != nil {
		app := s.app.Matrix().App
		s.render(w, r, http.StatusServiceUnavailable, "error", errorPage{
			Title:   app.Name,
			App:     app,
			Message: usecase.UserMessage(err),
		})
		return
	}

	s.render(w, r, http.StatusOK, "home", homePage{
		Title: view.App.Name,
		View:  view,
	})
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, name, data); err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to render page", goerr.V("page", name)),
			http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	safe.Write(r.Context(), w, buf.Bytes())
}
