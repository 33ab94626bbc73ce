package web

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	pkgerrors "github.com/pkg/errors"

	"github.com/totegamma/works-uploader"
	"github.com/totegamma/works-uploader/client"
	"github.com/totegamma/works-uploader/internal/domain"
	"github.com/totegamma/works-uploader/internal/present/form"
	"github.com/totegamma/works-uploader/internal/store"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pages = []string{"index", "work", "new", "notfound"}

// Validator checks a work form before it is posted.
type Validator interface {
	Validate(i any) error
}

type page struct {
	Title      string
	Error      string
	Works      []works.Work
	Activities []works.Activity
	Work       works.Work
	Form       works.WorkForm
	Fields     map[string]string
}

// Renderer renders a page template inside the shared layout.
type Renderer struct {
	templates map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	funcMap := template.FuncMap{
		"activityVerb": func(t works.ActivityType) string {
			switch t {
			case works.ActivityTypeNew:
				return "added"
			case works.ActivityTypeUpdate:
				return "updated"
			default:
				return "touched"
			}
		},
	}

	base, err := template.New("").Funcs(funcMap).ParseFS(templatesFS, "templates/layout.html")
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to parse layout")
	}

	templates := make(map[string]*template.Template, len(pages))
	for _, name := range pages {
		clone, err := base.Clone()
		if err != nil {
			return nil, err
		}
		tmpl, err := clone.ParseFS(templatesFS, "templates/"+name+".html")
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "failed to parse %s", name)
		}
		templates[name] = tmpl
	}

	return &Renderer{templates: templates}, nil
}

func (r *Renderer) Render(w io.Writer, name string, data any, c echo.Context) error {
	tmpl, ok := r.templates[name]
	if !ok {
		return pkgerrors.Errorf("unknown template %s", name)
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}

type Handler struct {
	works      *store.WorkStore
	activities *store.ActivityStore
	api        client.API
	validator  Validator
}

func NewHandler(
	workStore *store.WorkStore,
	activityStore *store.ActivityStore,
	api client.API,
	validator Validator,
) *Handler {
	return &Handler{
		works:      workStore,
		activities: activityStore,
		api:        api,
		validator:  validator,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.handleIndex)
	e.GET("/works/new", h.handleNew)
	e.GET("/works/:id", h.handleWork)
	e.POST("/works", h.handlePost)
}

func (h *Handler) handleIndex(c echo.Context) error {
	ctx := c.Request().Context()

	data := page{
		Title:      "Works",
		Activities: h.activities.Activities(),
	}

	status := http.StatusOK
	if err := h.works.FetchWorks(ctx); err != nil {
		status = http.StatusBadGateway
		data.Error = "Failed to load works. Please try again later."
	}
	data.Works = h.works.Works()

	return c.Render(status, "index", data)
}

func (h *Handler) handleWork(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	work, ok := h.works.GetWorkByID(id)
	if !ok {
		// deep links arrive before the list has ever been fetched
		if err := h.works.FetchWorks(ctx); err != nil {
			return c.Render(http.StatusBadGateway, "notfound", page{
				Title: "Error",
				Error: "Failed to load works. Please try again later.",
			})
		}
		work, ok = h.works.GetWorkByID(id)
	}
	if !ok {
		return c.Render(http.StatusNotFound, "notfound", page{Title: "Not found"})
	}

	return c.Render(http.StatusOK, "work", page{Title: work.Title, Work: work})
}

func (h *Handler) handleNew(c echo.Context) error {
	return c.Render(http.StatusOK, "new", page{
		Title:  "Upload",
		Form:   works.WorkForm{Type: works.WorkTypeURL},
		Fields: map[string]string{},
	})
}

func (h *Handler) handlePost(c echo.Context) error {
	ctx := c.Request().Context()

	input, err := form.BindWork(c)
	if err != nil {
		return c.Render(http.StatusBadRequest, "new", page{
			Title:  "Upload",
			Error:  "The form could not be read.",
			Form:   input,
			Fields: map[string]string{},
		})
	}

	if err := h.validator.Validate(input); err != nil {
		var verr *domain.ValidationError
		if !errors.As(err, &verr) {
			return err
		}
		return c.Render(http.StatusUnprocessableEntity, "new", page{
			Title:  "Upload",
			Form:   input,
			Fields: verr.Fields,
		})
	}

	if err := h.api.PostWork(ctx, input); err != nil {
		slog.ErrorContext(
			ctx, "failed to post work",
			slog.String("error", err.Error()),
			slog.String("module", "web"),
		)
		return c.Render(http.StatusBadGateway, "new", page{
			Title:  "Upload",
			Error:  "Failed to upload the work. Please try again later.",
			Form:   input,
			Fields: map[string]string{},
		})
	}

	h.works.AddWorks(optimistic(input, time.Now()))

	return c.Redirect(http.StatusSeeOther, "/")
}

// optimistic builds the local placeholder shown until the next fetch.
func optimistic(input works.WorkForm, now time.Time) works.Work {
	work := works.Work{
		ID:          uuid.NewString(),
		Title:       input.Title,
		Description: input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if input.Type == works.WorkTypeURL {
		work.ContentURL = input.ContentURL
	}
	return work
}
