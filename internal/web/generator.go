package web

import (
	"net/http"

	"github.com/aviationwx/aviationwx/internal/generator"
	"github.com/aviationwx/aviationwx/pkg/logger"
)

type generatorView struct {
	baseView
	Form   *generator.Form
	Errors []string
}

type generatorResultView struct {
	baseView
	Ident   string
	Code    string
	Snippet string
}

// GeneratorForm renders the blank airport config generator
func (h *Handler) GeneratorForm(w http.ResponseWriter, r *http.Request) {
	v := generatorView{
		baseView: h.base("Add Your Airport - "+h.config.Site.Name,
			"Generate the registry entry that puts your airport on "+h.config.Site.Name,
			"tools", "/config-generator"),
		Form: generator.NewForm(),
	}
	h.engine.Render(w, http.StatusOK, "generator.html", v)
}

// GeneratorSubmit validates a submitted form. Validation errors
// re-render the form with the error list and the submitted values;
// a valid form renders the registry snippet.
func (h *Handler) GeneratorSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Debug("Unreadable generator submission", logger.Error(err))
		h.renderError(w, http.StatusBadRequest, "Bad request",
			"The submitted form could not be read. Go back and try again.")
		return
	}

	form := generator.ParseForm(r.PostForm)
	apt, errs := form.Build()
	if len(errs) > 0 {
		h.logger.Debug("Config generator validation failed",
			logger.String("ident", form.Ident),
			logger.Int("error_count", len(errs)))
		v := generatorView{
			baseView: h.base("Add Your Airport - "+h.config.Site.Name, "",
				"tools", "/config-generator"),
			Form:   form,
			Errors: errs,
		}
		h.engine.Render(w, http.StatusOK, "generator.html", v)
		return
	}

	snippet, err := generator.Snippet(apt)
	if err != nil {
		h.logger.Error("Failed to render airport snippet",
			logger.String("ident", apt.Ident),
			logger.Error(err))
		h.renderError(w, http.StatusInternalServerError, "Something went wrong",
			"The snippet could not be generated. Try again shortly.")
		return
	}

	h.logger.Info("Config generator produced a snippet",
		logger.String("ident", apt.Ident))
	v := generatorResultView{
		baseView: h.base("Your Airport Config - "+h.config.Site.Name, "",
			"tools", "/config-generator"),
		Ident:   apt.Ident,
		Code:    apt.DisplayCode(),
		Snippet: snippet,
	}
	h.engine.Render(w, http.StatusOK, "generator_result.html", v)
}
