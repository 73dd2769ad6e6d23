package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"stylegen/internal/domain"
	"stylegen/internal/http/respond"
)

type promptResponse struct {
	Title  string `json:"title"`
	Prompt string `json:"prompt"`
}

func (a *App) Styles(w http.ResponseWriter, r *http.Request) {
	respond.OK(w, a.Reader.Listing(r.Context(), domain.CatalogueStyles))
}

func (a *App) TrendingStyles(w http.ResponseWriter, r *http.Request) {
	respond.OK(w, a.Reader.Listing(r.Context(), domain.CatalogueTrending))
}

// RefreshStyles runs the pipeline synchronously and returns the seeded items.
// Prompt fill continues in the background.
func (a *App) RefreshStyles(w http.ResponseWriter, r *http.Request) {
	cat, ok := catalogueParam(r, domain.CatalogueStyles)
	if !ok {
		respond.Error(w, fmt.Errorf("%w: unknown catalogue %q", domain.ErrInvalidRequest, cat))
		return
	}
	if a.Refresher == nil {
		respond.Error(w, fmt.Errorf("%w: style refresh is not configured", domain.ErrConfiguration))
		return
	}
	items, err := a.Refresher.Run(r.Context(), cat)
	if err != nil {
		a.log().Warn().Err(err).Str("catalogue", string(cat)).Msg("refresh failed")
		respond.Error(w, err)
		return
	}
	if items == nil {
		items = []domain.Style{}
	}
	respond.OK(w, items)
}

func (a *App) StylePrompt(w http.ResponseWriter, r *http.Request) {
	title := strings.TrimSpace(r.URL.Query().Get("title"))
	if title == "" {
		respond.Error(w, fmt.Errorf("%w: title is required", domain.ErrInvalidRequest))
		return
	}
	prompt, ok := a.Cache.GetPromptFor(title)
	if !ok {
		respond.Error(w, fmt.Errorf("%w: no prompt for %q", domain.ErrNotFound, title))
		return
	}
	respond.OK(w, promptResponse{Title: title, Prompt: prompt})
}
