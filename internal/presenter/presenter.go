// Package presenter renders recommendation batches as chat-ready HTML.
package presenter

import (
	"fmt"
	"html"
	"strings"

	"cinebot-go/internal/model"
)

const (
	separator     = "<br><br>"
	noDescription = "Sem descrição."
	noResults     = "Nenhuma recomendação encontrada."
)

// Presenter builds movie cards with poster and watch links.
type Presenter struct {
	imageBaseURL string
	watchBaseURL string
	locale       string
}

// New creates a Presenter. imageBaseURL is prefixed to poster paths,
// watchBaseURL to movie ids.
func New(imageBaseURL, watchBaseURL, locale string) *Presenter {
	return &Presenter{
		imageBaseURL: strings.TrimRight(imageBaseURL, "/"),
		watchBaseURL: strings.TrimRight(watchBaseURL, "/"),
		locale:       locale,
	}
}

// WatchURL is the "where to watch" page of a movie.
func (p *Presenter) WatchURL(id int64) string {
	u := fmt.Sprintf("%s/%d/watch", p.watchBaseURL, id)
	if p.locale != "" {
		u += "?locale=" + p.locale
	}
	return u
}

// PosterURL returns the poster image URL, or "" when the movie has none.
func (p *Presenter) PosterURL(posterPath string) string {
	if posterPath == "" {
		return ""
	}
	if !strings.HasPrefix(posterPath, "/") {
		posterPath = "/" + posterPath
	}
	return p.imageBaseURL + posterPath
}

// Render formats one card per movie joined by a blank line. An empty batch
// renders as an explicit no-results message.
func (p *Presenter) Render(movies []model.Movie) string {
	if len(movies) == 0 {
		return noResults
	}
	blocks := make([]string, 0, len(movies))
	for _, m := range movies {
		blocks = append(blocks, p.card(m))
	}
	return strings.Join(blocks, separator)
}

func (p *Presenter) card(m model.Movie) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<strong> %s</strong><br>", html.EscapeString(m.Title))
	if poster := p.PosterURL(m.PosterPath); poster != "" {
		fmt.Fprintf(&b, "<img src='%s' style='width:100px'><br>", html.EscapeString(poster))
	}
	overview := strings.TrimSpace(m.Overview)
	if overview == "" {
		overview = noDescription
	}
	b.WriteString(html.EscapeString(overview))
	b.WriteString("<br>")
	fmt.Fprintf(&b, " <a href='%s' target='_blank'>Onde assistir</a><br>", html.EscapeString(p.WatchURL(m.ID)))
	return b.String()
}
