package model

// Movie is the read-only projection of one metadata provider record.
type Movie struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Overview   string `json:"overview,omitempty"`
	PosterPath string `json:"posterPath,omitempty"`
}

// GenreCatalogEntry anchors a catalog genre for classification.
// Description is never shown to users.
type GenreCatalogEntry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
