// Package catalog holds the genre anchors used by the classifier.
package catalog

import (
	"fmt"
	"strings"

	"cinebot-go/internal/model"
	"cinebot-go/pkg/textnorm"
)

// Catalog is an ordered, immutable list of genres. Order breaks
// classification ties.
type Catalog struct {
	entries []model.GenreCatalogEntry
}

var defaultEntries = []model.GenreCatalogEntry{
	{Name: "ação", Description: "ação, aventura, adrenalina, luta, perseguição, explosões"},
	{Name: "aventura", Description: "aventura, jornada, exploração, viagem épica, mundo novo"},
	{Name: "animação", Description: "animação, desenho animado, infantil, cartoon, animado"},
	{Name: "comédia", Description: "comédia, engraçado, humor, rir, divertido"},
	{Name: "crime", Description: "crime, investigação, policial, criminoso, detetive, máfia"},
	{Name: "documentário", Description: "documentário, realidade, fatos reais, educativo, informativo"},
	{Name: "drama", Description: "drama, emoção, sentimentos, vida real, intenso, tocante"},
	{Name: "família", Description: "família, infantil, crianças, todos os públicos, leve"},
	{Name: "fantasia", Description: "fantasia, mágico, mundos imaginários, fadas, magos, dragões"},
	{Name: "história", Description: "história, eventos reais, passado, biografia, antigo"},
	{Name: "terror", Description: "terror, horror, assustador, medo, susto, sobrenatural"},
	{Name: "musical", Description: "musical, música, dança, cantando, espetáculo"},
	{Name: "mistério", Description: "mistério, enigma, investigação, segredo, suspense leve"},
	{Name: "romance", Description: "romance, amor, apaixonado, casal, relacionamento"},
	{Name: "ficção científica", Description: "ficção científica, sci-fi, tecnologia, espaço, futuro, alienígenas"},
	{Name: "cinema tv", Description: "televisão, tv, série especial, filme de tv"},
	{Name: "thriller", Description: "thriller, suspense, tensão, conspiração, psicológico, reviravolta"},
	{Name: "guerra", Description: "guerra, batalha, soldados, militar, exército, combate"},
	{Name: "faroeste", Description: "faroeste, velho oeste, cowboys, pistoleiros, bang bang"},
}

// Default returns the built-in Portuguese catalog.
func Default() *Catalog {
	entries := make([]model.GenreCatalogEntry, len(defaultEntries))
	copy(entries, defaultEntries)
	return &Catalog{entries: entries}
}

// Load validates entries and builds a catalog from them. Names are
// normalized to lowercase. An empty list yields the default catalog.
func Load(entries []model.GenreCatalogEntry) (*Catalog, error) {
	if len(entries) == 0 {
		return Default(), nil
	}
	seen := make(map[string]struct{}, len(entries))
	out := make([]model.GenreCatalogEntry, 0, len(entries))
	for i, e := range entries {
		name := textnorm.Normalize(e.Name)
		desc := strings.TrimSpace(e.Description)
		if name == "" {
			return nil, fmt.Errorf("genre %d: name is empty", i)
		}
		if desc == "" {
			return nil, fmt.Errorf("genre %q: description is empty", name)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("genre %q declared twice", name)
		}
		seen[name] = struct{}{}
		out = append(out, model.GenreCatalogEntry{Name: name, Description: desc})
	}
	return &Catalog{entries: out}, nil
}

// Entries returns a copy of the catalog in iteration order.
func (c *Catalog) Entries() []model.GenreCatalogEntry {
	out := make([]model.GenreCatalogEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Names returns the genre labels in iteration order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.Name
	}
	return names
}

func (c *Catalog) Len() int { return len(c.entries) }
