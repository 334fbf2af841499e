package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"cinebot-go/internal/catalog"
	"cinebot-go/internal/model"
	"cinebot-go/pkg/embedding"
	"cinebot-go/pkg/log"
)

// Classification is the best matching catalog genre and its cosine similarity.
type Classification struct {
	Genre string
	Score float64
}

// Found reports whether a genre was selected.
func (c Classification) Found() bool { return c.Genre != "" }

// GenreClassifier maps free text to a catalog genre.
type GenreClassifier interface {
	Classify(ctx context.Context, text string) (Classification, error)
	Warmup(ctx context.Context) error
}

type genreClassifier struct {
	embedder embedding.Client
	entries  []model.GenreCatalogEntry

	mu      sync.RWMutex
	anchors [][]float32
	group   singleflight.Group
}

// NewGenreClassifier creates a classifier over the given catalog. Anchor
// embeddings are computed on first use and kept for the process lifetime.
func NewGenreClassifier(embedder embedding.Client, cat *catalog.Catalog) GenreClassifier {
	return &genreClassifier{
		embedder: embedder,
		entries:  cat.Entries(),
	}
}

// Warmup computes the catalog anchors ahead of the first conversation.
func (c *genreClassifier) Warmup(ctx context.Context) error {
	_, err := c.loadAnchors(ctx)
	return err
}

// Classify embeds text and returns the catalog entry with the highest cosine
// similarity. Ties go to the entry that comes first in the catalog. There is
// no threshold: any non-empty catalog yields a genre. Blank text scores 0
// against every entry without calling the provider, so the first entry wins.
func (c *genreClassifier) Classify(ctx context.Context, text string) (Classification, error) {
	if len(c.entries) == 0 {
		return Classification{}, nil
	}
	if strings.TrimSpace(text) == "" {
		return Classification{Genre: c.entries[0].Name, Score: 0}, nil
	}
	anchors, err := c.loadAnchors(ctx)
	if err != nil {
		return Classification{}, err
	}
	vec, err := c.embedder.CreateEmbedding(ctx, text)
	if err != nil {
		return Classification{}, fmt.Errorf("%w: %v", ErrClassificationUnavailable, err)
	}

	best := Classification{Score: -2}
	for i, entry := range c.entries {
		score := embedding.CosineSimilarity(vec, anchors[i])
		if score > best.Score {
			best = Classification{Genre: entry.Name, Score: score}
		}
	}
	log.Debugf("[GenreClassifier] %q -> %s (%.4f)", text, best.Genre, best.Score)
	return best, nil
}

func (c *genreClassifier) loadAnchors(ctx context.Context) ([][]float32, error) {
	c.mu.RLock()
	anchors := c.anchors
	c.mu.RUnlock()
	if anchors != nil {
		return anchors, nil
	}

	v, err, _ := c.group.Do("anchors", func() (interface{}, error) {
		c.mu.RLock()
		cached := c.anchors
		c.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		texts := make([]string, len(c.entries))
		for i, e := range c.entries {
			texts[i] = e.Description
		}
		// shared by every waiter, so one caller's cancellation must not fail the rest
		vectors, err := c.embedder.CreateEmbeddings(context.WithoutCancel(ctx), texts)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("expected %d anchor vectors, got %d", len(texts), len(vectors))
		}

		c.mu.Lock()
		c.anchors = vectors
		c.mu.Unlock()
		log.Infof("[GenreClassifier] cached %d genre anchors", len(vectors))
		return vectors, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: anchors: %v", ErrClassificationUnavailable, err)
	}
	return v.([][]float32), nil
}
