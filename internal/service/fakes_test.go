package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"cinebot-go/pkg/textnorm"
	"cinebot-go/pkg/tmdb"
)

const fakeDims = 256

// bagEmbedder maps each distinct word to its own dimension, so texts with the
// same words embed to the same direction.
type bagEmbedder struct {
	mu      sync.Mutex
	vocab   map[string]int
	calls   int
	batches int
	err     error
}

func newBagEmbedder() *bagEmbedder {
	return &bagEmbedder{vocab: make(map[string]int)}
}

func (e *bagEmbedder) vector(text string) []float32 {
	v := make([]float32, fakeDims)
	for _, tok := range textnorm.Tokens(text) {
		idx, ok := e.vocab[tok]
		if !ok {
			idx = len(e.vocab) % fakeDims
			e.vocab[tok] = idx
		}
		v[idx]++
	}
	return v
}

func (e *bagEmbedder) CreateEmbedding(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return e.vector(text), nil
}

func (e *bagEmbedder) CreateEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.batches++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *bagEmbedder) setErr(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

// fakeSource is an in-memory TMDb.
type fakeSource struct {
	mu            sync.Mutex
	genres        []tmdb.Genre
	movies        map[int64][]tmdb.Movie
	genreErr      error
	discoverErr   error
	genreCalls    int
	discoverCalls int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		genres: []tmdb.Genre{
			{ID: 28, Name: "Ação"},
			{ID: 35, Name: "Comédia"},
			{ID: 27, Name: "Terror"},
			{ID: 18, Name: "Drama"},
		},
		movies: map[int64][]tmdb.Movie{
			28: {
				{ID: 1, Title: "Explosão", Overview: "Muita ação.", PosterPath: "/1.jpg"},
				{ID: 2, Title: "Perseguição"},
				{ID: 3, Title: "Luta Final", PosterPath: "/3.jpg"},
				{ID: 4, Title: "Adrenalina"},
				{ID: 5, Title: "Fuga"},
			},
			27: {
				{ID: 10, Title: "O Susto"},
			},
		},
	}
}

func (f *fakeSource) GenreList(context.Context) ([]tmdb.Genre, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.genreCalls++
	if f.genreErr != nil {
		return nil, f.genreErr
	}
	return append([]tmdb.Genre(nil), f.genres...), nil
}

func (f *fakeSource) Discover(_ context.Context, genreID int64) ([]tmdb.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discoverCalls++
	if f.discoverErr != nil {
		return nil, f.discoverErr
	}
	return append([]tmdb.Movie(nil), f.movies[genreID]...), nil
}

var errDown = errors.New("connection refused")

func contains(s, sub string) bool { return strings.Contains(s, sub) }
