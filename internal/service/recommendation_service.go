package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"cinebot-go/internal/model"
	"cinebot-go/pkg/log"
	"cinebot-go/pkg/metrics"
	"cinebot-go/pkg/textnorm"
	"cinebot-go/pkg/tmdb"
)

// DefaultRecommendationCount is the batch size when callers pass count <= 0.
const DefaultRecommendationCount = 3

// MovieSource is the subset of the metadata provider used for recommendations.
type MovieSource interface {
	GenreList(ctx context.Context) ([]tmdb.Genre, error)
	Discover(ctx context.Context, genreID int64) ([]tmdb.Movie, error)
}

// Recommendations is one sampled batch. Reset is set when every candidate
// had already been shown and the exclusion list was ignored.
type Recommendations struct {
	Movies []model.Movie
	Reset  bool
}

// RecommendationService resolves genres and samples movies for them.
type RecommendationService interface {
	ResolveGenreID(ctx context.Context, name string) (int64, error)
	FetchByGenre(ctx context.Context, genreID int64, count int, exclude []int64) (Recommendations, error)
	Refresh(ctx context.Context) error
}

// RecommendationOption configures the recommendation service.
type RecommendationOption func(*recommendationService)

// WithShuffle replaces the shuffle used for sampling.
func WithShuffle(shuffle func(n int, swap func(i, j int))) RecommendationOption {
	return func(s *recommendationService) {
		if shuffle != nil {
			s.shuffle = shuffle
		}
	}
}

// WithClock replaces time.Now for cache expiry.
func WithClock(now func() time.Time) RecommendationOption {
	return func(s *recommendationService) {
		if now != nil {
			s.now = now
		}
	}
}

type recommendationService struct {
	source  MovieSource
	ttl     time.Duration
	shuffle func(n int, swap func(i, j int))
	now     func() time.Time

	mu        sync.RWMutex
	genres    map[string]int64
	fetchedAt time.Time
	group     singleflight.Group
}

// NewRecommendationService creates the service. genreCacheTTL of zero fetches
// the provider genre list on every resolution.
func NewRecommendationService(source MovieSource, genreCacheTTL time.Duration, opts ...RecommendationOption) RecommendationService {
	s := &recommendationService{
		source:  source,
		ttl:     genreCacheTTL,
		shuffle: rand.Shuffle,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResolveGenreID returns the provider id for name, matched case-insensitively.
// A name missing from the provider catalog yields ErrGenreNotFound.
func (s *recommendationService) ResolveGenreID(ctx context.Context, name string) (int64, error) {
	genres, err := s.genreMap(ctx)
	if err != nil {
		return 0, err
	}
	id, ok := genres[textnorm.Normalize(name)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrGenreNotFound, name)
	}
	return id, nil
}

// Refresh reloads the provider genre map regardless of its age.
func (s *recommendationService) Refresh(ctx context.Context) error {
	_, err := s.reload(ctx)
	return err
}

func (s *recommendationService) genreMap(ctx context.Context) (map[string]int64, error) {
	s.mu.RLock()
	cached, fetchedAt := s.genres, s.fetchedAt
	s.mu.RUnlock()
	if s.ttl > 0 && cached != nil && s.now().Sub(fetchedAt) < s.ttl {
		return cached, nil
	}

	fresh, err := s.reload(ctx)
	if err != nil {
		if s.ttl > 0 && cached != nil {
			log.Warnw("[RecommendationService] genre refresh failed, serving stale map", "error", err, "age", s.now().Sub(fetchedAt).String())
			return cached, nil
		}
		return nil, err
	}
	return fresh, nil
}

func (s *recommendationService) reload(ctx context.Context) (map[string]int64, error) {
	v, err, _ := s.group.Do("genres", func() (interface{}, error) {
		list, err := s.source.GenreList(ctx)
		if err != nil {
			metrics.GenreCacheRefreshes.WithLabelValues("error").Inc()
			return nil, err
		}
		m := make(map[string]int64, len(list))
		for _, g := range list {
			m[textnorm.Normalize(g.Name)] = g.ID
		}
		s.mu.Lock()
		s.genres = m
		s.fetchedAt = s.now()
		s.mu.Unlock()
		metrics.GenreCacheRefreshes.WithLabelValues("ok").Inc()
		return m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: genre list: %v", ErrProviderUnavailable, err)
	}
	return v.(map[string]int64), nil
}

// FetchByGenre returns a uniform random sample of at most count movies for
// genreID, skipping ids in exclude unless that would leave nothing.
func (s *recommendationService) FetchByGenre(ctx context.Context, genreID int64, count int, exclude []int64) (Recommendations, error) {
	if count <= 0 {
		count = DefaultRecommendationCount
	}
	results, err := s.source.Discover(ctx, genreID)
	if err != nil {
		return Recommendations{}, fmt.Errorf("%w: discover: %v", ErrProviderUnavailable, err)
	}
	if len(results) == 0 {
		return Recommendations{}, ErrEmptyResult
	}

	candidates := toMovies(results)
	var reset bool
	if len(exclude) > 0 {
		remaining := withoutIDs(candidates, exclude)
		if len(remaining) == 0 {
			reset = true
		} else {
			candidates = remaining
		}
	}

	s.shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if count > len(candidates) {
		count = len(candidates)
	}
	return Recommendations{Movies: candidates[:count:count], Reset: reset}, nil
}

func toMovies(results []tmdb.Movie) []model.Movie {
	movies := make([]model.Movie, 0, len(results))
	for _, r := range results {
		movies = append(movies, model.Movie{
			ID:         r.ID,
			Title:      r.Title,
			Overview:   r.Overview,
			PosterPath: r.PosterPath,
		})
	}
	return movies
}

func withoutIDs(movies []model.Movie, exclude []int64) []model.Movie {
	skip := make(map[int64]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	out := make([]model.Movie, 0, len(movies))
	for _, m := range movies {
		if _, ok := skip[m.ID]; !ok {
			out = append(out, m)
		}
	}
	return out
}
