// Package tmdb is the minimal TMDb API client used for recommendations.
//
// It exposes the movie genre list and genre-filtered discovery. Every request
// waits on a shared rate limiter and runs through a circuit breaker so a failing
// provider is rejected fast instead of stalling each conversation turn. Options
// allow tests to supply their own HTTP client.
package tmdb
