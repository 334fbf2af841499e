// Package service contains the business logic of the recommendation chat.
package service

import "errors"

var (
	// ErrClassificationUnavailable means the embedding provider failed; fatal for the turn.
	ErrClassificationUnavailable = errors.New("genre classification unavailable")
	// ErrGenreNotFound means the classified genre is absent from the provider catalog.
	ErrGenreNotFound = errors.New("genre not found in provider catalog")
	// ErrProviderUnavailable means the metadata provider failed; fatal for the turn.
	ErrProviderUnavailable = errors.New("movie provider unavailable")
	// ErrEmptyResult means the provider returned no movies for a genre.
	ErrEmptyResult = errors.New("no movies for genre")
)
