package main

import (
	"net/http"

	"songbook/internal/app/albums"
	"songbook/internal/app/performers"
	"songbook/internal/app/songs"
	"songbook/internal/app/users"
	"songbook/internal/auth"
	"songbook/internal/config"
	"songbook/internal/http/middleware"
	"songbook/internal/httpapi"
	"songbook/internal/store"
)

type application struct {
	users      users.Service
	songs      songs.Service
	albums     albums.Service
	performers performers.Service
}

func newApplication(cfg *config.Config, dataStore *store.Store) *application {
	tokens := auth.NewTokenManager(auth.Config{
		AccessSecret: cfg.Security.JWTSecret,
		ResetSecret:  cfg.Security.ResetTokenSecret,
		VerifySecret: cfg.Security.VerifyTokenSecret,
		AccessTTL:    cfg.Security.AccessTokenTTL,
	})

	return &application{
		users:      users.New(dataStore, tokens, nil),
		songs:      songs.New(dataStore),
		albums:     albums.New(dataStore),
		performers: performers.New(dataStore),
	}
}

// handler wraps the router so CORS preflights never reach route matching.
func (a *application) handler(allowedOrigins []string) http.Handler {
	routes := httpapi.New(a.users, a.songs, a.albums, a.performers).Routes()

	var h http.Handler = routes
	h = middleware.CORS(allowedOrigins)(h)
	h = middleware.RequestLogging()(h)
	h = middleware.Recovery()(h)
	return h
}
