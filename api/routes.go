package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dynamicdna/academy/internal/rpc"
	"github.com/dynamicdna/academy/internal/session"
	"github.com/dynamicdna/academy/internal/upload"
	"github.com/dynamicdna/academy/pkg/repository"
)

// TRPCPrefix is where the procedure registry is mounted.
const TRPCPrefix = "/api/trpc/"

// Deps wires the router to the rest of the application.
type Deps struct {
	Version   string
	BuildTime string

	Registry     *rpc.Registry
	Resolver     session.IdentityResolver
	Users        repository.UserRepo
	Tokens       *session.TokenManager
	LocalLogin   bool
	LoginLimiter *rpc.IPLimiter
	Uploads      *upload.Service
	DBCheck      func(ctx context.Context) error

	CORSOrigins []string
	StaticDir   string
	UploadsDir  string
}

func SetupRoutes(d Deps) *mux.Router {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)
	r.Use(CORSMiddleware(d.CORSOrigins))

	// Create handlers
	systemHandler := &SystemHandler{DBCheck: d.DBCheck}
	authHandler := NewAuthHandler(d.Users, d.Tokens, d.LocalLogin, d.LoginLimiter)
	uploadHandler := NewUploadHandler(d.Uploads)

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(d.Version, d.BuildTime)).Methods(http.MethodGet)
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods(http.MethodGet)

	// API routes; OPTIONS is listed so CORS preflights reach the middleware
	apiRouter := r.PathPrefix("/api").Subrouter()
	// identities are only resolved where something can use them
	apiRouter.Use(session.Middleware(d.Resolver))
	apiRouter.PathPrefix("/trpc/").Handler(rpc.NewHandler(d.Registry, TRPCPrefix))
	apiRouter.HandleFunc("/local-login", authHandler.LocalLogin).Methods(http.MethodPost, http.MethodOptions)
	apiRouter.HandleFunc("/upload", uploadHandler.Upload).Methods(http.MethodPost, http.MethodOptions)
	apiRouter.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})

	// Uploaded images, then the client bundle with SPA fallback
	if d.UploadsDir != "" {
		r.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads", noListing(d.UploadsDir))).Methods(http.MethodGet, http.MethodHead)
	}
	if d.StaticDir != "" {
		r.PathPrefix("/").Handler(newSPAHandler(d.StaticDir)).Methods(http.MethodGet, http.MethodHead)
	}

	return r
}
