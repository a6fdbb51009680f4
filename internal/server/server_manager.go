package server

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"filedrop/server/config"
	"filedrop/server/internal/filestore"
	"filedrop/server/internal/handlers/api"
	"filedrop/server/internal/handlers/ws"
	"filedrop/server/internal/metrics"
	"filedrop/server/internal/upload"
	"filedrop/server/internal/watcher"
	"filedrop/server/internal/websocket"
)

// ServerManager wires the storage, upload pipeline, listener hub and
// HTTP routes together and runs the HTTP server.
type ServerManager struct {
	config  *config.Config
	store   *filestore.FileStore
	hub     *websocket.Hub
	watcher *watcher.Watcher
	router  chi.Router
}

// NewServerManager builds the full service from its configuration.
func NewServerManager(cfg *config.Config) (*ServerManager, error) {
	store, err := filestore.New(cfg.Server.StorageDir)
	if err != nil {
		return nil, err
	}

	hub := websocket.NewHub()
	validator := upload.NewValidator(cfg.Upload.MaxSizeBytes, cfg.Upload.AllowedExtensions)
	pipeline := upload.NewPipeline(validator, store, hub, cfg.Server.PublicBaseURL)

	fileHandlers := api.NewFileHandlers(pipeline, store)
	wsHandlers := ws.New(hub)

	r := chi.NewRouter()
	if cfg.Security.EnableCORS {
		r.Use(corsMiddleware(cfg.Security.CORSOrigins))
	}

	r.Post("/upload", fileHandlers.HandleUpload)
	r.Get("/ws", wsHandlers.HandleListener)
	r.Get("/files/all", fileHandlers.HandleListAll)
	r.Get("/files/{userID}", fileHandlers.HandleListOwner)
	r.Get("/files/{userID}/{filename}", fileHandlers.HandleDownload)
	r.Handle("/metrics", metrics.Handler())

	sm := &ServerManager{
		config: cfg,
		store:  store,
		hub:    hub,
		router: r,
	}

	if cfg.Watcher.Enabled {
		fw, err := watcher.New(store.BaseDir(), hub)
		if err != nil {
			return nil, err
		}
		sm.watcher = fw
	}

	return sm, nil
}

// Router exposes the HTTP handler, mainly for tests.
func (sm *ServerManager) Router() http.Handler {
	return sm.router
}

// Hub exposes the listener registry.
func (sm *ServerManager) Hub() *websocket.Hub {
	return sm.hub
}

// Start runs the HTTP server. It blocks until the server stops.
func (sm *ServerManager) Start() error {
	if sm.watcher != nil {
		if err := sm.watcher.Start(); err != nil {
			return err
		}
		defer sm.watcher.Stop()
		log.Printf("[WATCHER] observing %s for out-of-band files", sm.store.BaseDir())
	}

	log.Printf("[STARTUP] Server initializing...")
	log.Printf("[CONFIG] Storage directory: %s", sm.store.BaseDir())
	log.Printf("[CONFIG] Public base URL: %s", sm.config.Server.PublicBaseURL)
	log.Printf("[CONFIG] Upload size limit: %d bytes", sm.config.Upload.MaxSizeBytes)
	log.Printf("[NETWORK] Port: %s", sm.config.Server.Port)

	return http.ListenAndServe(":"+sm.config.Server.Port, sm.router)
}
