// Package api exposes the ordering platform over HTTP.
package api

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mesa/internal/audit"
	"mesa/internal/auth"
	"mesa/internal/domain"
	"mesa/internal/menu"
	"mesa/internal/metrics"
	"mesa/internal/orders"
	"mesa/internal/store"
	"mesa/internal/tables"
)

// maxBodyBytes bounds request bodies, imports included.
const maxBodyBytes = 4 << 20

// Dependencies are the components the HTTP surface delegates to.
type Dependencies struct {
	Store    *store.Store
	Tables   *tables.Registry
	Orders   *orders.Ledger
	Menu     *menu.Catalog
	Auth     *auth.Service
	Sessions *auth.Middleware
	Audit    *audit.Recorder

	// Realtime serves /ws. Nil disables the endpoint.
	Realtime http.Handler

	// QRDir is served under /qrcodes/. Empty disables the endpoint.
	QRDir string

	// AllowedOrigin is sent in CORS responses. Defaults to "*".
	AllowedOrigin string
}

// Server holds the HTTP handlers.
type Server struct {
	deps     Dependencies
	validate *validator.Validate
}

// NewServer creates the HTTP surface over deps.
func NewServer(deps Dependencies) *Server {
	if deps.AllowedOrigin == "" {
		deps.AllowedOrigin = "*"
	}
	return &Server{
		deps:     deps,
		validate: newValidator(),
	}
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(metrics.Middleware)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Staff sessions
	r.HandleFunc("/login", s.handleLogin("admin", domain.RoleAdmin)).Methods(http.MethodPost)
	r.HandleFunc("/login-cocina", s.handleLogin("kitchen", domain.RoleKitchen, domain.RoleAdmin)).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	r.HandleFunc("/api/check-auth", s.handleCheckAuth).Methods(http.MethodGet)

	// Customers
	r.HandleFunc("/api/data", s.handlePublicMenu).Methods(http.MethodGet)
	r.HandleFunc("/api/validate-qr", s.handleValidateQR).Methods(http.MethodPost)
	r.HandleFunc("/api/orders", s.handleCreateOrder).Methods(http.MethodPost)
	r.HandleFunc("/api/tables/{code}/orders", s.handleTableOrders).Methods(http.MethodGet)

	// Kitchen
	r.Handle("/api/orders", s.kitchen(s.handleListOrders)).Methods(http.MethodGet)
	r.Handle("/api/orders/{id}/status", s.kitchen(s.handleOrderStatus)).Methods(http.MethodPatch)

	// Admin
	r.Handle("/api/tables", s.admin(s.handleListTables)).Methods(http.MethodGet)
	r.Handle("/api/tables", s.admin(s.handleCreateTable)).Methods(http.MethodPost)
	r.Handle("/api/tables/{code}/status", s.admin(s.handleTableStatus)).Methods(http.MethodPatch)
	r.Handle("/api/tables/{code}/reissue", s.admin(s.handleReissueTable)).Methods(http.MethodPost)
	r.Handle("/api/tables/{code}", s.admin(s.handleDeleteTable)).Methods(http.MethodDelete)

	r.Handle("/api/products", s.admin(s.handleListProducts)).Methods(http.MethodGet)
	r.Handle("/api/products", s.admin(s.handleCreateProduct)).Methods(http.MethodPost)
	r.Handle("/api/products/{id}", s.admin(s.handleUpdateProduct)).Methods(http.MethodPut)
	r.Handle("/api/products/{id}", s.admin(s.handleDeleteProduct)).Methods(http.MethodDelete)

	r.Handle("/api/categories", s.admin(s.handleListCategories)).Methods(http.MethodGet)
	r.Handle("/api/categories", s.admin(s.handleCreateCategory)).Methods(http.MethodPost)
	r.Handle("/api/categories/{id}", s.admin(s.handleUpdateCategory)).Methods(http.MethodPut)
	r.Handle("/api/categories/{id}", s.admin(s.handleDeleteCategory)).Methods(http.MethodDelete)

	r.Handle("/api/logs", s.admin(s.handleLogs)).Methods(http.MethodGet)
	r.Handle("/api/export", s.admin(s.handleExport)).Methods(http.MethodGet)
	r.Handle("/api/import", s.admin(s.handleImport)).Methods(http.MethodPost)

	if s.deps.Realtime != nil {
		r.Handle("/ws", s.deps.Realtime).Methods(http.MethodGet)
	}
	if s.deps.QRDir != "" {
		images := http.StripPrefix("/qrcodes/", http.FileServer(http.Dir(s.deps.QRDir)))
		r.PathPrefix("/qrcodes/").Handler(noDirectoryListing(images)).Methods(http.MethodGet)
	}

	return s.addCORS(r)
}

func (s *Server) admin(h http.HandlerFunc) http.Handler {
	return s.deps.Sessions.RequireRole(domain.RoleAdmin)(h)
}

func (s *Server) kitchen(h http.HandlerFunc) http.Handler {
	return s.deps.Sessions.RequireRole(domain.RoleKitchen, domain.RoleAdmin)(h)
}

// addCORS handles preflight requests for browser clients.
func (s *Server) addCORS(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.deps.AllowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Table-Token")
		if s.deps.AllowedOrigin != "*" {
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		handler.ServeHTTP(w, r)
	})
}

func noDirectoryListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
