package main

import (
	"net/http"

	"vellum/internal/database"
	"vellum/internal/handlers"
)

func registerAdminRoutes(mux *http.ServeMux) {

	// AUTHENTICATION ROUTES
	mux.HandleFunc("POST /admin/api/login", handlers.LoginRateLimitMiddleware(handlers.LoginHandler))
	mux.HandleFunc("POST /admin/api/logout", handlers.LogoutHandler)

	// ADMIN API ROUTES

	// GET stats
	mux.HandleFunc("GET /admin/api/stats", handlers.RequireRole(database.RoleEditor, handlers.GetStats))

	// Settings CRUD: writes refresh the settings cache and purge rendered pages
	mux.HandleFunc("GET /admin/api/settings", handlers.RequireRole(database.RoleEditor, handlers.ListSettings))
	mux.HandleFunc("PUT /admin/api/settings/{key}", handlers.RequireRole(database.RoleAdmin, handlers.UpdateSetting))
	mux.HandleFunc("DELETE /admin/api/settings/{key}", handlers.RequireRole(database.RoleAdmin, handlers.DeleteSetting))

	// Content CRUD: kind is "post" or "page"
	mux.HandleFunc("POST /admin/api/content/{kind}", handlers.RequireRole(database.RoleEditor, handlers.CreateContent))
	mux.HandleFunc("DELETE /admin/api/content/{kind}/{id}", handlers.RequireRole(database.RoleEditor, handlers.DeleteContent))
}
