package api

import (
	"github.com/google/uuid"
	"github.com/rpupo63/vizzy-backend/models"
)

// routeHandlers contains all the handlers for different route types
type routeHandlers struct {
	healthHandler  healthHandler
	projectHandler projectHandler
	imageHandler   imageHandler
	uploadHandler  uploadHandler
	storageHandler storageHandler
}

// ErrorResponse represents an error response from the API
// @Description Error response structure
type ErrorResponse struct {
	Error   string `json:"error" example:"Cannot delete the last project"`
	Status  string `json:"status" example:"error"`
	Field   string `json:"field,omitempty" example:"phase"`
	Details string `json:"details,omitempty" example:"Additional error details"`
	Cause   string `json:"cause,omitempty" example:"Underlying error cause"`
}

// StatusResponse acknowledges a mutation without returning an entity
type StatusResponse struct {
	Status  string `json:"status" example:"success"`
	Message string `json:"message" example:"Image deleted successfully"`
}

type CreateProjectRequest struct {
	Name string `json:"name" example:"Atrium"`
}

// ReorderRequest carries the complete ordered id list of a scope
type ReorderRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

type ProjectListResponse struct {
	Projects []models.ProjectSummary `json:"projects"`
}

type ProjectResponse struct {
	Project models.Project `json:"project"`
}

type ImageListResponse struct {
	Images []models.Image `json:"images"`
}

type ImageResponse struct {
	Image models.Image `json:"image"`
}

type HealthResponse struct {
	Status        string `json:"status" example:"ok"`
	Database      string `json:"database" example:"ok"`
	StartupTime   string `json:"startup_time"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}
