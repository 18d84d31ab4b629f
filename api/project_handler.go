package api

import (
	"context"
	"net/http"

	"github.com/rpupo63/vizzy-backend/models"
	"github.com/rpupo63/vizzy-backend/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type projectHandler struct {
	responder Responder
	logger    zerolog.Logger
	projects  *services.ProjectService
	deletes   *services.DeleteCoordinator
}

func newProjectHandler(projects *services.ProjectService, deletes *services.DeleteCoordinator) projectHandler {
	logger := log.With().Str("handlerName", "projectHandler").Logger()

	return projectHandler{
		responder: NewResponder(logger),
		logger:    logger,
		projects:  projects,
		deletes:   deletes,
	}
}

// getAllProjects lists every project with its image aggregates
// @Summary Get all projects
// @Description Lists projects in display order with image count, total size and representative image
// @Tags Projects
// @Produce json
// @Success 200 {object} ProjectListResponse "List of projects"
// @Failure 500 {object} ErrorResponse "Internal Server Error - Error fetching projects"
// @Router /projects [get]
func (h projectHandler) getAllProjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := h.projects.List(r.Context())
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find", "projects", err))
			return
		}

		h.responder.WriteJSON(w, ProjectListResponse{Projects: projects})
	}
}

// createProject creates a new project at the end of the order
// @Summary Create project
// @Description Creates a project after the last existing one
// @Tags Projects
// @Accept json
// @Produce json
// @Param project body CreateProjectRequest true "Project data"
// @Success 201 {object} ProjectResponse "Created project"
// @Failure 400 {object} ErrorResponse "Bad Request - Project name is required"
// @Failure 500 {object} ErrorResponse "Internal Server Error - Error creating project"
// @Router /project [post]
func (h projectHandler) createProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateProjectRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		project, err := h.projects.Create(r.Context(), req.Name)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("create", "project", err))
			return
		}

		h.responder.WriteJSONStatus(w, http.StatusCreated, ProjectResponse{Project: *project})
	}
}

// updateProject applies a partial update
// @Summary Update project
// @Description Updates the name and/or display order of a project. Omitted fields are left unchanged.
// @Tags Projects
// @Accept json
// @Produce json
// @Param projectID path string true "Project ID" format(uuid)
// @Param project body models.ProjectPatch true "Fields to update"
// @Success 200 {object} ProjectResponse "Updated project"
// @Failure 400 {object} ErrorResponse "Bad Request - No fields to update"
// @Failure 404 {object} ErrorResponse "Not Found - Project not found"
// @Failure 500 {object} ErrorResponse "Internal Server Error - Error updating project"
// @Router /project/{projectID} [put]
func (h projectHandler) updateProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := parseIDParam(r, "projectID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		var patch models.ProjectPatch
		if err := decodeJSON(w, r, &patch); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		project, err := h.projects.Update(r.Context(), projectID, patch)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("update", "project", err))
			return
		}

		h.responder.WriteJSON(w, ProjectResponse{Project: *project})
	}
}

// deleteProject deletes a project together with its images
// @Summary Delete project
// @Description Deletes a project, its image rows and their files. The last remaining project cannot be deleted.
// @Tags Projects
// @Produce json
// @Param projectID path string true "Project ID" format(uuid)
// @Success 200 {object} StatusResponse "Success message"
// @Failure 400 {object} ErrorResponse "Bad Request - Invalid projectID"
// @Failure 404 {object} ErrorResponse "Not Found - Project not found"
// @Failure 409 {object} ErrorResponse "Conflict - Cannot delete the last project"
// @Failure 500 {object} ErrorResponse "Internal Server Error - Error deleting project"
// @Router /project/{projectID} [delete]
func (h projectHandler) deleteProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := parseIDParam(r, "projectID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		// Runs to completion even if the client goes away.
		if err := h.deletes.DeleteProject(context.WithoutCancel(r.Context()), projectID); err != nil {
			h.responder.WriteError(w, wrapDatabaseError("delete", "project", err))
			return
		}

		h.responder.WriteSuccess(w, "Project deleted successfully")
	}
}

// reorderProjects assigns positions 0..n-1 to the listed projects
// @Summary Reorder projects
// @Description Applies the complete ordered list of project ids in one batch. Projects left out keep their position.
// @Tags Projects
// @Accept json
// @Produce json
// @Param order body ReorderRequest true "Ordered project ids"
// @Success 200 {object} StatusResponse "Success message"
// @Failure 400 {object} ErrorResponse "Bad Request - Empty, duplicate or unknown ids"
// @Failure 500 {object} ErrorResponse "Internal Server Error - Error reordering projects"
// @Router /projects/order [put]
func (h projectHandler) reorderProjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReorderRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		if err := h.projects.Reorder(r.Context(), req.IDs); err != nil {
			h.responder.WriteError(w, wrapDatabaseError("reorder", "projects", err))
			return
		}

		h.responder.WriteSuccess(w, "Project order updated")
	}
}
