package handlers

import (
	"net/http"
	"strconv"

	"github.com/court-opinions/engine/internal/api/types"
	"github.com/court-opinions/engine/internal/models"
	"github.com/court-opinions/engine/internal/services"
	"github.com/google/uuid"
)

// unassignSentinel is the scholar_id value that clears the assignment.
const unassignSentinel = "-1"

type ProjectsHandler struct {
	projects services.ProjectService
}

func NewProjectsHandler(projects services.ProjectService) *ProjectsHandler {
	return &ProjectsHandler{projects: projects}
}

func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	items, err := h.projects.ListProjects(r.Context(), actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{
		Success: true,
		Data:    types.NewProjectList(items),
		Meta:    &types.Meta{Total: int64(len(items))},
	})
}

func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req types.ProjectCreateRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.projects.CreateProject(r.Context(), actor, &services.CreateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		AIModel:     req.AIModel,
		BudgetLimit: req.BudgetLimit,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, types.NewProjectResponse(p))
}

func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := target(w, r)
	if !ok {
		return
	}
	h.reply(w, r)(h.projects.GetProject(r.Context(), actor, id))
}

func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := target(w, r)
	if !ok {
		return
	}
	var req types.ProjectUpdateRequest
	if !decode(w, r, &req) {
		return
	}
	h.reply(w, r)(h.projects.UpdateProject(r.Context(), actor, id, &services.UpdateProjectInput{
		Name:        req.Name,
		Description: req.Description,
	}))
}

func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := target(w, r)
	if !ok {
		return
	}
	if err := h.projects.DeleteProject(r.Context(), actor, id); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"message": "project deleted"})
}

// AssignScholar handles ?scholar_id=<uuid|-1>.
func (h *ProjectsHandler) AssignScholar(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := target(w, r)
	if !ok {
		return
	}
	raw := r.URL.Query().Get("scholar_id")
	if raw == unassignSentinel {
		h.reply(w, r)(h.projects.UnassignScholar(r.Context(), actor, id))
		return
	}
	scholarID, err := uuid.Parse(raw)
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "scholar_id must be a user id or -1")
		return
	}
	h.reply(w, r)(h.projects.AssignScholar(r.Context(), actor, id, scholarID))
}

func (h *ProjectsHandler) UnassignScholar(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := target(w, r)
	if !ok {
		return
	}
	h.reply(w, r)(h.projects.UnassignScholar(r.Context(), actor, id))
}

func (h *ProjectsHandler) SendToScholar(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := target(w, r)
	if !ok {
		return
	}
	h.reply(w, r)(h.projects.SendToScholar(r.Context(), actor, id))
}

func (h *ProjectsHandler) Launch(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := target(w, r)
	if !ok {
		return
	}
	h.reply(w, r)(h.projects.Launch(r.Context(), actor, id))
}

// UpdateAIModel handles ?ai_model=<name>.
func (h *ProjectsHandler) UpdateAIModel(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := target(w, r)
	if !ok {
		return
	}
	h.reply(w, r)(h.projects.UpdateAIModel(r.Context(), actor, id, r.URL.Query().Get("ai_model")))
}

// SetBudget handles ?budget_limit=<n>.
func (h *ProjectsHandler) SetBudget(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := target(w, r)
	if !ok {
		return
	}
	limit, err := strconv.ParseFloat(r.URL.Query().Get("budget_limit"), 64)
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "budget_limit must be a number")
		return
	}
	h.reply(w, r)(h.projects.SetBudget(r.Context(), actor, id, limit))
}

func (h *ProjectsHandler) RecordUsage(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := target(w, r)
	if !ok {
		return
	}
	var req types.UsageRequest
	if !decode(w, r, &req) {
		return
	}
	h.reply(w, r)(h.projects.RecordUsage(r.Context(), actor, id, req.Tokens, req.Cost))
}

// reply writes the project returned by a service call, or its error.
func (h *ProjectsHandler) reply(w http.ResponseWriter, r *http.Request) func(*models.Project, error) {
	return func(p *models.Project, err error) {
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, types.NewProjectResponse(p))
	}
}
