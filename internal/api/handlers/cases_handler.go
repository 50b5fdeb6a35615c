package handlers

import (
	"net/http"
	"strings"

	"github.com/court-opinions/engine/internal/api/types"
	"github.com/court-opinions/engine/internal/services"
	"github.com/google/uuid"
)

type CasesHandler struct {
	cases       services.CaseService
	assignments services.AssignmentService
}

func NewCasesHandler(cases services.CaseService, assignments services.AssignmentService) *CasesHandler {
	return &CasesHandler{cases: cases, assignments: assignments}
}

// List returns the project's case records in import order.
func (h *CasesHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := target(w, r)
	if !ok {
		return
	}
	page, ok := pageFrom(w, r)
	if !ok {
		return
	}
	records, err := h.cases.ListCases(r.Context(), actor, id, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{
		Success: true,
		Data:    records,
		Meta:    &types.Meta{PageSize: page.Limit, Total: int64(len(records))},
	})
}

// Table handles ?columns=a,b&all=1.
func (h *CasesHandler) Table(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := target(w, r)
	if !ok {
		return
	}
	page, ok := pageFrom(w, r)
	if !ok {
		return
	}
	q := services.TableQuery{All: boolQuery(r, "all"), Page: page}
	if raw := r.URL.Query().Get("columns"); raw != "" {
		for _, c := range strings.Split(raw, ",") {
			if c = strings.TrimSpace(c); c != "" {
				q.Columns = append(q.Columns, c)
			}
		}
	}
	table, err := h.cases.Table(r.Context(), actor, id, q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, table)
}

func (h *CasesHandler) AssignValidator(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := target(w, r)
	if !ok {
		return
	}
	caseID, ok := uuidParam(w, r, "caseId")
	if !ok {
		return
	}
	var req types.AssignValidatorRequest
	if !decode(w, r, &req) {
		return
	}
	a, err := h.assignments.AssignValidator(r.Context(), actor, id, caseID, &services.AssignValidatorInput{
		ValidatorID: uuid.MustParse(req.ValidatorID),
		Priority:    req.Priority,
		Notes:       req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, a)
}

func pageFrom(w http.ResponseWriter, r *http.Request) (services.Page, bool) {
	limit, err := intQuery(r, "limit", 0)
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, err.Error())
		return services.Page{}, false
	}
	offset, err := intQuery(r, "offset", 0)
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, err.Error())
		return services.Page{}, false
	}
	return services.Page{Limit: limit, Offset: offset}, true
}
