package roles

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aegis-admin/aegis/internal/platform/httpx"
)

// Handler wires HTTP endpoints for role administration.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

type createRequest struct {
	Name        string  `json:"name" validate:"required,max=50"`
	Description string  `json:"description" validate:"max=200"`
	Disabled    bool    `json:"disabled"`
	Permissions []int64 `json:"permissions"`
}

// Create handles POST /roles.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "name is required")
		return
	}
	if err := h.service.Create(r.Context(), req.Name, req.Description, req.Disabled, req.Permissions); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, struct{}{})
}

// FindAll handles GET /roles.
func (h *Handler) FindAll(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	result, err := h.service.FindAll(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

// FindOne handles GET /roles/{id}.
func (h *Handler) FindOne(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	role, err := h.service.FindOne(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if role.PermissionIDs == nil {
		role.PermissionIDs = []int64{}
	}
	httpx.JSON(w, http.StatusOK, role)
}

type updateRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Disabled    *bool    `json:"disabled"`
	Permissions *[]int64 `json:"permissions"`
}

// Update handles PATCH /roles/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request body")
		return
	}
	patch := Patch{
		Name:        req.Name,
		Description: req.Description,
		Disabled:    req.Disabled,
		Permissions: req.Permissions,
	}
	if err := h.service.Update(r.Context(), id, patch); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, struct{}{})
}

// Remove handles DELETE /roles/{id}.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Remove(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, struct{}{})
}

type batchRemoveRequest struct {
	IDs []int64 `json:"ids" validate:"required,min=1"`
}

// BatchRemove handles POST /roles/batch-remove.
func (h *Handler) BatchRemove(w http.ResponseWriter, r *http.Request) {
	var req batchRemoveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "ids are required")
		return
	}
	if err := h.service.BatchRemove(r.Context(), req.IDs); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, struct{}{})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	httpx.RespondError(w, err)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid role id")
		return 0, false
	}
	return id, true
}

func parseListFilter(r *http.Request) (ListFilter, error) {
	query := r.URL.Query()
	var filter ListFilter

	if raw := query.Get("disabled"); raw != "" {
		disabled, err := strconv.ParseBool(raw)
		if err != nil {
			return ListFilter{}, err
		}
		filter.Disabled = &disabled
	}
	filter.Keyword = query.Get("keyword")
	if raw := query.Get("beginTime"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return ListFilter{}, err
		}
		filter.BeginTime = &t
	}
	if raw := query.Get("endTime"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return ListFilter{}, err
		}
		filter.EndTime = &t
	}
	if raw := query.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return ListFilter{}, err
		}
		filter.Page = page
	}
	if raw := query.Get("pageSize"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return ListFilter{}, err
		}
		filter.PageSize = size
	}
	filter.SortDesc = query.Get("sort") == "desc"
	return filter, nil
}
