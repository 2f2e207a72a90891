package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/untoldhq/fintrack/internal/tracker/domain"
	"github.com/untoldhq/fintrack/internal/tracker/service"
	"github.com/untoldhq/fintrack/internal/tracker/store"
	"github.com/untoldhq/fintrack/pkg/httpx"
	"github.com/untoldhq/fintrack/pkg/slogx"
)

type CategoriesHandler struct {
	Categories *service.CategoryService
}

type categoryRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

type categoryView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

func viewCategory(c domain.Category) categoryView {
	return categoryView{ID: c.ID, Name: c.Name, Color: c.Color, Icon: c.Icon}
}

func (h *CategoriesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "A category name is required.")
		return
	}

	c, err := h.Categories.Create(ctx, domain.Category{
		Name:      req.Name,
		Color:     req.Color,
		Icon:      req.Icon,
		CreatedBy: httpx.ActorID(ctx),
	})
	if err != nil {
		if errors.Is(err, service.ErrCategoryNameTaken) {
			httpx.WriteError(w, http.StatusConflict, "name_taken", "A category with that name exists.")
			return
		}
		slogx.FromContext(ctx).Error("failed to create category", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Something went wrong.")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, viewCategory(c))
}

func (h *CategoriesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	categories, err := h.Categories.List(ctx)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to list categories", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Something went wrong.")
		return
	}

	views := make([]categoryView, 0, len(categories))
	for _, c := range categories {
		views = append(views, viewCategory(c))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string][]categoryView{"categories": views})
}

func (h *CategoriesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	c, err := h.Categories.Get(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "No such category.")
			return
		}
		slogx.FromContext(ctx).Error("failed to load category", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Something went wrong.")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, viewCategory(c))
}

func (h *CategoriesHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "A category name is required.")
		return
	}

	c := domain.Category{
		ID:    r.PathValue("id"),
		Name:  req.Name,
		Color: req.Color,
		Icon:  req.Icon,
	}
	if err := h.Categories.Update(ctx, c); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			httpx.WriteError(w, http.StatusNotFound, "not_found", "No such category.")
		case errors.Is(err, service.ErrCategoryNameTaken):
			httpx.WriteError(w, http.StatusConflict, "name_taken", "A category with that name exists.")
		default:
			slogx.FromContext(ctx).Error("failed to update category", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Something went wrong.")
		}
		return
	}
	httpx.WriteJSON(w, http.StatusOK, viewCategory(c))
}

func (h *CategoriesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.Categories.Delete(ctx, r.PathValue("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "No such category.")
			return
		}
		slogx.FromContext(ctx).Error("failed to delete category", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Something went wrong.")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
