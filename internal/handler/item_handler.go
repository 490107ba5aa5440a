package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/notevault-api/internal/dto"
	"github.com/noah-isme/notevault-api/internal/models"
	"github.com/noah-isme/notevault-api/pkg/response"
)

type itemService interface {
	Get(ctx context.Context, owner, collectionID, id string) (models.Item, error)
	Create(ctx context.Context, owner, collectionID string, req dto.ItemRequest) models.Result
	Update(ctx context.Context, owner, collectionID, id string, req dto.ItemRequest) models.Result
	Transition(ctx context.Context, owner, collectionID, id string, action models.Action) models.Result
	Lock(ctx context.Context, owner, collectionID, id string, req dto.LockRequest) models.Result
	Unlock(ctx context.Context, owner, collectionID, id string, req dto.PasswordRequest) models.Result
	Verify(ctx context.Context, owner, collectionID, id, password string) (bool, error)
}

// ItemHandler exposes item endpoints nested under their collection.
type ItemHandler struct {
	service itemService
}

// NewItemHandler constructs an item handler.
func NewItemHandler(svc itemService) *ItemHandler {
	return &ItemHandler{service: svc}
}

// Get godoc
// @Summary Get item
// @Tags Items
// @Produce json
// @Security BearerAuth
// @Param id path string true "Collection ID"
// @Param itemId path string true "Item ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /collections/{id}/items/{itemId} [get]
func (h *ItemHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), ownerFromContext(c), c.Param("id"), c.Param("itemId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item)
}

// Create godoc
// @Summary Create item
// @Tags Items
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Collection ID"
// @Param payload body dto.ItemRequest true "Item payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /collections/{id}/items [post]
func (h *ItemHandler) Create(c *gin.Context) {
	var req dto.ItemRequest
	if !bindJSON(c, &req) {
		return
	}
	writeResult(c, http.StatusCreated, h.service.Create(c.Request.Context(), ownerFromContext(c), c.Param("id"), req))
}

// Update godoc
// @Summary Update item
// @Tags Items
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Collection ID"
// @Param itemId path string true "Item ID"
// @Param payload body dto.ItemRequest true "Item payload"
// @Success 200 {object} response.Envelope
// @Router /collections/{id}/items/{itemId} [put]
func (h *ItemHandler) Update(c *gin.Context) {
	var req dto.ItemRequest
	if !bindJSON(c, &req) {
		return
	}
	writeResult(c, http.StatusOK, h.service.Update(c.Request.Context(), ownerFromContext(c), c.Param("id"), c.Param("itemId"), req))
}

// Transition godoc
// @Summary Apply a lifecycle action to one item
// @Tags Items
// @Produce json
// @Security BearerAuth
// @Param id path string true "Collection ID"
// @Param itemId path string true "Item ID"
// @Param action path string true "hide, unhide, delete, restore or purge"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /collections/{id}/items/{itemId}/actions/{action} [post]
func (h *ItemHandler) Transition(c *gin.Context) {
	action, ok := parseAction(c)
	if !ok {
		return
	}
	writeResult(c, http.StatusOK, h.service.Transition(c.Request.Context(), ownerFromContext(c), c.Param("id"), c.Param("itemId"), action))
}

// Purge godoc
// @Summary Permanently remove an item
// @Tags Items
// @Produce json
// @Security BearerAuth
// @Param id path string true "Collection ID"
// @Param itemId path string true "Item ID"
// @Success 200 {object} response.Envelope
// @Router /collections/{id}/items/{itemId} [delete]
func (h *ItemHandler) Purge(c *gin.Context) {
	writeResult(c, http.StatusOK, h.service.Transition(c.Request.Context(), ownerFromContext(c), c.Param("id"), c.Param("itemId"), models.ActionPurge))
}

// Lock godoc
// @Summary Lock item with a password
// @Tags Items
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Collection ID"
// @Param itemId path string true "Item ID"
// @Param payload body dto.LockRequest true "Password"
// @Success 200 {object} response.Envelope
// @Router /collections/{id}/items/{itemId}/lock [post]
func (h *ItemHandler) Lock(c *gin.Context) {
	var req dto.LockRequest
	if !bindJSON(c, &req) {
		return
	}
	writeResult(c, http.StatusOK, h.service.Lock(c.Request.Context(), ownerFromContext(c), c.Param("id"), c.Param("itemId"), req))
}

// Unlock godoc
// @Summary Unlock item
// @Tags Items
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Collection ID"
// @Param itemId path string true "Item ID"
// @Param payload body dto.PasswordRequest true "Password"
// @Success 200 {object} response.Envelope
// @Router /collections/{id}/items/{itemId}/unlock [post]
func (h *ItemHandler) Unlock(c *gin.Context) {
	var req dto.PasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	writeResult(c, http.StatusOK, h.service.Unlock(c.Request.Context(), ownerFromContext(c), c.Param("id"), c.Param("itemId"), req))
}

// Verify godoc
// @Summary Check a password against a locked item
// @Tags Items
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Collection ID"
// @Param itemId path string true "Item ID"
// @Param payload body dto.PasswordRequest true "Password"
// @Success 200 {object} response.Envelope
// @Router /collections/{id}/items/{itemId}/verify [post]
func (h *ItemHandler) Verify(c *gin.Context) {
	var req dto.PasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	valid, err := h.service.Verify(c.Request.Context(), ownerFromContext(c), c.Param("id"), c.Param("itemId"), req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.VerifyResponse{Valid: valid})
}
