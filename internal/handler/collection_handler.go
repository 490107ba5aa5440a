package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/notevault-api/internal/dto"
	"github.com/noah-isme/notevault-api/internal/models"
	"github.com/noah-isme/notevault-api/pkg/response"
)

type collectionService interface {
	Get(ctx context.Context, owner, id string) (models.Collection, error)
	Create(ctx context.Context, owner string, req dto.CollectionRequest) models.Result
	Update(ctx context.Context, owner, id string, req dto.CollectionRequest) models.Result
	Transition(ctx context.Context, owner, id string, action models.Action) models.Result
	Lock(ctx context.Context, owner, id string, req dto.LockRequest) models.Result
	Unlock(ctx context.Context, owner, id string, req dto.PasswordRequest) models.Result
	Verify(ctx context.Context, owner, id, password string) (bool, error)
}

// CollectionHandler exposes collection endpoints.
type CollectionHandler struct {
	service collectionService
}

// NewCollectionHandler constructs a collection handler.
func NewCollectionHandler(svc collectionService) *CollectionHandler {
	return &CollectionHandler{service: svc}
}

// Get godoc
// @Summary Get collection
// @Tags Collections
// @Produce json
// @Security BearerAuth
// @Param id path string true "Collection ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /collections/{id} [get]
func (h *CollectionHandler) Get(c *gin.Context) {
	collection, err := h.service.Get(c.Request.Context(), ownerFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, collection)
}

// Palette godoc
// @Summary List preset colors
// @Tags Collections
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /palette [get]
func (h *CollectionHandler) Palette(c *gin.Context) {
	colors := make([]string, len(models.ColorPalette))
	copy(colors, models.ColorPalette)
	response.JSON(c, http.StatusOK, dto.PaletteResponse{Default: models.DefaultColor, Colors: colors})
}

// Create godoc
// @Summary Create collection
// @Tags Collections
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CollectionRequest true "Collection payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /collections [post]
func (h *CollectionHandler) Create(c *gin.Context) {
	var req dto.CollectionRequest
	if !bindJSON(c, &req) {
		return
	}
	writeResult(c, http.StatusCreated, h.service.Create(c.Request.Context(), ownerFromContext(c), req))
}

// Update godoc
// @Summary Update collection name and color
// @Tags Collections
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Collection ID"
// @Param payload body dto.CollectionRequest true "Collection payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /collections/{id} [put]
func (h *CollectionHandler) Update(c *gin.Context) {
	var req dto.CollectionRequest
	if !bindJSON(c, &req) {
		return
	}
	writeResult(c, http.StatusOK, h.service.Update(c.Request.Context(), ownerFromContext(c), c.Param("id"), req))
}

// Transition godoc
// @Summary Apply a lifecycle action to a collection and its items
// @Tags Collections
// @Produce json
// @Security BearerAuth
// @Param id path string true "Collection ID"
// @Param action path string true "hide, unhide, delete, restore or purge"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /collections/{id}/actions/{action} [post]
func (h *CollectionHandler) Transition(c *gin.Context) {
	action, ok := parseAction(c)
	if !ok {
		return
	}
	writeResult(c, http.StatusOK, h.service.Transition(c.Request.Context(), ownerFromContext(c), c.Param("id"), action))
}

// Purge godoc
// @Summary Permanently remove a collection and its items
// @Tags Collections
// @Produce json
// @Security BearerAuth
// @Param id path string true "Collection ID"
// @Success 200 {object} response.Envelope
// @Router /collections/{id} [delete]
func (h *CollectionHandler) Purge(c *gin.Context) {
	writeResult(c, http.StatusOK, h.service.Transition(c.Request.Context(), ownerFromContext(c), c.Param("id"), models.ActionPurge))
}

// Lock godoc
// @Summary Lock collection with a password
// @Tags Collections
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Collection ID"
// @Param payload body dto.LockRequest true "Password"
// @Success 200 {object} response.Envelope
// @Router /collections/{id}/lock [post]
func (h *CollectionHandler) Lock(c *gin.Context) {
	var req dto.LockRequest
	if !bindJSON(c, &req) {
		return
	}
	writeResult(c, http.StatusOK, h.service.Lock(c.Request.Context(), ownerFromContext(c), c.Param("id"), req))
}

// Unlock godoc
// @Summary Unlock collection
// @Tags Collections
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Collection ID"
// @Param payload body dto.PasswordRequest true "Password"
// @Success 200 {object} response.Envelope
// @Router /collections/{id}/unlock [post]
func (h *CollectionHandler) Unlock(c *gin.Context) {
	var req dto.PasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	writeResult(c, http.StatusOK, h.service.Unlock(c.Request.Context(), ownerFromContext(c), c.Param("id"), req))
}

// Verify godoc
// @Summary Check a password against a locked collection
// @Tags Collections
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Collection ID"
// @Param payload body dto.PasswordRequest true "Password"
// @Success 200 {object} response.Envelope
// @Router /collections/{id}/verify [post]
func (h *CollectionHandler) Verify(c *gin.Context) {
	var req dto.PasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	valid, err := h.service.Verify(c.Request.Context(), ownerFromContext(c), c.Param("id"), req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.VerifyResponse{Valid: valid})
}
