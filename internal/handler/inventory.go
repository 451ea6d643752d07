package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/ordermgmt/internal/model"
	"github.com/iliyamo/ordermgmt/internal/repository"
)

const (
	msgItemExists   = "Item ID already exists"
	msgItemNotFound = "Item not found"
	msgItemAdded    = "Item added successfully"
	msgItemUpdated  = "Item updated successfully"
	msgItemDeleted  = "Item deleted successfully"
)

// InventoryStore is the persistence the inventory handler needs.
// Get, Update and Delete return repository.ErrNotFound for an unknown
// id; Create returns repository.ErrConflict when the id is taken.
type InventoryStore interface {
	List(ctx context.Context) ([]model.InventoryItem, error)
	Get(ctx context.Context, itemID string) (model.InventoryItem, error)
	Create(ctx context.Context, it model.InventoryItem) error
	Update(ctx context.Context, it model.InventoryItem) error
	Delete(ctx context.Context, itemID string) error
}

// InventoryHandler serves the admin inventory CRUD under
// /api/admin/inventory.
type InventoryHandler struct {
	Items InventoryStore
	Log   *zap.Logger
}

// NewInventoryHandler builds the handler. A nil log discards output.
func NewInventoryHandler(items InventoryStore, log *zap.Logger) *InventoryHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &InventoryHandler{Items: items, Log: log}
}

// List handles GET /api/admin/inventory and returns every item ordered
// by id. An empty inventory is an empty JSON array.
func (h *InventoryHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	items, err := h.Items.List(ctx)
	if err != nil {
		return h.internal(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

// Get handles GET /api/admin/inventory/:itemId.
func (h *InventoryHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	it, err := h.Items.Get(ctx, c.Param("itemId"))
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"message": msgItemNotFound})
	}
	if err != nil {
		return h.internal(c, err)
	}
	return c.JSON(http.StatusOK, it)
}

// Create handles POST /api/admin/inventory. The body carries itemId,
// availableStock and reservedStock; a taken id answers 400 with
// "Item ID already exists".
func (h *InventoryHandler) Create(c echo.Context) error {
	var it model.InventoryItem
	if err := c.Bind(&it); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}
	// ids are stored trimmed so lookups by path match
	it.ItemID = strings.TrimSpace(it.ItemID)
	if msg := validateItem(it); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	err := h.Items.Create(ctx, it)
	if errors.Is(err, repository.ErrConflict) {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": msgItemExists})
	}
	if err != nil {
		return h.internal(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msgItemAdded})
}

// Update handles PUT /api/admin/inventory/:itemId and replaces both
// stock counts. The item id comes from the path; an id in the body is
// ignored.
func (h *InventoryHandler) Update(c echo.Context) error {
	var it model.InventoryItem
	if err := c.Bind(&it); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}
	it.ItemID = c.Param("itemId")
	if msg := validateItem(it); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	err := h.Items.Update(ctx, it)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"message": msgItemNotFound})
	}
	if err != nil {
		return h.internal(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msgItemUpdated})
}

// Delete handles DELETE /api/admin/inventory/:itemId.
func (h *InventoryHandler) Delete(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	err := h.Items.Delete(ctx, c.Param("itemId"))
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"message": msgItemNotFound})
	}
	if err != nil {
		return h.internal(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msgItemDeleted})
}

// internal logs err and answers a generic 500 so store details never
// reach the client.
func (h *InventoryHandler) internal(c echo.Context, err error) error {
	h.Log.Error("inventory request failed", zap.String("path", c.Path()), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
}

// validateItem returns the client message for an invalid item, or ""
// when it can be stored.
func validateItem(it model.InventoryItem) string {
	switch {
	case it.ItemID == "":
		return "itemId is required"
	case it.AvailableStock < 0 || it.ReservedStock < 0:
		return "stock must not be negative"
	}
	return ""
}
