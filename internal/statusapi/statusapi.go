// Package statusapi exposes a small read-only HTTP view over a loaded
// store: health, the list of installed items, and an on-demand integrity
// check. It does not resolve or install anything itself.
package statusapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prisma-mc/prisma/internal/store"
)

// APIResponse is the standard response envelope for every endpoint here.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Handler serves the status endpoints over a single in-memory Store.
type Handler struct {
	st *store.Store
}

func NewHandler(st *store.Store) *Handler {
	return &Handler{st: st}
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    gin.H{"status": "healthy"},
	})
}

// ListItems handles GET /store.
func (h *Handler) ListItems(c *gin.Context) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    h.st.Items,
	})
}

// ValidateStore handles GET /store/validate.
func (h *Handler) ValidateStore(c *gin.Context) {
	errs := h.st.Validate()
	if len(errs) == 0 {
		c.JSON(http.StatusOK, APIResponse{Success: true, Data: gin.H{"valid": true}})
		return
	}

	messages := make([]string, 0, len(errs))
	for _, err := range errs {
		messages = append(messages, err.Error())
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: false,
		Data:    gin.H{"valid": false, "errors": messages},
	})
}

// Router builds the gin engine serving the status endpoints, with
// logging, recovery and a permissive CORS middleware.
func Router(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Accept, Content-Type")
		c.Header("Access-Control-Max-Age", "300")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	r.GET("/", h.HealthCheck)
	r.GET("/health", h.HealthCheck)
	r.GET("/store", h.ListItems)
	r.GET("/store/validate", h.ValidateStore)

	return r
}
