package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/receiptorhq/receiptor/internal/category"
)

func (s *Server) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": category.All()})
}
