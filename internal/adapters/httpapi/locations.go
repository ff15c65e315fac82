package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mizuki/StudyRoom/internal/store"
)

func (a *API) listLocations(c *gin.Context) {
	c.JSON(http.StatusOK, store.Locations())
}
