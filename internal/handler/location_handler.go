package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/healthportal/internal/logging"
)

// ListProvinces 级联下拉：省。
func (a *API) ListProvinces(c *gin.Context) {
	provinces, err := a.locations.ListProvinces()
	if err != nil {
		a.locationFailure(c, "ListProvinces", err)
		return
	}
	c.JSON(http.StatusOK, provinces)
}

// ListDistricts 级联下拉：县。
func (a *API) ListDistricts(c *gin.Context) {
	districts, err := a.locations.ListDistricts(c.Query("province"))
	if err != nil {
		a.locationFailure(c, "ListDistricts", err)
		return
	}
	c.JSON(http.StatusOK, districts)
}

// ListSubDistricts 级联下拉：乡，返回带 id 的选项。
func (a *API) ListSubDistricts(c *gin.Context) {
	options, err := a.locations.ListSubDistricts(c.Query("province"), c.Query("district"))
	if err != nil {
		a.locationFailure(c, "ListSubDistricts", err)
		return
	}
	c.JSON(http.StatusOK, options)
}

func (a *API) locationFailure(c *gin.Context, fn string, err error) {
	logging.LogError(a.logger, "handler", fn, "list locations", c.Request.URL.RawQuery, err)
	c.JSON(http.StatusInternalServerError, Result{Success: false, Message: a.text(c, msgLoadFailed)})
}
