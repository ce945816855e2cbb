package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/fileserver-admin/panel"
	"github.com/moyoez/fileserver-admin/session"
	"github.com/moyoez/fileserver-admin/tool"
	"github.com/moyoez/fileserver-admin/transfer"
	"github.com/moyoez/fileserver-admin/types"
)

// PanelController exposes the panel controller to the local web UI.
type PanelController struct {
	panel *panel.Controller
}

// NewPanelController creates the handlers around p.
func NewPanelController(p *panel.Controller) *PanelController {
	return &PanelController{panel: p}
}

// errorStatus picks the HTTP status reported to the web UI for err.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrEmptyCredentials):
		return http.StatusBadRequest
	case errors.Is(err, panel.ErrNotLoggedIn):
		return http.StatusUnauthorized
	case errors.Is(err, panel.ErrNotConfirmed), errors.Is(err, panel.ErrUploadInProgress):
		return http.StatusConflict
	}
	if se, ok := transfer.AsServerError(err); ok && se.Status >= 400 {
		return se.Status
	}
	if errors.Is(err, transfer.ErrConnection) {
		return http.StatusBadGateway
	}
	return http.StatusBadRequest
}

func respondError(c *gin.Context, err error) {
	c.JSON(errorStatus(err), tool.FastReturnError(transfer.UserMessage(err)))
}

// HandleStatus returns the full panel snapshot.
// GET /api/self/v1/status
func (pc *PanelController) HandleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(pc.panel.Snapshot()))
}

// HandleLogin logs in with JSON credentials.
// POST /api/self/v1/login
func (pc *PanelController) HandleLogin(c *gin.Context) {
	var req types.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}
	if err := pc.panel.Login(c.Request.Context(), req.Username, req.Password); err != nil {
		status := errorStatus(err)
		msg := transfer.UserMessage(err)
		if snap := pc.panel.Snapshot(); snap.LoginError != nil {
			msg = snap.LoginError.Text
		}
		if _, ok := transfer.AsServerError(err); ok {
			status = http.StatusUnauthorized
		}
		c.JSON(status, tool.FastReturnError(msg))
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(pc.panel.Snapshot()))
}

// HandleLogout drops the session.
// POST /api/self/v1/logout
func (pc *PanelController) HandleLogout(c *gin.Context) {
	if err := pc.panel.Logout(); err != nil {
		tool.DefaultLogger.Errorf("Logout: %v", err)
		c.JSON(http.StatusInternalServerError, tool.FastReturnError(err.Error()))
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

// HandleListFiles selects the folder filter and reloads the listing.
// GET /api/self/v1/files?folder=
func (pc *PanelController) HandleListFiles(c *gin.Context) {
	if err := pc.panel.SelectFolder(c.Request.Context(), c.Query("folder")); err != nil {
		respondError(c, err)
		return
	}
	snap := pc.panel.Snapshot()
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(gin.H{
		"list":    snap.List,
		"folders": snap.Folders,
	}))
}

// HandleSearch filters the rows already loaded, without asking the server.
// GET /api/self/v1/search?term=
func (pc *PanelController) HandleSearch(c *gin.Context) {
	if pc.panel.State() != panel.StateLoggedIn {
		respondError(c, panel.ErrNotLoggedIn)
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(pc.panel.Search(c.Query("term"))))
}

// HandleServerSearch runs a search on the server.
// POST /api/self/v1/search
func (pc *PanelController) HandleServerSearch(c *gin.Context) {
	var req types.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}
	list, err := pc.panel.SearchServer(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(list))
}
