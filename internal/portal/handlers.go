package portal

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medrex/clinic-portal/internal/guard"
	"github.com/medrex/clinic-portal/internal/menu"
	"github.com/medrex/clinic-portal/internal/permission"
	"github.com/medrex/clinic-portal/pkg/types"
)

// SessionView is the public shape of the session. The token never leaves
// the process.
type SessionView struct {
	Status      types.SessionStatus `json:"status"`
	User        *types.User         `json:"user,omitempty"`
	Permissions []string            `json:"permissions"`
	Redirect    string              `json:"redirect,omitempty"`
}

func viewOf(sess types.Session) SessionView {
	view := SessionView{
		Status:      sess.Status,
		Permissions: sess.Permissions.Names(),
	}
	if sess.IsAuthenticated() {
		user := sess.User
		view.User = &user
	}
	return view
}

// AccessRequest asks whether the current session may see a region
type AccessRequest struct {
	Permissions []string `json:"permissions"`
	Mode        string   `json:"mode"`
	Inline      bool     `json:"inline"`
}

func (s *Server) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, viewOf(s.deps.Store.Session()))
}

func (s *Server) login(c *gin.Context) {
	var creds types.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   types.ErrCodeInvalidInput,
			"message": "Invalid request format",
			"details": err.Error(),
		})
		return
	}

	if !s.deps.Lifecycle.Login(c.Request.Context(), creds) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   types.ErrCodeAuthenticationFailed,
			"message": "Login failed",
		})
		return
	}

	c.JSON(http.StatusOK, viewOf(s.deps.Store.Session()))
}

func (s *Server) logout(c *gin.Context) {
	s.deps.Lifecycle.Logout(c.Request.Context())

	view := viewOf(s.deps.Store.Session())
	if redirect, ok := s.deps.Redirects.Last(); ok {
		view.Redirect = redirect.Path
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) getMenu(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"items": s.deps.Menu.Items(),
	})
}

func (s *Server) getPermissions(c *gin.Context) {
	perms := s.deps.Store.Session().Permissions

	categories := make(map[string][]string)
	for category, names := range permission.GroupByCategory(perms) {
		list := make([]string, len(names))
		for i, name := range names {
			list[i] = string(name)
		}
		categories[category] = list
	}

	c.JSON(http.StatusOK, gin.H{
		"permissions": perms.Names(),
		"categories":  categories,
	})
}

func (s *Server) evaluateAccess(c *gin.Context) {
	var req AccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   types.ErrCodeInvalidInput,
			"message": "Invalid request format",
			"details": err.Error(),
		})
		return
	}

	requirement := guard.Requirement{Names: permission.Names(req.Permissions...)}
	mode, err := guard.ParseMode(req.Mode)
	if err != nil {
		// unknown modes are evaluated, and denied, as malformed requirements
		mode = guard.Mode(-1)
	}
	requirement.Mode = mode

	policy := guard.FullPage
	if req.Inline {
		policy = guard.Inline
	}

	c.JSON(http.StatusOK, s.deps.Guard.Check(c.Request.Context(), requirement, policy))
}

type catalogEntry struct {
	ID                    string             `json:"id"`
	RoutePath             string             `json:"route"`
	Unconditional         bool               `json:"unconditional"`
	RequiredPermissionAny []types.Permission `json:"required_permission_any"`
	Markers               []string           `json:"markers"`
}

func (s *Server) getPermissionCatalog(c *gin.Context) {
	items := menu.Catalog()
	entries := make([]catalogEntry, len(items))
	for i, item := range items {
		entries[i] = catalogEntry{
			ID:                    item.ID,
			RoutePath:             item.RoutePath,
			Unconditional:         item.Unconditional,
			RequiredPermissionAny: item.RequiredPermissionAny,
			Markers:               item.Markers,
		}
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (s *Server) health(c *gin.Context) {
	report := s.deps.Health.CheckHealth(c.Request.Context())
	c.JSON(report.HTTPStatus(), report)
}
