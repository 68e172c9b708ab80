package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/healthportal/internal/db"
	"github.com/healthportal/internal/logging"
	"github.com/healthportal/internal/service"
	"github.com/sirupsen/logrus"
)

type userRow struct {
	ID         uint
	Username   string
	Name       string
	OrgName    string
	Role       string
	RoleLabel  string
	Location   string
	IsApproved bool
	CreatedAt  string
}

func toUserRows(users []db.User, lang string) []userRow {
	rows := make([]userRow, 0, len(users))
	for _, u := range users {
		rows = append(rows, userRow{
			ID:         u.ID,
			Username:   u.Username,
			Name:       u.Name,
			OrgName:    u.OrgName,
			Role:       u.Role,
			RoleLabel:  roleLabel(lang, u.Role),
			Location:   u.Location.Label(),
			IsApproved: u.IsApproved,
			CreatedAt:  u.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	return rows
}

// ShowUsers 账号管理页，默认只列待审批账号。
func (a *API) ShowUsers(c *gin.Context) {
	filter := service.UserFilter{
		Role:   strings.TrimSpace(c.Query("role")),
		Search: strings.TrimSpace(c.Query("q")),
	}
	status := c.DefaultQuery("status", "pending")
	switch status {
	case "pending":
		approved := false
		filter.Approved = &approved
	case "approved":
		approved := true
		filter.Approved = &approved
	default:
		status = "all"
	}

	users, err := a.auth.ListUsers(currentPrincipal(c), filter)
	if err != nil {
		if statusForError(err) == http.StatusInternalServerError {
			logging.LogError(a.logger, "handler", "ShowUsers", "list users", c.Request.URL.RawQuery, err)
			a.renderError(c, http.StatusInternalServerError, a.text(c, msgLoadFailed))
			return
		}
		a.renderError(c, statusForError(err), a.errorMessage(c, err))
		return
	}

	lang := a.language(c)
	a.renderHTML(c, http.StatusOK, "admin_users.html", gin.H{
		"title":  pickPair(lang, [2]string{"User accounts", "จัดการผู้ใช้"}),
		"users":  toUserRows(users, lang),
		"status": status,
		"role":   filter.Role,
		"q":      filter.Search,
		"roles":  a.roleOptions(c),
	})
}

// ApproveUser 审批账号，重复审批视为成功。
func (a *API) ApproveUser(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		a.respondFailure(c, service.ErrUserNotFound)
		return
	}
	p := currentPrincipal(c)
	user, err := a.auth.Approve(p, id)
	if err != nil {
		if statusForError(err) == http.StatusInternalServerError {
			logging.LogError(a.logger, "handler", "ApproveUser", "approve user", logrus.Fields{"target_id": id}, err)
		}
		a.respondFailure(c, err)
		return
	}
	a.logger.WithFields(logrus.Fields{"user_id": p.UserID, "target_id": user.ID}).Info("user approved")
	respondOK(c, a.text(c, msgApproved), gin.H{"id": user.ID, "approved": user.IsApproved})
}

// Health 存活与数据库连通性检查。
func (a *API) Health(c *gin.Context) {
	if err := db.Ping(a.db); err != nil {
		logging.LogError(a.logger, "handler", "Health", "ping database", nil, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
