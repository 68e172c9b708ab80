package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/healthportal/internal/access"
	"github.com/healthportal/internal/logging"
	"github.com/healthportal/internal/metrics"
	"github.com/healthportal/internal/service"
	"github.com/sirupsen/logrus"
)

type registerRequest struct {
	Username        string `form:"username" json:"username"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirmPassword" json:"confirmPassword"`
	Name            string `form:"name" json:"name"`
	OrgName         string `form:"orgName" json:"orgName"`
	Role            string `form:"role" json:"role"`
	LocationID      uint   `form:"locationId" json:"locationId"`
	Province        string `form:"province" json:"province"`
	District        string `form:"district" json:"district"`
}

type roleOption struct {
	Value string
	Label string
}

var roleLabels = map[access.Role][2]string{
	access.RoleHealthRegion: {"Health Region Office", "เขตสุขภาพ"},
	access.RoleSSJ:          {"Provincial Health Office", "สำนักงานสาธารณสุขจังหวัด"},
	access.RoleSSO:          {"District Health Office", "สำนักงานสาธารณสุขอำเภอ"},
	access.RoleHospital:     {"Hospital", "โรงพยาบาล"},
	access.RolePCU:          {"Primary Care Unit", "หน่วยบริการปฐมภูมิ"},
	access.RoleAdmin:        {"Administrator", "ผู้ดูแลระบบ"},
}

func roleLabel(language string, role string) string {
	pair, ok := roleLabels[access.Role(role)]
	if !ok {
		return role
	}
	return pickPair(language, pair)
}

func (a *API) roleOptions(c *gin.Context) []roleOption {
	lang := a.language(c)
	roles := access.RegistrableRoles()
	options := make([]roleOption, 0, len(roles))
	for _, role := range roles {
		options = append(options, roleOption{Value: string(role), Label: roleLabel(lang, string(role))})
	}
	return options
}

// ShowLogin 渲染登录页，已登录时直接进入仪表盘。
func (a *API) ShowLogin(c *gin.Context) {
	if currentPrincipal(c) != nil {
		c.Redirect(http.StatusFound, "/dashboard")
		return
	}
	a.renderHTML(c, http.StatusOK, "login.html", gin.H{
		"title": a.text(c, msgSiteName),
		"next":  safeNext(c.Query("next")),
	})
}

// Login 校验账号密码并签发会话 cookie。
func (a *API) Login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	next := safeNext(c.PostForm("next"))

	user, err := a.auth.Login(username, password)
	if err != nil {
		result := metrics.ResultRejected
		status := http.StatusUnauthorized
		switch {
		case errors.Is(err, service.ErrPendingApproval):
			result = metrics.ResultPending
			status = http.StatusForbidden
		case !errors.Is(err, service.ErrInvalidCredentials):
			result = metrics.ResultError
			status = http.StatusInternalServerError
			logging.LogError(a.logger, "handler", "Login", "authenticate", logrus.Fields{"username": strings.TrimSpace(username)}, err)
		}
		a.metrics.ObserveLogin(result)
		message := a.errorMessage(c, err)
		if result == metrics.ResultError {
			message = a.text(c, msgLoadFailed)
		}
		a.renderHTML(c, status, "login.html", gin.H{
			"title":    a.text(c, msgSiteName),
			"error":    message,
			"username": username,
			"next":     next,
		})
		return
	}

	token, expires, err := a.sessions.Issue(user.ID)
	if err != nil {
		a.metrics.ObserveLogin(metrics.ResultError)
		logging.LogError(a.logger, "handler", "Login", "issue session", logrus.Fields{"user_id": user.ID}, err)
		a.renderHTML(c, http.StatusInternalServerError, "login.html", gin.H{
			"title": a.text(c, msgSiteName),
			"error": a.text(c, msgLoadFailed),
		})
		return
	}
	a.sessions.SetCookie(c.Writer, token, expires)
	a.metrics.ObserveLogin(metrics.ResultOK)
	a.logger.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("user logged in")

	if next == "" {
		next = "/dashboard"
	}
	c.Redirect(http.StatusFound, next)
}

// Logout 清除会话 cookie。
func (a *API) Logout(c *gin.Context) {
	a.sessions.ClearCookie(c.Writer)
	setFlash(c, "success", a.text(c, msgLoggedOut))
	c.Redirect(http.StatusFound, "/login")
}

// ShowRegister 渲染注册页。
func (a *API) ShowRegister(c *gin.Context) {
	provinces, err := a.locations.ListProvinces()
	if err != nil {
		logging.LogError(a.logger, "handler", "ShowRegister", "list provinces", nil, err)
	}
	a.renderHTML(c, http.StatusOK, "register.html", gin.H{
		"title":     a.text(c, msgSiteName),
		"roles":     a.roleOptions(c),
		"provinces": provinces,
	})
}

// Register 创建待审批账号，返回 Result。
func (a *API) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
		a.respondFailure(c, service.ErrValidation)
		return
	}

	user, err := a.auth.Register(service.RegisterInput{
		Username:        req.Username,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Name:            req.Name,
		OrgName:         req.OrgName,
		Role:            req.Role,
		Location: service.LocationSelection{
			LocationID: req.LocationID,
			Province:   req.Province,
			District:   req.District,
		},
	})
	if err != nil {
		if statusForError(err) == http.StatusInternalServerError {
			logging.LogError(a.logger, "handler", "Register", "create user", logrus.Fields{"username": req.Username}, err)
		}
		a.respondFailure(c, err)
		return
	}

	a.logger.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("user registered")
	respondOK(c, a.text(c, msgRegistered), gin.H{"id": user.ID})
}

// safeNext 只允许站内相对路径，防止开放重定向。
func safeNext(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return ""
	}
	return raw
}
