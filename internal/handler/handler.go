package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"presence/internal/analytics"
	"presence/internal/auth"
	"presence/internal/config"
	"presence/internal/identity"
	"presence/internal/ledger"
	"presence/internal/redemption"
	"presence/internal/roster"
	"presence/internal/session"
)

// Handler carries the wired services behind the HTTP surface.
type Handler struct {
	cfg    config.App
	users  *identity.Service
	repo   *identity.Repository
	groups *roster.Repository
	engine *redemption.Engine
	stats  *analytics.Aggregator
	ledger *ledger.Repository
}

// New builds a handler.
func New(cfg config.App, users *identity.Service, repo *identity.Repository, groups *roster.Repository,
	engine *redemption.Engine, stats *analytics.Aggregator, led *ledger.Repository) *Handler {
	return &Handler{cfg: cfg, users: users, repo: repo, groups: groups, engine: engine, stats: stats, ledger: led}
}

// Mount registers all routes on the engine.
func (h *Handler) Mount(r *gin.Engine) {
	r.POST("/v1/auth/register", h.Register)
	r.POST("/v1/auth/login", h.Login)

	authed := r.Group("/v1", auth.UserAuth(h.cfg.JWTSigningKey, h.cfg.JWTIssuer))
	authed.GET("/auth/profile", h.Profile)
	authed.GET("/users", auth.Require(auth.CapViewUsers), h.ListUsers)

	authed.POST("/groups", auth.Require(auth.CapManageGroups), h.CreateGroup)
	authed.GET("/groups", h.ListGroups)
	authed.POST("/groups/enroll", auth.Require(auth.CapManageGroups), h.Enroll)

	authed.POST("/sessions", auth.Require(auth.CapIssueSessions), h.IssueSession)
	authed.POST("/redemptions", auth.Require(auth.CapRedeem), h.Redeem)

	authed.GET("/attendance", h.History)
	authed.GET("/analytics/groups/:id", auth.Require(auth.CapViewAnalytics), h.GroupAnalytics)
	authed.GET("/analytics/people/:id", h.PersonAnalytics)
}

// ---------- Auth ----------

type registerRequest struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=6"`
	Role       string `json:"role"`
	StudentID  string `json:"student_id"`
	Department string `json:"department"`
	Semester   int    `json:"semester"`
}

// Register creates a principal and hands back a token pair.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	u, err := h.users.Register(c.Request.Context(), identity.RegisterInput{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Role:       req.Role,
		StudentRef: req.StudentID,
		Department: req.Department,
		Semester:   req.Semester,
	})
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrValidation),
			errors.Is(err, identity.ErrEmailExists),
			errors.Is(err, identity.ErrStudentRefExists):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		}
		return
	}

	h.respondWithTokens(c, http.StatusCreated, u)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login verifies credentials and hands back a token pair.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	u, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	h.respondWithTokens(c, http.StatusOK, u)
}

func (h *Handler) respondWithTokens(c *gin.Context, status int, u identity.User) {
	tokens, err := auth.Issue(u.ID, u.Role, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL, h.cfg.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	if err := h.repo.SaveRefreshToken(c.Request.Context(), u.ID, tokens.RefreshToken, tokens.RefreshExp); err != nil {
		log.Printf("save refresh token for %s failed: %v", u.ID, err)
	}

	c.JSON(status, gin.H{
		"user":          u,
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}

// Profile returns the authenticated user.
func (h *Handler) Profile(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	u, err := h.users.Profile(c.Request.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, u)
}

// ListUsers returns all users.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.repo.ListAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// ---------- Groups ----------

type createGroupRequest struct {
	Name         string `json:"name" binding:"required"`
	Code         string `json:"code" binding:"required"`
	Department   string `json:"department"`
	Semester     int    `json:"semester"`
	AcademicYear string `json:"academic_year"`
}

// CreateGroup creates a group owned by the caller.
func (h *Handler) CreateGroup(c *gin.Context) {
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	claims, _ := auth.ClaimsFrom(c)

	g := roster.Group{Name: req.Name, Code: req.Code, OwnerID: claims.Subject}
	if req.Department != "" {
		g.Department = &req.Department
	}
	if req.Semester > 0 {
		g.Semester = &req.Semester
	}
	if req.AcademicYear != "" {
		g.AcademicYear = &req.AcademicYear
	}

	created, err := h.groups.CreateGroup(c.Request.Context(), g)
	if err != nil {
		if errors.Is(err, roster.ErrCodeExists) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, created)
}

// ListGroups returns groups scoped by role: owners see their groups, students
// their enrollments, admins everything.
func (h *Handler) ListGroups(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	ctx := c.Request.Context()

	var (
		groups []roster.Group
		err    error
	)
	switch claims.Role {
	case auth.RoleTeacher:
		groups, err = h.groups.ListByOwner(ctx, claims.Subject)
	case auth.RoleStudent:
		groups, err = h.groups.ListByMember(ctx, claims.Subject)
	default:
		groups, err = h.groups.ListAll(ctx)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

type enrollRequest struct {
	GroupID  string `json:"group_id" binding:"required"`
	PersonID string `json:"person_id" binding:"required"`
}

// Enroll adds a student to a group the caller owns.
func (h *Handler) Enroll(c *gin.Context) {
	var req enrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	claims, _ := auth.ClaimsFrom(c)
	ctx := c.Request.Context()

	g, err := h.groups.GetGroup(ctx, req.GroupID)
	if err != nil {
		if errors.Is(err, roster.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if claims.Role != auth.RoleAdmin && g.OwnerID != claims.Subject {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized"})
		return
	}

	person, err := h.repo.GetByID(ctx, req.PersonID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if person.Role != auth.RoleStudent {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user is not a student"})
		return
	}

	if err := h.groups.Enroll(ctx, req.GroupID, req.PersonID); err != nil {
		if errors.Is(err, roster.ErrAlreadyEnrolled) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "enrolled"})
}

// ---------- Sessions & redemptions ----------

type issueSessionRequest struct {
	GroupID         string `json:"group_id" binding:"required"`
	LifetimeMinutes int    `json:"lifetime_minutes"`
}

// IssueSession mints a redemption token for a group the caller owns.
func (h *Handler) IssueSession(c *gin.Context) {
	var req issueSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	claims, _ := auth.ClaimsFrom(c)

	lifetime := h.cfg.SessionLifetime
	if req.LifetimeMinutes > 0 {
		lifetime = time.Duration(req.LifetimeMinutes) * time.Minute
	}

	s, err := h.engine.IssueSession(c.Request.Context(), req.GroupID, claims.Subject, lifetime)
	if err != nil {
		switch {
		case errors.Is(err, redemption.ErrGroupNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, redemption.ErrNotAuthorized):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, redemption.ErrInvalidLifetime):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session_id":       s.ID,
		"payload":          session.EncodePayload(s),
		"valid_until":      s.ValidUntil,
		"lifetime_minutes": int(lifetime.Minutes()),
	})
}

type redeemRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Token     string `json:"token" binding:"required"`
}

// Redeem presents a token to claim presence for the calling student.
func (h *Handler) Redeem(c *gin.Context) {
	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	claims, _ := auth.ClaimsFrom(c)

	rec, err := h.engine.Redeem(c.Request.Context(), req.SessionID, req.Token, claims.Subject, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, redemption.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, redemption.ErrInvalidOrExpired):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, redemption.ErrNotEnrolled):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, redemption.ErrAlreadyMarked):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "redemption failed"})
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "attendance marked", "record": rec})
}

// ---------- History & analytics ----------

// History returns attendance records scoped by role: students see their own,
// owners their group's, admins everything.
func (h *Handler) History(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	groupID := c.Query("group_id")
	ctx := c.Request.Context()

	var (
		records []ledger.Record
		err     error
	)
	switch claims.Role {
	case auth.RoleStudent:
		records, err = h.ledger.FindByPerson(ctx, claims.Subject, groupID)
	case auth.RoleTeacher:
		if groupID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "group_id is required"})
			return
		}
		var g roster.Group
		g, err = h.groups.GetGroup(ctx, groupID)
		if err != nil {
			if errors.Is(err, roster.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if g.OwnerID != claims.Subject {
			c.JSON(http.StatusForbidden, gin.H{"error": "not authorized"})
			return
		}
		records, err = h.ledger.FindByGroup(ctx, groupID)
	default:
		if groupID != "" {
			records, err = h.ledger.FindByGroup(ctx, groupID)
		} else {
			records, err = h.ledger.FindAll(ctx)
		}
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// GroupAnalytics returns the per-group statistics view.
func (h *Handler) GroupAnalytics(c *gin.Context) {
	report, err := h.stats.GroupReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, roster.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// PersonAnalytics returns the cross-group statistics for one person.
// Students may only view themselves.
func (h *Handler) PersonAnalytics(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	personID := c.Param("id")
	if claims.Role == auth.RoleStudent && personID != claims.Subject {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized"})
		return
	}

	report, err := h.stats.PersonReport(c.Request.Context(), personID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}
