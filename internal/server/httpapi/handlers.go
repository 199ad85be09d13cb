// Package httpapi exposes the sharing core over a JSON HTTP API.
package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lockerhq/locker/internal/common"
	"github.com/lockerhq/locker/internal/logging"
	"github.com/lockerhq/locker/internal/server/services"
)

type Handler struct {
	sharing    *services.SharingService
	membership *services.MembershipService
	access     *services.AccessResolver
	logger     logging.Logger
}

func NewHandler(sharing *services.SharingService, membership *services.MembershipService, access *services.AccessResolver, logger logging.Logger) *Handler {
	return &Handler{
		sharing:    sharing,
		membership: membership,
		access:     access,
		logger:     logger.With("module", "httpapi"),
	}
}

func callerID(c *gin.Context) string {
	return c.GetString("user_id")
}

// writeError maps domain sentinels onto HTTP statuses. Unknown errors are
// logged and hidden behind a generic 500.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, common.ErrorInvalidStatus),
		errors.Is(err, common.ErrorInvariantViolation),
		errors.Is(err, common.ErrorMissingShareTarget),
		errors.Is(err, common.ErrorImmutableCipherType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrorTeamLocked):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrorPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		h.logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": common.ErrorInternal.Error()})
	}
}

type memberRequest struct {
	UserID        string  `json:"user_id"`
	Email         string  `json:"email"`
	Role          string  `json:"role"`
	Key           *string `json:"key"`
	HidePasswords bool    `json:"hide_passwords"`
}

type groupMemberRequest struct {
	UserID        string  `json:"user_id"`
	Key           *string `json:"key"`
	HidePasswords bool    `json:"hide_passwords"`
}

type groupRequest struct {
	EnterpriseGroupID string               `json:"enterprise_group_id"`
	Role              string               `json:"role"`
	AccessAll         bool                 `json:"access_all"`
	Members           []groupMemberRequest `json:"members"`
}

type createSharingRequest struct {
	SharingKey     string         `json:"sharing_key" binding:"required"`
	CipherID       *string        `json:"cipher_id"`
	FolderID       *string        `json:"folder_id"`
	CollectionName string         `json:"collection_name"`
	Members        []memberRequest `json:"members"`
	Groups         []groupRequest `json:"groups"`
}

func (h *Handler) CreateSharing(c *gin.Context) {
	var req createSharingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in := services.CreateSharingInput{
		SharingKey:     req.SharingKey,
		CipherID:       req.CipherID,
		FolderID:       req.FolderID,
		CollectionName: req.CollectionName,
	}
	for _, m := range req.Members {
		in.Members = append(in.Members, services.MemberInput{
			UserID: m.UserID, Email: m.Email, Role: m.Role,
			Key: m.Key, HidePasswords: m.HidePasswords,
		})
	}
	for _, g := range req.Groups {
		gi := services.GroupInput{
			EnterpriseGroupID: g.EnterpriseGroupID,
			Role:              g.Role,
			AccessAll:         g.AccessAll,
		}
		for _, gm := range g.Members {
			gi.Members = append(gi.Members, services.GroupMemberInput{
				UserID: gm.UserID, Key: gm.Key, HidePasswords: gm.HidePasswords,
			})
		}
		in.Groups = append(in.Groups, gi)
	}

	res, err := h.sharing.CreateSharing(c.Request.Context(), callerID(c), in)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"team_id":                   res.Team.ID,
		"collection_id":             res.CollectionID,
		"existed_member_users":      res.ExistedMemberUserIDs,
		"non_existed_member_emails": res.NonExistedMemberEmails,
	})
}

type stopSharingRequest struct {
	TeamID     int64   `json:"team_id" binding:"required"`
	MemberID   *string `json:"member_id"`
	GroupID    *int64  `json:"group_id"`
	FolderName string  `json:"folder_name"`
}

func (h *Handler) StopSharing(c *gin.Context) {
	var req stopSharingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.sharing.StopSharing(c.Request.Context(), callerID(c), services.StopSharingInput{
		TeamID:     req.TeamID,
		MemberID:   req.MemberID,
		GroupID:    req.GroupID,
		FolderName: req.FolderName,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) LeaveSharing(c *gin.Context) {
	teamID, err := strconv.ParseInt(c.Param("team_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid team id"})
		return
	}

	if err := h.sharing.LeaveSharing(c.Request.Context(), callerID(c), teamID); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) DeleteShareFolder(c *gin.Context) {
	if err := h.sharing.DeleteShareFolder(c.Request.Context(), callerID(c), c.Param("collection_id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) AcceptInvitation(c *gin.Context) {
	m, err := h.membership.Accept(c.Request.Context(), callerID(c), c.Param("member_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"member_id": m.ID, "status": m.Status})
}

func (h *Handler) RejectInvitation(c *gin.Context) {
	if err := h.membership.Reject(c.Request.Context(), callerID(c), c.Param("member_id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type confirmRequest struct {
	Key string `json:"key" binding:"required"`
}

func (h *Handler) ConfirmMember(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, err := h.membership.Confirm(c.Request.Context(), callerID(c), c.Param("member_id"), req.Key)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"member_id": m.ID, "status": m.Status})
}

type updateRoleRequest struct {
	Role          string `json:"role" binding:"required"`
	HidePasswords bool   `json:"hide_passwords"`
}

func (h *Handler) UpdateMemberRole(c *gin.Context) {
	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, err := h.membership.UpdateRole(c.Request.Context(), callerID(c), c.Param("member_id"), req.Role, req.HidePasswords)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"member_id": m.ID, "role": m.Role, "hide_passwords": m.HidePasswords})
}

func (h *Handler) UpdateGroupRole(c *gin.Context) {
	groupID, err := strconv.ParseInt(c.Param("group_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return
	}

	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.membership.UpdateGroupRole(c.Request.Context(), callerID(c), groupID, req.Role); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type addGroupMembersRequest struct {
	UserIDs []string `json:"user_ids" binding:"required"`
}

func (h *Handler) AddEnterpriseGroupMembers(c *gin.Context) {
	var req addGroupMembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.sharing.AddEnterpriseGroupMembers(c.Request.Context(), c.Param("enterprise_group_id"), req.UserIDs); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) ResolveCipherAccess(c *gin.Context) {
	a, err := h.access.ResolveCipher(c.Request.Context(), callerID(c), c.Param("cipher_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reachable":     a.Reachable,
		"view_password": a.ViewPassword,
		"role":          a.Role,
	})
}
