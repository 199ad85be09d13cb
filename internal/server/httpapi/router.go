package httpapi

import (
	"github.com/gin-gonic/gin"
)

// NewRouter wires the API routes. Every endpoint requires a bearer token.
func NewRouter(h *Handler, secretKey []byte) *gin.Engine {
	router := gin.Default()

	api := router.Group("/api")
	api.Use(AuthMiddleware(secretKey))
	{
		api.POST("/sharing", h.CreateSharing)
		api.POST("/sharing/stop", h.StopSharing)
		api.POST("/sharing/:team_id/leave", h.LeaveSharing)
		api.DELETE("/sharing/folders/:collection_id", h.DeleteShareFolder)

		api.POST("/invitations/:member_id/accept", h.AcceptInvitation)
		api.POST("/invitations/:member_id/reject", h.RejectInvitation)
		api.POST("/members/:member_id/confirm", h.ConfirmMember)
		api.PUT("/members/:member_id/role", h.UpdateMemberRole)

		api.PUT("/groups/:group_id/role", h.UpdateGroupRole)
		api.POST("/enterprise-groups/:enterprise_group_id/members", h.AddEnterpriseGroupMembers)

		api.GET("/ciphers/:cipher_id/access", h.ResolveCipherAccess)
	}

	return router
}
