package shared

// Core platform permissions.
const (
	PermFeaturesView = "features.view"
	PermFeaturesEdit = "features.edit"

	PermIdentitiesView = "identities.view"
	PermIdentitiesEdit = "identities.edit"

	PermChatPost       = "chat.post"
	PermChatModerate   = "chat.moderate"
	PermAdminDashboard = "admin.dashboard"
)

// CoreScopes lists all permissions related to the core platform.
func CoreScopes() []string {
	return []string{
		PermFeaturesView,
		PermFeaturesEdit,
		PermIdentitiesView,
		PermIdentitiesEdit,
		PermChatPost,
		PermChatModerate,
		PermAdminDashboard,
	}
}
