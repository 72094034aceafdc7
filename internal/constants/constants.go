package constants

const (
	// Session
	SessionCookieName   = "mayau_session"
	ContextKeyUserID    = "user_id"
	ContextKeyProfile   = "profile"
	ContextKeyWorkspace = "workspace"
	ContextKeyTask      = "task"

	// Tasks
	MaxTitleLength      = 200
	MaxAIGeneratedTasks = 20

	// Attachments
	MaxAttachmentBytes = 25 << 20

	// Filters
	StatusFilterAll = "all"
)
