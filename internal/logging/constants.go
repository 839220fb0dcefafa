package logging

// Standardized field names for structured logging.
const (
	FieldConversationID = "conversation_id"
	FieldUserID         = "user_id"
	FieldState          = "state"
	FieldNextState      = "next_state"
	FieldCorrecting     = "correcting"
	FieldCategory       = "category"
	FieldStrategy       = "strategy"
	FieldOrigin         = "origin"
	FieldEntryID        = "entry_id"
	FieldCollaborator   = "collaborator"
	FieldOperation      = "operation"
	FieldStatus         = "status"
	FieldError          = "error"
	FieldDuration       = "duration_ms"
	FieldCount          = "count"
	FieldFile           = "file_path"
	FieldMethod         = "method"
	FieldPath           = "path"
)
