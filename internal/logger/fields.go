package logger

// Standard field names for consistent logging.
const (
	FieldService   = "service"
	FieldOperation = "operation"
	FieldError     = "error"
	FieldTagID     = "tag_id"
	FieldTable     = "table"
	FieldUsername  = "username"
	FieldToken     = "token"
)
