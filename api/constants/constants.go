package constants

// Response keys
const (
	ValueSuccess = "success"
	ValueError   = "error"
	ValueValid   = "valid"
)

// Content Types
const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "Content-Type"
)

// CORS headers
const (
	HeaderAccessControlAllowOrigin  = "Access-Control-Allow-Origin"
	HeaderAccessControlAllowHeaders = "Access-Control-Allow-Headers"
	HeaderAccessControlAllowMethods = "Access-Control-Allow-Methods"
	CORSAllowedHeaders              = "authorization, x-client-info, apikey, content-type"
)

// Date formats
const (
	DateFormat     = "2006-01-02"
	DateTimeFormat = "2006-01-02 15:04:05"
)
