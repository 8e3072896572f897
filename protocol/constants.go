package protocol

// Protocol versions supported by this library, newest first.
const (
	ProtocolVersion2025   = "2025-03-26"
	ProtocolVersion2024   = "2024-11-05"
	LatestProtocolVersion = ProtocolVersion2025
)

// SupportedVersions lists the protocol versions this client accepts from a
// server, in preference order.
var SupportedVersions = []string{ProtocolVersion2025, ProtocolVersion2024}

// JSON-RPC method names used by MCP.
const (
	// Lifecycle
	MethodInitialize              = "initialize"
	MethodNotificationInitialized = "notifications/initialized"
	MethodShutdown                = "shutdown"
	MethodPing                    = "ping"

	// Tools
	MethodListTools              = "tools/list"
	MethodCallTool               = "tools/call"
	MethodNotifyToolsListChanged = "notifications/tools/list_changed"

	// Resources
	MethodListResources              = "resources/list"
	MethodReadResource               = "resources/read"
	MethodSubscribeResource          = "resources/subscribe"
	MethodUnsubscribeResource        = "resources/unsubscribe"
	MethodNotifyResourcesListChanged = "notifications/resources/list_changed"
	MethodNotifyResourceUpdated      = "notifications/resources/updated"

	// Prompts
	MethodListPrompts              = "prompts/list"
	MethodGetPrompt                = "prompts/get"
	MethodNotifyPromptsListChanged = "notifications/prompts/list_changed"

	// Logging
	MethodLoggingSetLevel     = "logging/setLevel"
	MethodNotificationMessage = "notifications/message"

	// Progress and cancellation
	MethodNotificationProgress  = "notifications/progress"
	MethodNotificationCancelled = "notifications/cancelled"

	// Roots
	MethodRootsList              = "roots/list"
	MethodNotifyRootsListChanged = "notifications/roots/list_changed"
)
