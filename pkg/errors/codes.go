package errors

// ErrorCodeInfo contains metadata about an error code.
type ErrorCodeInfo struct {
	Code            ErrorCode
	Retryable       bool
	Description     string
	SuggestedAction string
}

// ErrorCodeRegistry maps error codes to their metadata.
var ErrorCodeRegistry = map[ErrorCode]ErrorCodeInfo{
	ErrTimeout: {
		Code:            ErrTimeout,
		Retryable:       true,
		Description:     "Operation exceeded time limit",
		SuggestedAction: "Check reasoner timeout configuration: mycroft config show",
	},
	ErrRateLimit: {
		Code:            ErrRateLimit,
		Retryable:       true,
		Description:     "API rate limit exceeded",
		SuggestedAction: "Wait and retry automatically, or check quota limits with the provider",
	},
	ErrReasonerUnavailable: {
		Code:            ErrReasonerUnavailable,
		Retryable:       true,
		Description:     "Reasoning subprocess or remote service unavailable",
		SuggestedAction: "Verify the claude CLI is installed and on PATH",
	},
	ErrContextCancelled: {
		Code:            ErrContextCancelled,
		Retryable:       false,
		Description:     "Operation cancelled by user or system",
		SuggestedAction: "Check if cancellation was intentional (Ctrl-C, shutdown signal)",
	},
	ErrAuthRevoked: {
		Code:            ErrAuthRevoked,
		Retryable:       false,
		Description:     "Stored credentials rejected by the provider",
		SuggestedAction: "Re-authenticate: mycroft auth login",
	},
	ErrSendFailed: {
		Code:            ErrSendFailed,
		Retryable:       true,
		Description:     "Outbound send operation failed",
		SuggestedAction: "Plan stays pending; check connectivity and the audit log under Logs/",
	},
	ErrParseError: {
		Code:            ErrParseError,
		Retryable:       false,
		Description:     "Item or plan content could not be parsed (malformed structure)",
		SuggestedAction: "Inspect the file in the vault; conservative defaults were applied",
	},
	ErrEmptyContent: {
		Code:            ErrEmptyContent,
		Retryable:       false,
		Description:     "Item content is empty or missing",
		SuggestedAction: "Verify the source file in Needs_Action/",
	},
	ErrVaultConflict: {
		Code:            ErrVaultConflict,
		Retryable:       false,
		Description:     "Destination already holds an item with this name",
		SuggestedAction: "Another agent or a human may have claimed the item; no action needed",
	},
	ErrSyncFailed: {
		Code:            ErrSyncFailed,
		Retryable:       true,
		Description:     "Vault git synchronization failed",
		SuggestedAction: "Check vault repo state: mycroft sync status",
	},
	ErrProcessingError: {
		Code:            ErrProcessingError,
		Retryable:       false,
		Description:     "Unclassified processing error",
		SuggestedAction: "Check agent logs and the audit log under Logs/",
	},
}

// IsRetryable returns true if the given error code represents a transient, retryable error.
func IsRetryable(code ErrorCode) bool {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.Retryable
	}
	return false
}

// GetSuggestedAction returns the suggested action for the given error code.
func GetSuggestedAction(code ErrorCode) string {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.SuggestedAction
	}
	return "Check agent logs for more details"
}

// GetDescription returns the human-readable description for the given error code.
func GetDescription(code ErrorCode) string {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.Description
	}
	return "Unknown error"
}
