package errors

import "strings"

// ErrorCode is a string identifier for a specific failure category.
// The prefix names the pipeline stage that produced the failure, which is
// what lets document-level errors always report their failing stage.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeInvalidInput       ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeTimeout            ErrorCode = "COMMON_005"
	ErrCodeSerialization      ErrorCode = "COMMON_006"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_007"
	ErrCodeValidation         ErrorCode = "COMMON_008"
	ErrCodeDatabaseError      ErrorCode = "COMMON_009"
	ErrCodeCacheError         ErrorCode = "COMMON_010"
	ErrCodeUnknown            ErrorCode = "COMMON_999"
)

// Structure parser error codes.  Structural ambiguity is reported through
// ParseResult warnings, never through these codes; they cover only genuine
// failures such as unreadable input.
const (
	ErrCodeParseFailed ErrorCode = "PARSE_001"
	ErrCodeParseEmpty  ErrorCode = "PARSE_002"
)

// Critical data extractor error codes.
const (
	ErrCodeExtractFailed ErrorCode = "EXT_001"
)

// Entity linker error codes.
const (
	ErrCodeOntologyLoadFailed   ErrorCode = "LINK_001"
	ErrCodeOntologyInvalid      ErrorCode = "LINK_002"
	ErrCodeOntologyReloadFailed ErrorCode = "LINK_003"
)

// Learning / strategy selector error codes.
const (
	ErrCodeExternalCallFailed  ErrorCode = "LEARN_001"
	ErrCodeDocumentFailed      ErrorCode = "LEARN_002"
	ErrCodeStrategyUnavailable ErrorCode = "LEARN_003"
	ErrCodeDecisionStoreFailed ErrorCode = "LEARN_004"
)

// Cache error codes.
const (
	ErrCodeCacheMiss        ErrorCode = "CACHE_001"
	ErrCodeCacheCorruption  ErrorCode = "CACHE_002"
	ErrCodeCacheUnavailable ErrorCode = "CACHE_003"
)

// Graph output error codes.
const (
	ErrCodeGraphWriteFailed ErrorCode = "GRAPH_001"
)

// errorCodeMessage maps codes to default human-readable messages.
var errorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal error",
	ErrCodeInvalidInput:       "invalid input",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTimeout:            "operation timed out",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeValidation:         "validation failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeUnknown:            "unknown error",

	ErrCodeParseFailed: "failed to parse legal structure",
	ErrCodeParseEmpty:  "empty document text",

	ErrCodeExtractFailed: "critical data extraction failed",

	ErrCodeOntologyLoadFailed:   "failed to load disease ontology",
	ErrCodeOntologyInvalid:      "disease ontology file is invalid",
	ErrCodeOntologyReloadFailed: "failed to reload disease ontology",

	ErrCodeExternalCallFailed:  "external extraction call failed",
	ErrCodeDocumentFailed:      "document learning failed",
	ErrCodeStrategyUnavailable: "no learning strategy available",
	ErrCodeDecisionStoreFailed: "failed to record learning decision",

	ErrCodeCacheMiss:        "cache miss",
	ErrCodeCacheCorruption:  "cache entry failed to deserialize",
	ErrCodeCacheUnavailable: "cache unavailable",

	ErrCodeGraphWriteFailed: "failed to write to policy graph",
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := errorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// StageForCode returns the pipeline-stage prefix of an ErrorCode
// ("PARSE", "EXT", "LINK", "LEARN", "CACHE", "GRAPH", "COMMON").
func StageForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
