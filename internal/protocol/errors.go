package protocol

// ErrorCode is the fixed taxonomy from the wire grammar.
type ErrorCode uint32

const (
	ErrInvalidMessage     ErrorCode = 1
	ErrCommandFailed      ErrorCode = 2
	ErrTimeout            ErrorCode = 3
	ErrConnectionLost     ErrorCode = 4
	ErrInvalidParameter   ErrorCode = 5
	ErrUnknownCommand     ErrorCode = 6
	ErrExtensionNotLoaded ErrorCode = 7
	ErrSymbolLoadError    ErrorCode = 8
	ErrMemoryAccessError  ErrorCode = 9
	ErrProcessNotFound    ErrorCode = 10
	ErrThreadError        ErrorCode = 11
	ErrInternalError      ErrorCode = 16
)

// ErrorCategory groups codes for client-side dispatch.
type ErrorCategory uint8

const (
	CategorySystem        ErrorCategory = iota // InvalidMessage, CommandFailed, InternalError
	CategoryTimeout                            // Timeout
	CategoryCommunication                      // ConnectionLost
	CategoryUserInput                          // InvalidParameter, UnknownCommand
	CategoryExtension                          // ExtensionNotLoaded
	CategorySymbol                             // SymbolLoadError
	CategoryMemory                             // MemoryAccessError
	CategoryProcess                            // ProcessNotFound, ThreadError
)

var codeCategory = map[ErrorCode]ErrorCategory{
	ErrInvalidMessage:     CategorySystem,
	ErrCommandFailed:      CategorySystem,
	ErrTimeout:            CategoryTimeout,
	ErrConnectionLost:     CategoryCommunication,
	ErrInvalidParameter:   CategoryUserInput,
	ErrUnknownCommand:     CategoryUserInput,
	ErrExtensionNotLoaded: CategoryExtension,
	ErrSymbolLoadError:    CategorySymbol,
	ErrMemoryAccessError:  CategoryMemory,
	ErrProcessNotFound:    CategoryProcess,
	ErrThreadError:        CategoryProcess,
	ErrInternalError:      CategorySystem,
}

const defaultSuggestion = "Check the logs for more detailed error information"

var codeSuggestion = map[ErrorCode]string{
	ErrInvalidMessage:    "Check message format and ensure it follows the protocol specification",
	ErrCommandFailed:     "Verify the command syntax and try again",
	ErrTimeout:           "Increase timeout value or check if the target is responsive",
	ErrExtensionNotLoaded: "Load the extension first using the connect command",
	ErrProcessNotFound:   "Ensure the target process is running and accessible",
	ErrMemoryAccessError: "Check memory addresses and permissions",
}

// CategoryFor returns the fixed category for a code, defaulting to
// CategorySystem for any code outside the taxonomy.
func CategoryFor(code ErrorCode) ErrorCategory {
	if cat, ok := codeCategory[code]; ok {
		return cat
	}
	return CategorySystem
}

// SuggestionFor returns the fixed suggestion string for a code, or the
// generic fallback for codes with no specific entry.
func SuggestionFor(code ErrorCode) string {
	if s, ok := codeSuggestion[code]; ok {
		return s
	}
	return defaultSuggestion
}

// MakeError populates an ErrorPayload's category and suggestion from
// the fixed tables.
func MakeError(requestID string, code ErrorCode, message string, details map[string]interface{}) ErrorPayload {
	return ErrorPayload{
		RequestID:    requestID,
		ErrorCode:    uint32(code),
		Category:     CategoryFor(code),
		ErrorMessage: message,
		Suggestion:   SuggestionFor(code),
		Details:      details,
	}
}
