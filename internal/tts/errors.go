package tts

import (
	"errors"
	"fmt"
)

// Common talker errors
var (
	// ErrAudioUnavailable indicates the response audio could not be written to disk
	ErrAudioUnavailable = errors.New("speech audio unavailable")

	// ErrDisabled indicates the talker is switched off in the settings
	ErrDisabled = errors.New("TTS is not enabled")

	// ErrUnknownLanguage indicates no voice is configured for a language
	ErrUnknownLanguage = errors.New("unknown language")

	// ErrSynthesisFailed indicates the vendor could not synthesize the text
	ErrSynthesisFailed = errors.New("text synthesis failed")

	// ErrEmptyText indicates there is nothing to say
	ErrEmptyText = errors.New("text is empty")

	// ErrNoEngine indicates a vendor with no registered synthesizer
	ErrNoEngine = errors.New("no engine registered for vendor")
)

// TTSError represents a TTS-specific error with additional context
type TTSError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *TTSError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *TTSError) Unwrap() error {
	return e.Cause
}

// ErrorCode identifies specific error types
type ErrorCode string

const (
	// Engine errors
	ErrorCodeEngineFailure     ErrorCode = "ENGINE_FAILURE"
	ErrorCodeEngineUnavailable ErrorCode = "ENGINE_UNAVAILABLE"

	// Audio errors
	ErrorCodeAudioFailure ErrorCode = "AUDIO_FAILURE"

	// Input errors
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrorCodeUnknownLang  ErrorCode = "UNKNOWN_LANGUAGE"

	// System errors
	ErrorCodeDisabled ErrorCode = "DISABLED"
	ErrorCodeCanceled ErrorCode = "CANCELED"
)

// NewTTSError creates a new TTS error with context
func NewTTSError(code ErrorCode, message string, cause error) *TTSError {
	return &TTSError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context to the error
func (e *TTSError) WithContext(key string, value interface{}) *TTSError {
	e.Context[key] = value
	return e
}

// IsFatal returns true if retrying cannot help until the operator changes
// the setup: a vendor with no engine or an unwritable temp dir.
func (e *TTSError) IsFatal() bool {
	switch e.Code {
	case ErrorCodeEngineUnavailable, ErrorCodeAudioFailure:
		return true
	default:
		return false
	}
}
