package tree

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes failures reported by the tree and its codec.
type ErrorCode string

const (
	// CodeNotFound indicates a reference to a missing node or edge.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeInvalidEdge indicates a self-loop at edge creation time.
	CodeInvalidEdge ErrorCode = "INVALID_EDGE"

	// CodePrerequisitesNotMet indicates an unlock attempt while an
	// immediate predecessor is still locked.
	CodePrerequisitesNotMet ErrorCode = "PREREQUISITES_NOT_MET"

	// CodeMalformedDocument indicates a document with missing, mistyped or
	// contradictory records.
	CodeMalformedDocument ErrorCode = "MALFORMED_DOCUMENT"

	// CodeDanglingEdge indicates a document connection whose endpoint is not
	// among the document's nodes.
	CodeDanglingEdge ErrorCode = "DANGLING_EDGE"

	// CodeInvalidImage indicates image data that cannot be parsed or decoded.
	CodeInvalidImage ErrorCode = "INVALID_IMAGE"
)

// Error is the typed error returned by every failing operation.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// NodeID identifies the node involved, when there is one.
	NodeID NodeID

	// EdgeID identifies the edge involved, when there is one.
	EdgeID EdgeID
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any *Error with the same code, so the sentinels below work
// with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrNotFound            = &Error{Code: CodeNotFound, Message: "not found"}
	ErrInvalidEdge         = &Error{Code: CodeInvalidEdge, Message: "invalid edge"}
	ErrPrerequisitesNotMet = &Error{Code: CodePrerequisitesNotMet, Message: "prerequisites not met"}
	ErrMalformedDocument   = &Error{Code: CodeMalformedDocument, Message: "malformed document"}
	ErrDanglingEdge        = &Error{Code: CodeDanglingEdge, Message: "dangling edge"}
	ErrInvalidImage        = &Error{Code: CodeInvalidImage, Message: "invalid image"}
)

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var te *Error
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

// IsNotFound reports whether err is a NOT_FOUND error.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }

// IsInvalidEdge reports whether err is an INVALID_EDGE error.
func IsInvalidEdge(err error) bool { return CodeOf(err) == CodeInvalidEdge }

// IsPrerequisitesNotMet reports whether err is a PREREQUISITES_NOT_MET error.
func IsPrerequisitesNotMet(err error) bool { return CodeOf(err) == CodePrerequisitesNotMet }

// IsMalformedDocument reports whether err is a MALFORMED_DOCUMENT error.
func IsMalformedDocument(err error) bool { return CodeOf(err) == CodeMalformedDocument }

// IsDanglingEdge reports whether err is a DANGLING_EDGE error.
func IsDanglingEdge(err error) bool { return CodeOf(err) == CodeDanglingEdge }

func nodeNotFound(id NodeID) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("node %d does not exist", id),
		NodeID:  id,
	}
}

func edgeNotFound(id EdgeID) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("edge %d does not exist", id),
		EdgeID:  id,
	}
}

// NewMalformedDocument creates a MALFORMED_DOCUMENT error.
func NewMalformedDocument(format string, args ...any) *Error {
	return &Error{
		Code:    CodeMalformedDocument,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewDanglingEdge creates a DANGLING_EDGE error for a connection whose
// endpoint missing is absent.
func NewDanglingEdge(from, to, missing NodeID) *Error {
	return &Error{
		Code:    CodeDanglingEdge,
		Message: fmt.Sprintf("connection %d->%d references unknown node %d", from, to, missing),
		NodeID:  missing,
	}
}

// NewInvalidImage creates an INVALID_IMAGE error.
func NewInvalidImage(id NodeID, format string, args ...any) *Error {
	return &Error{
		Code:    CodeInvalidImage,
		Message: fmt.Sprintf(format, args...),
		NodeID:  id,
	}
}
