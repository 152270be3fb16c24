// Package xerr defines the closed error taxonomy used across the decoder:
// IO errors, format errors, semantic errors and capability gaps. Every
// constructor returns a concrete type so callers can switch on it with
// errors.As; golang.org/x/xerrors is used for %w-wrapping and frame capture
// when an error is re-raised with extra context.
package xerr

import (
	"fmt"

	"golang.org/x/xerrors"
)

// UnexpectedEOF is the sole IO error: a read came up short.
type UnexpectedEOF struct {
	Expected int
	Actual   int
}

func (e *UnexpectedEOF) Error() string {
	return fmt.Sprintf("unexpected end of stream: expected %d bytes, but only found %d bytes", e.Expected, e.Actual)
}

// --- Format errors ---

type UnknownRecord struct {
	Code int
}

func (e *UnknownRecord) Error() string { return fmt.Sprintf("unknown record code %d", e.Code) }

type VersionMismatch struct {
	Major, Minor int32
}

func (e *VersionMismatch) Error() string {
	return fmt.Sprintf("this implementation only supports version 1.0 format; got %d.%d", e.Major, e.Minor)
}

type InvalidStream struct {
	Reason string
}

func (e *InvalidStream) Error() string { return "invalid stream: " + e.Reason }

type InvalidLengthPrefix struct{}

func (e *InvalidLengthPrefix) Error() string { return "invalid length prefix" }

type InvalidDateTimeKind struct {
	Kind uint64
}

func (e *InvalidDateTimeKind) Error() string {
	return fmt.Sprintf("unknown datetime kind: %d", e.Kind)
}

type InvalidClassName struct {
	Reason string
}

func (e *InvalidClassName) Error() string { return "invalid class name: " + e.Reason }

type InvalidDataContractPayload struct {
	Reason string
}

func (e *InvalidDataContractPayload) Error() string { return "invalid data contract payload: " + e.Reason }

type InvalidBoolean struct {
	Value string
}

func (e *InvalidBoolean) Error() string { return fmt.Sprintf("invalid boolean literal: %q", e.Value) }

// --- Semantic errors ---

type UnresolvableLibraryId struct {
	LibraryID int32
}

func (e *UnresolvableLibraryId) Error() string {
	return fmt.Sprintf("unresolvable library id %d", e.LibraryID)
}

type ArityMismatch struct {
	Name     string
	Expected int
	Got      int
}

func (e *ArityMismatch) Error() string {
	return fmt.Sprintf("invalid number of type parameters for %s: %d expected, got %d", e.Name, e.Expected, e.Got)
}

type UnboundParameter struct {
	Name string
}

func (e *UnboundParameter) Error() string {
	return fmt.Sprintf("type parameter '%s' is unbound", e.Name)
}

type UnresolvedParameters struct {
	TypeName string
}

func (e *UnresolvedParameters) Error() string {
	return fmt.Sprintf("%s has unresolved parameters", e.TypeName)
}

type AlreadyBound struct {
	TypeName string
	Param    string
}

func (e *AlreadyBound) Error() string {
	return fmt.Sprintf("%s already has a value for %s", e.TypeName, e.Param)
}

type InvalidInstantiation struct {
	Reason string
}

func (e *InvalidInstantiation) Error() string { return "invalid instantiation: " + e.Reason }

type MemberCountMismatch struct {
	TypeName string
	Got      int
	Expected int
}

func (e *MemberCountMismatch) Error() string {
	return fmt.Sprintf("given values does not match to the member count for %s (got %d, %d expected)",
		e.TypeName, e.Got, e.Expected)
}

type UnsupportedValue struct {
	Kind string
}

func (e *UnsupportedValue) Error() string { return fmt.Sprintf("%s is not a supported value kind", e.Kind) }

// InvalidBridgeState covers the NRBF-object-graph invariants the bridge
// assumes hold (a pending instance must have values, a declared array's
// element count must match its shape, a collection's backing array member
// must actually be one): violations mean the source graph is malformed
// rather than merely an unresolved reference.
type InvalidBridgeState struct {
	Reason string
}

func (e *InvalidBridgeState) Error() string { return "invalid bridge state: " + e.Reason }

// MaxDepthExceeded reports that element nesting passed the configured limit,
// a guard against unbounded or cyclic payloads rather than a parse failure.
type MaxDepthExceeded struct {
	Limit int
}

func (e *MaxDepthExceeded) Error() string {
	return fmt.Sprintf("element nesting exceeded the configured max depth (%d)", e.Limit)
}

// --- Capability gaps ---

type NotImplemented struct {
	What string
}

func (e *NotImplemented) Error() string { return "not implemented: " + e.What }

// Wrap attaches extra context to an inner error without discarding it,
// preserving errors.Is/As compatibility and a captured frame for %+v.
func Wrap(msg string, inner error) error {
	return xerrors.Errorf("%s: %w", msg, inner)
}
