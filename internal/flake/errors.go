package flake

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for use with errors.Is.
var (
	// ErrMalformedDocument indicates invalid JSON or a value that does not
	// match the flake.lock schema.
	ErrMalformedDocument = errors.New("malformed document")

	// ErrUnknownReferenceType indicates a locked or original reference whose
	// "type" tag is missing or not supported.
	ErrUnknownReferenceType = errors.New("unknown reference type")

	// ErrMissingRoot indicates that the declared root is not a node.
	ErrMissingRoot = errors.New("missing root node")
)

// DocumentError locates a parse failure inside the lock document.
type DocumentError struct {
	Kind  error  // one of the sentinels above
	Node  string // offending node, if any
	Field string // dotted field path inside the node or document
	Msg   string
	Err   error // underlying decoder error, if any
}

func (e *DocumentError) Error() string {
	if e == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(e.kind().Error())
	if e.Node != "" {
		fmt.Fprintf(&b, ": node %q", e.Node)
	}
	if e.Field != "" {
		b.WriteString(": ")
		b.WriteString(e.Field)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	return b.String()
}

func (e *DocumentError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.kind(), e.Err}
	}
	return []error{e.kind()}
}

func (e *DocumentError) kind() error {
	if e.Kind == nil {
		return ErrMalformedDocument
	}
	return e.Kind
}

func malformed(node, field, msg string, err error) *DocumentError {
	return &DocumentError{Kind: ErrMalformedDocument, Node: node, Field: field, Msg: msg, Err: err}
}
