package model

import (
	"errors"
	"fmt"
)

// ErrRecoverableCompile marks a structured test spec that could not be compiled.
// The Plain backend recovers from it locally.
var ErrRecoverableCompile = errors.New("test spec could not be compiled")

// MarkupError reports a grammar violation in an annotated source file.
type MarkupError struct {
	Path Path
	Line int
	Msg  string
}

func (e *MarkupError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}

	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Msg)
}

// MetadataParseError reports malformed structured data in a region.
type MetadataParseError struct {
	Region string
	Err    error
}

func (e *MetadataParseError) Error() string {
	return fmt.Sprintf("could not parse %q region: %v", e.Region, e.Err)
}

func (e *MetadataParseError) Unwrap() error {
	return e.Err
}

// ExternalToolError reports a failed external step: a missing system under test or a
// non-zero exit status from an external command.
type ExternalToolError struct {
	Tool     string
	File     string
	Variant  string
	ExitCode int
	Output   string
	Err      error
}

func (e *ExternalToolError) Error() string {
	msg := e.Tool + " failed"
	if e.File != "" {
		msg += " on " + e.File
	}

	if e.Variant != "" {
		msg += " in variant " + e.Variant
	}

	if e.ExitCode != 0 {
		msg += fmt.Sprintf(": exited with code %d", e.ExitCode)
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *ExternalToolError) Unwrap() error {
	return e.Err
}
