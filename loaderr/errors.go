// Package loaderr defines the closed set of bootstrap failure categories
// raised while discovering, compiling and registering script sources.
//
// Every category carries a stable numeric code. Codes are distinct bits so
// several failures can be folded into one status value with Combine.
package loaderr

import (
	"errors"
	"fmt"
)

// Class identifies a failure category. The value is the category's code.
type Class int

const (
	ClassGeneral      Class = 1
	ClassCustom       Class = 128
	ClassAccessDenied Class = 2048
	ClassAccess       Class = 4096
	ClassParse        Class = 32768
	ClassNoSources    Class = 524288
)

// Code returns the numeric code for the class.
func (c Class) Code() int {
	return int(c)
}

func (c Class) String() string {
	switch c {
	case ClassGeneral:
		return "GENERAL_ERROR"
	case ClassCustom:
		return "CUSTOM_ERROR"
	case ClassAccessDenied:
		return "ACCESS_DENIED"
	case ClassAccess:
		return "ACCESS_ERROR"
	case ClassParse:
		return "PARSE_ERROR"
	case ClassNoSources:
		return "NO_SOURCES_FOUND"
	default:
		return "UNKNOWN"
	}
}

// Message returns the fixed message template for the class.
func (c Class) Message() string {
	switch c {
	case ClassGeneral:
		return "General error occurred"
	case ClassCustom:
		return "Application error occurred: "
	case ClassAccessDenied:
		return "Denied access to the file/folder by the security policy"
	case ClassAccess:
		return "Error occurred while accessing file/folder"
	case ClassParse:
		return "Error occurred while trying to parse script source"
	case ClassNoSources:
		return "Found no script sources"
	default:
		return "Unknown error"
	}
}

// Error is a classified bootstrap failure.
type Error struct {
	Class  Class
	Detail string
	Path   string
	Err    error
}

// Sentinels usable with errors.Is. Matching is by class only.
var (
	ErrGeneral      = &Error{Class: ClassGeneral}
	ErrCustom       = &Error{Class: ClassCustom}
	ErrAccessDenied = &Error{Class: ClassAccessDenied}
	ErrAccess       = &Error{Class: ClassAccess}
	ErrParse        = &Error{Class: ClassParse}
	ErrNoSources    = &Error{Class: ClassNoSources}
)

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Class.Message()
	if e.Class == ClassCustom {
		msg += e.Detail
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s path=%q", msg, e.Path)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is a loader error of the same class.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Class == t.Class
}

// Code returns the numeric code of the error's class.
func (e *Error) Code() int {
	if e == nil {
		return 0
	}
	return e.Class.Code()
}

// General wraps an unclassified failure.
func General(err error) *Error {
	return &Error{Class: ClassGeneral, Err: err}
}

// Custom builds an error whose message is the custom template followed by detail.
func Custom(detail string) *Error {
	return &Error{Class: ClassCustom, Detail: detail}
}

// AccessDenied reports a permission failure while walking path.
func AccessDenied(path string, err error) *Error {
	return &Error{Class: ClassAccessDenied, Path: path, Err: err}
}

// Access reports a non-permission I/O failure while walking path.
func Access(path string, err error) *Error {
	return &Error{Class: ClassAccess, Path: path, Err: err}
}

// Parse reports that the source at path could not be compiled.
func Parse(path string, err error) *Error {
	return &Error{Class: ClassParse, Path: path, Err: err}
}

// NoSources reports an empty discovery result under root.
func NoSources(root string) *Error {
	return &Error{Class: ClassNoSources, Path: root}
}

// ClassOf extracts the class of the first loader error in err's chain.
func ClassOf(err error) (Class, bool) {
	var loaderErr *Error
	if errors.As(err, &loaderErr) && loaderErr != nil {
		return loaderErr.Class, true
	}
	return 0, false
}

// Code returns the code of the first loader error in err's chain, or 0.
func Code(err error) int {
	class, ok := ClassOf(err)
	if !ok {
		return 0
	}
	return class.Code()
}

// Combine folds the codes of errs into one status value.
func Combine(errs ...error) int {
	status := 0
	for _, err := range errs {
		status |= Code(err)
	}
	return status
}
