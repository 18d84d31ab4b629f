package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Asset lifecycle errors
var (
	ErrStorage      = errors.New("storage operation failed")
	ErrLastProject  = errors.New("Cannot delete the last project")
	ErrInvalidPhase = errors.New("invalid phase")
	ErrNoFiles      = errors.New("No files uploaded")
	ErrInvalidPath  = errors.New("invalid blob path")
)

// NewStorageError reports a failed blob write or removal
func NewStorageError(operation string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusInternalServerError,
		err:        ErrStorage,
		Details:    fmt.Sprintf("Failed to %s", operation),
		Cause:      cause,
	}
}

// NewLastProjectError rejects deleting the only remaining project
func NewLastProjectError() *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusConflict,
		err:        ErrLastProject,
		kind:       ErrConflict,
	}
}

func NewInvalidPhaseError(value string, allowed []string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusConflict,
		err:        ErrInvalidPhase,
		kind:       ErrConflict,
		Details:    fmt.Sprintf("%q is not one of %v", value, allowed),
		Field:      "phase",
	}
}

func NewNoFilesError() *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadRequest,
		err:        ErrNoFiles,
		kind:       ErrBadRequest,
		Field:      "files",
	}
}

func NewInvalidPathError(path string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadRequest,
		err:        ErrInvalidPath,
		kind:       ErrBadRequest,
		Details:    fmt.Sprintf("%q resolves outside the storage root", path),
	}
}

func IsStorageError(err error) bool {
	return errors.Is(err, ErrStorage)
}

func IsLastProjectError(err error) bool {
	return errors.Is(err, ErrLastProject)
}

func IsInvalidPhaseError(err error) bool {
	return errors.Is(err, ErrInvalidPhase)
}
