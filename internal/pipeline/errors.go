// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/pdiddy/graphpdf/internal/graph"
	"github.com/pdiddy/graphpdf/pkg/types"
)

// Kind classifies a failure for the event log.
type Kind string

const (
	KindPrecondition Kind = "precondition"
	KindRemote       Kind = "remote"
	KindDomain       Kind = "domain"
	KindCanceled     Kind = "canceled"
	KindPersistence  Kind = "persistence"
	KindInternal     Kind = "internal"
)

// Precondition errors: the run cannot start.
var (
	ErrNoInputFile     = errors.New("no input file given")
	ErrInputNotFound   = errors.New("input file not found")
	ErrInputIsDir      = errors.New("input path is a directory")
	ErrInvalidSettings = errors.New("invalid settings")
)

// StageError ties an error to the stage that produced it. Kind is set
// when the stage knows better than Classify, e.g. a failed journal write.
type StageError struct {
	Stage types.Stage
	Kind  Kind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage types.Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}

func persistenceErr(stage types.Stage, err error) error {
	return &StageError{Stage: stage, Kind: KindPersistence, Err: err}
}

// StageOf returns the stage recorded on err, or StageUnknown.
func StageOf(err error) types.Stage {
	var se *StageError
	if errors.As(err, &se) && se.Stage != "" {
		return se.Stage
	}
	return types.StageUnknown
}

// Classify returns the Kind of err. Cancellation wins over everything
// else so that an aborted HTTP call is not reported as a remote failure.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}
	var se *StageError
	if errors.As(err, &se) && se.Kind != "" {
		return se.Kind
	}

	var reqErr *graph.RequestError
	var netErr net.Error
	switch {
	case errors.Is(err, ErrNoInputFile), errors.Is(err, ErrInputNotFound),
		errors.Is(err, ErrInputIsDir), errors.Is(err, ErrInvalidSettings),
		errors.Is(err, graph.ErrInvalidSiteURL):
		return KindPrecondition
	case errors.As(err, &reqErr), errors.Is(err, graph.ErrAccessToken), errors.As(err, &netErr):
		return KindRemote
	case errors.Is(err, graph.ErrLibraryNotFound), errors.Is(err, graph.ErrMissingField):
		return KindDomain
	}
	return KindInternal
}

// rootCause follows the Unwrap chain to the innermost error.
func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
