/*
 * errors.go, part of atoman.
 *
 * Copyright 2024 The atoman authors
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package atoman

import (
	"errors"
	"fmt"
)

//Errors

//CError is the basic error type of atoman. Besides a message, it keeps a "decoration"
//slice with the names (and optionally some extra information) of the functions the
//error has been passed through, and a flag telling whether the error is critical.
//The specific error kinds below embed it.
type CError struct {
	message  string
	deco     []string
	critical bool
}

//NewError returns a new *CError with the given message, created in the function caller.
func NewError(message, caller string, critical bool) *CError {
	e := &CError{message: message, critical: critical}
	if caller != "" {
		e.deco = []string{caller}
	}
	return e
}

//Error returns a string with an error message.
func (err *CError) Error() string {
	return err.message
}

//Decorate will add the dec string to the decoration slice of strings of the error,
//and return the resulting slice. If dec is empty, the current slice is returned
//unchanged.
func (err *CError) Decorate(dec string) []string {
	if dec != "" {
		err.deco = append(err.deco, dec)
	}
	return err.deco
}

//Critical returns whether the error is critical or it can be ignored
func (err *CError) Critical() bool { return err.critical }

type decorator interface {
	Decorate(string) []string
}

//Decorate adds caller to the decoration of err, if err (or an error it wraps)
//can be decorated, and returns err. Other errors are returned untouched.
func Decorate(err error, caller string) error {
	if err == nil {
		return nil
	}
	var d decorator
	if errors.As(err, &d) {
		d.Decorate(caller)
	}
	return err
}

//FilterCompatibilityError is returned when a stage can't be added to a pipeline
//because of the "Point defects" stage exclusivity rules.
type FilterCompatibilityError struct {
	*CError
	Stage    string //the stage that was being added
	Conflict string //the stage already in the pipeline that conflicts with it
}

//NewFilterCompatibilityError returns an error explaining that stage can't coexist with conflict.
func NewFilterCompatibilityError(stage, conflict, caller string) *FilterCompatibilityError {
	var msg string
	if stage == conflict {
		msg = fmt.Sprintf("the %q filter must be the first filter in the list", stage)
	} else {
		msg = fmt.Sprintf("the %q filter is not compatible with the %q filter", stage, conflict)
	}
	return &FilterCompatibilityError{CError: NewError(msg, caller, false), Stage: stage, Conflict: conflict}
}

//AtomCountMismatchError is returned when an operation needs the input and reference
//lattices to have the same number of atoms and they don't.
type AtomCountMismatchError struct {
	*CError
	Stage  string
	Input  int
	RefLen int
}

//NewAtomCountMismatchError returns a new AtomCountMismatchError.
func NewAtomCountMismatchError(stage string, input, ref int, caller string) *AtomCountMismatchError {
	msg := fmt.Sprintf("the %q filter can only be used when the reference and input number of atoms match (%d != %d)", stage, input, ref)
	return &AtomCountMismatchError{CError: NewError(msg, caller, false), Stage: stage, Input: input, RefLen: ref}
}

//InvalidSettingsError is returned when the settings for a stage (or the options for an algorithm)
//are malformed. It is always detected before anything is applied.
type InvalidSettingsError struct {
	*CError
	Stage  string
	Option string
}

//NewInvalidSettingsError returns an InvalidSettingsError for the given option of stage.
//The reason is formatted with args.
func NewInvalidSettingsError(stage, option, caller, reason string, args ...any) *InvalidSettingsError {
	msg := fmt.Sprintf("invalid settings for %q (%s): %s", stage, option, fmt.Sprintf(reason, args...))
	return &InvalidSettingsError{CError: NewError(msg, caller, false), Stage: stage, Option: option}
}

//StageExecutionError wraps any failure that happened while a pipeline stage was being applied.
//Index is the position of the stage in the pipeline.
type StageExecutionError struct {
	*CError
	Index int
	Stage string
	Err   error
}

//NewStageExecutionError wraps cause, which happened in the index-th stage, named stage.
func NewStageExecutionError(index int, stage string, cause error, caller string) *StageExecutionError {
	msg := fmt.Sprintf("filter %d (%s) failed: %v", index, stage, cause)
	return &StageExecutionError{CError: NewError(msg, caller, true), Index: index, Stage: stage, Err: cause}
}

//Unwrap returns the underlying cause.
func (err *StageExecutionError) Unwrap() error { return err.Err }
