package jitter

import (
	"errors"
	"fmt"
)

// ErrEmptyChannelSet is returned when an analysis is requested without channels.
var ErrEmptyChannelSet = errors.New("empty channel set")

// ErrOpenFile represents an error when opening a file.
type ErrOpenFile struct {
	Filename string
	Err      error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("error opening file %q: %v", e.Filename, e.Err)
}

func (e *ErrOpenFile) Unwrap() error { return e.Err }

// ErrCreateGroup represents an error when creating a group.
type ErrCreateGroup struct {
	GroupName string
	Err       error
}

func (e *ErrCreateGroup) Error() string {
	return fmt.Sprintf("error creating group %q: %v", e.GroupName, e.Err)
}

func (e *ErrCreateGroup) Unwrap() error { return e.Err }

// ErrCreateTable represents an error when creating a table.
type ErrCreateTable struct {
	TableName string
	Err       error
}

func (e *ErrCreateTable) Error() string {
	return fmt.Sprintf("error creating table %q: %v", e.TableName, e.Err)
}

func (e *ErrCreateTable) Unwrap() error { return e.Err }

// InvalidEventError reports structurally unusable event data. It is the only
// per event condition that aborts an analysis.
type InvalidEventError struct {
	EventID int
	Channel ChannelID
	Reason  string
}

func (e *InvalidEventError) Error() string {
	if e.Channel != 0 {
		return fmt.Sprintf("invalid event %d, channel %d: %s", e.EventID, e.Channel, e.Reason)
	}
	return fmt.Sprintf("invalid event %d: %s", e.EventID, e.Reason)
}

// ConfigurationError reports an unusable configuration value.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %q: %s", e.Field, e.Reason)
}

// TimingError is the non fatal failure of the dCFD on a single channel.
type TimingError struct {
	Reason FailureReason
}

func (e *TimingError) Error() string {
	return fmt.Sprintf("timing extraction failed: %v", e.Reason)
}
