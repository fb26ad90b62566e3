package platform

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

type MockExecClient struct {
	sync.Mutex
	returnError    bool
	setExecCommand execCommandValidator
	commands       []string

	// RebootTime is returned by GetLastRebootTime.
	RebootTime time.Time
}

type execCommandValidator func(name string, args ...string) (string, error)

// ErrMockExec - mock exec error
var ErrMockExec = errors.New("mock exec error")

func NewMockExecClient(returnErr bool) *MockExecClient {
	return &MockExecClient{
		returnError: returnErr,
	}
}

func (e *MockExecClient) ExecuteCommand(_ context.Context, name string, args ...string) (string, error) {
	e.Lock()
	e.commands = append(e.commands, strings.TrimSpace(name+" "+strings.Join(args, " ")))
	fn := e.setExecCommand
	e.Unlock()

	if fn != nil {
		return fn(name, args...)
	}

	if e.returnError {
		return "", ErrMockExec
	}

	return "", nil
}

func (e *MockExecClient) SetExecCommand(fn execCommandValidator) {
	e.setExecCommand = fn
}

// Commands returns every command line executed so far.
func (e *MockExecClient) Commands() []string {
	e.Lock()
	defer e.Unlock()
	return append([]string(nil), e.commands...)
}

func (e *MockExecClient) GetLastRebootTime() (time.Time, error) {
	if e.returnError {
		return time.Time{}.UTC(), ErrMockExec
	}
	return e.RebootTime, nil
}
