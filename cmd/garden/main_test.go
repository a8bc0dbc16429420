package main

import (
	stderrors "errors"
	"testing"

	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
)

func TestDescribeError(t *testing.T) {
	cause := stderrors.New("no such table: users")
	err := errors.Wrap(errors.Wrap(cause, errors.CategoryInternal, "create garden index"), errors.CategoryInternal, "migrate")

	assert.Equal(t, "migrate: create garden index: no such table: users", describeError(err))
	assert.Equal(t, "plain", describeError(stderrors.New("plain")))
}
