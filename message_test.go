// Copyright (c) 2026 blairtcg
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cloudlog

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeMessageErrorAndMessage(t *testing.T) {
	got := ComposeMessage(Record{Message: "m", Err: errors.New("e")})

	assert.True(t, strings.HasPrefix(got, "MESSAGE: m\nERROR: e\nSTACK:"), got)
	assert.NotContains(t, got, BlockRequest)
	assert.Contains(t, got, "TestComposeMessageErrorAndMessage")
}

func TestComposeMessageAlwaysHasStack(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
	}{
		{name: "empty", rec: Record{}},
		{name: "message only", rec: Record{Message: "hello"}},
		{name: "error only", rec: Record{Err: errors.New("boom")}},
		{name: "object message", rec: Record{Message: map[string]int{"n": 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComposeMessage(tt.rec)
			assert.Contains(t, got, "STACK:")
			assert.NotContains(t, got, "\n\n")
			assert.NotContains(t, got, BlockRequest)
		})
	}
}

func TestComposeMessageOmitsEmptyBlocks(t *testing.T) {
	got := ComposeMessage(Record{Err: errors.New("boom")})
	assert.True(t, strings.HasPrefix(got, "ERROR: boom\nSTACK:\n"), got)
	assert.NotContains(t, got, BlockMessage)

	got = composeMessage(Record{Message: "m"}, nil)
	assert.Equal(t, "MESSAGE: m\nSTACK: <empty>", got)
}

func TestComposeMessageUsesErrorStack(t *testing.T) {
	err := failDeep()
	got := ComposeMessage(Record{Err: err})

	assert.Contains(t, got, "failDeep")
	assert.ErrorIs(t, err, errDeep)
}

var errDeep = errors.New("deep failure")

func failDeep() error {
	return WithStack(errDeep)
}

func TestComposeMessageRequestAllowlist(t *testing.T) {
	r := httptest.NewRequest("POST", "http://shop.test/orders?page=2", nil)
	r.Header.Set("Authorization", "Bearer secret-token")
	r.Header.Set("X-Password", "hunter2")

	body := map[string]any{"item": "book", "qty": 1}
	snap := SnapshotRequest(r, WithBody(body))
	got := ComposeMessage(Record{Message: "order placed", Request: snap})

	require.Contains(t, got, "REQUEST: ")
	assert.Contains(t, got, `"method":"POST"`)
	assert.Contains(t, got, `"url":"/orders?page=2"`)
	assert.Contains(t, got, `"host":"shop.test"`)
	assert.Contains(t, got, `"body":{"item":"book","qty":1}`)
	assert.NotContains(t, got, "secret-token")
	assert.NotContains(t, got, "hunter2")
	assert.NotContains(t, strings.ToLower(got), "password")
	assert.NotContains(t, got, "Authorization")
}

func TestComposeMessageSurvivesCyclicPayload(t *testing.T) {
	loop := &node{Name: "a"}
	loop.Next = loop

	got := ComposeMessage(Record{Message: loop, Request: &RequestSnapshot{Method: "GET", Body: loop}})
	assert.Contains(t, got, "MESSAGE: [unserializable *cloudlog.node]")
	assert.Contains(t, got, `"body":"[unserializable *cloudlog.node]"`)
}
