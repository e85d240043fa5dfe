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
	"context"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMetadata struct {
	calls atomic.Int32
	fn    func(ctx context.Context, path string) (*imds.GetMetadataOutput, error)
}

func (f *fakeMetadata) GetMetadata(ctx context.Context, in *imds.GetMetadataInput, _ ...func(*imds.Options)) (*imds.GetMetadataOutput, error) {
	f.calls.Add(1)
	return f.fn(ctx, in.Path)
}

func metadataReturning(body string) *fakeMetadata {
	return &fakeMetadata{fn: func(context.Context, string) (*imds.GetMetadataOutput, error) {
		return &imds.GetMetadataOutput{Content: io.NopCloser(strings.NewReader(body))}, nil
	}}
}

func TestInstanceResolverNotOnAWS(t *testing.T) {
	client := metadataReturning("i-0123")
	r := NewInstanceResolver(InstanceOptions{NotOnAWS: true, Client: client})

	assert.Equal(t, LocalInstanceID, r.Resolve(context.Background()))
	assert.Zero(t, client.calls.Load())
}

func TestInstanceResolverQueriesOnce(t *testing.T) {
	var path atomic.Value
	client := metadataReturning("i-0123\n")
	inner := client.fn
	client.fn = func(ctx context.Context, p string) (*imds.GetMetadataOutput, error) {
		path.Store(p)
		return inner(ctx, p)
	}
	r := NewInstanceResolver(InstanceOptions{Client: client})

	assert.Equal(t, "i-0123", r.Resolve(context.Background()))
	assert.Equal(t, "i-0123", r.Resolve(context.Background()))
	assert.EqualValues(t, 1, client.calls.Load())
	assert.Equal(t, "instance-id", path.Load())
}

func TestInstanceResolverFailures(t *testing.T) {
	tests := []struct {
		name string
		fn   func(ctx context.Context, path string) (*imds.GetMetadataOutput, error)
	}{
		{
			name: "error",
			fn: func(context.Context, string) (*imds.GetMetadataOutput, error) {
				return nil, errors.New("connection refused")
			},
		},
		{
			name: "empty body",
			fn: func(context.Context, string) (*imds.GetMetadataOutput, error) {
				return &imds.GetMetadataOutput{Content: io.NopCloser(strings.NewReader("  \n"))}, nil
			},
		},
		{
			name: "nil output",
			fn: func(context.Context, string) (*imds.GetMetadataOutput, error) {
				return nil, nil
			},
		},
		{
			name: "panic",
			fn: func(context.Context, string) (*imds.GetMetadataOutput, error) {
				panic("boom")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewInstanceResolver(InstanceOptions{Client: &fakeMetadata{fn: tt.fn}})
			assert.Equal(t, UnavailableInstanceID, r.Resolve(context.Background()))
		})
	}
}

func TestInstanceResolverTimeout(t *testing.T) {
	unblock := make(chan struct{})
	t.Cleanup(func() { close(unblock) })

	// a client that ignores its context.
	client := &fakeMetadata{fn: func(context.Context, string) (*imds.GetMetadataOutput, error) {
		<-unblock
		return nil, errors.New("too late")
	}}
	r := NewInstanceResolver(InstanceOptions{Client: client, Timeout: 20 * time.Millisecond})

	start := time.Now()
	assert.Equal(t, UnavailableInstanceID, r.Resolve(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
}

func TestInstanceResolverClampsTimeout(t *testing.T) {
	r := NewInstanceResolver(InstanceOptions{NotOnAWS: true, Timeout: time.Minute})
	assert.Equal(t, MaxMetadataTimeout, r.timeout)

	r = NewInstanceResolver(InstanceOptions{NotOnAWS: true})
	assert.Equal(t, MaxMetadataTimeout, r.timeout)
}

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func TestResolveWorker(t *testing.T) {
	pid := os.Getpid()

	tests := []struct {
		name      string
		env       map[string]string
		wantRole  Role
		wantLabel string
	}{
		{name: "coordinator", env: map[string]string{}, wantRole: RoleCoordinator, wantLabel: "master-" + strconv.Itoa(pid)},
		{name: "worker", env: map[string]string{WorkerIDEnv: "3"}, wantRole: RoleWorker, wantLabel: "worker-3"},
		{name: "worker zero", env: map[string]string{WorkerIDEnv: " 0 "}, wantRole: RoleWorker, wantLabel: "worker-0"},
		{name: "garbage", env: map[string]string{WorkerIDEnv: "abc"}, wantRole: RoleUnknown, wantLabel: UnknownClusterLabel},
		{name: "negative", env: map[string]string{WorkerIDEnv: "-1"}, wantRole: RoleUnknown, wantLabel: UnknownClusterLabel},
		{name: "empty", env: map[string]string{WorkerIDEnv: ""}, wantRole: RoleUnknown, wantLabel: UnknownClusterLabel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ResolveWorker(lookupFrom(tt.env))
			assert.Equal(t, tt.wantRole, w.Role)
			assert.Equal(t, pid, w.PID)
			assert.Equal(t, tt.wantLabel, w.Label())
		})
	}
}

func TestResolveProcessIdentity(t *testing.T) {
	r := NewInstanceResolver(InstanceOptions{Client: metadataReturning("i-abc")})
	id := ResolveProcessIdentity(context.Background(), r, lookupFrom(map[string]string{WorkerIDEnv: "2"}))

	require.Equal(t, "i-abc", id.InstanceID)
	assert.Equal(t, "i-abc/worker-2", id.Suffix())

	id = ResolveProcessIdentity(context.Background(), nil, lookupFrom(nil))
	assert.Equal(t, UnavailableInstanceID, id.InstanceID)
}
