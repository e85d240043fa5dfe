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
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
)

const (
	// LocalInstanceID is returned without any network call when the process is
	// known not to run on managed infrastructure.
	LocalInstanceID = "not-on-aws"
	// UnavailableInstanceID is returned when the metadata service can't be reached.
	UnavailableInstanceID = "instance-id-unavailable"
	// MaxMetadataTimeout bounds every metadata query.
	MaxMetadataTimeout = 5 * time.Second

	instanceIDPath = "instance-id"
)

// MetadataClient is the subset of the IMDS client used to resolve the instance id.
type MetadataClient interface {
	GetMetadata(ctx context.Context, params *imds.GetMetadataInput, optFns ...func(*imds.Options)) (*imds.GetMetadataOutput, error)
}

// InstanceOptions configures an InstanceResolver.
type InstanceOptions struct {
	// NotOnAWS skips the metadata query entirely and resolves to LocalInstanceID.
	NotOnAWS bool

	// Timeout bounds the metadata query. Values outside (0, MaxMetadataTimeout]
	// are replaced by MaxMetadataTimeout.
	Timeout time.Duration

	// Endpoint overrides the instance metadata endpoint.
	Endpoint string

	// Client replaces the IMDS client built from Endpoint.
	Client MetadataClient
}

// InstanceResolver resolves the id of the machine the process runs on.
//
// The id is computed at most once; every later call returns the cached value.
type InstanceResolver struct {
	notOnAWS bool
	timeout  time.Duration
	client   MetadataClient

	once sync.Once
	id   string
}

// NewInstanceResolver builds an InstanceResolver. It performs no I/O.
func NewInstanceResolver(o InstanceOptions) *InstanceResolver {
	if o.Timeout <= 0 || o.Timeout > MaxMetadataTimeout {
		o.Timeout = MaxMetadataTimeout
	}
	r := &InstanceResolver{
		notOnAWS: o.NotOnAWS,
		timeout:  o.Timeout,
		client:   o.Client,
	}
	if r.client == nil && !o.NotOnAWS {
		r.client = imds.New(imds.Options{
			Endpoint: o.Endpoint,
			Retryer:  aws.NopRetryer{},
		})
	}
	return r
}

// Resolve returns the instance id, querying the metadata service on the first call.
//
// It never panics and never waits longer than the configured timeout. Any
// failure resolves to UnavailableInstanceID, and that result is cached too.
func (r *InstanceResolver) Resolve(ctx context.Context) string {
	r.once.Do(func() {
		r.id = r.resolve(ctx)
	})
	return r.id
}

func (r *InstanceResolver) resolve(ctx context.Context) string {
	if r.notOnAWS {
		return LocalInstanceID
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result := make(chan string, 1)
	go func() {
		result <- r.fetch(ctx)
	}()

	// the client may ignore ctx; the bound holds regardless.
	select {
	case id := <-result:
		return id
	case <-ctx.Done():
		return UnavailableInstanceID
	}
}

func (r *InstanceResolver) fetch(ctx context.Context) (id string) {
	defer func() {
		if recover() != nil {
			id = UnavailableInstanceID
		}
	}()

	out, err := r.client.GetMetadata(ctx, &imds.GetMetadataInput{Path: instanceIDPath})
	if err != nil || out == nil || out.Content == nil {
		return UnavailableInstanceID
	}
	defer out.Content.Close()

	raw, err := io.ReadAll(io.LimitReader(out.Content, 256))
	if err != nil {
		return UnavailableInstanceID
	}
	if id = strings.TrimSpace(string(raw)); id == "" {
		return UnavailableInstanceID
	}
	return id
}

// Role is the part a process plays in a coordinator/worker cluster.
type Role int

const (
	// RoleUnknown means the clustering state could not be determined.
	RoleUnknown Role = iota
	// RoleCoordinator is the process that forks and supervises workers. A
	// process that was not forked by a coordinator is its own coordinator.
	RoleCoordinator
	// RoleWorker is a process forked by a coordinator.
	RoleWorker
)

func (r Role) String() string {
	switch r {
	case RoleCoordinator:
		return "coordinator"
	case RoleWorker:
		return "worker"
	default:
		return "unknown"
	}
}

// WorkerIDEnv is the variable a coordinator sets to a worker's ordinal when forking it.
const WorkerIDEnv = "CLUSTER_WORKER_ID"

// UnknownClusterLabel labels a process whose clustering state is indeterminate.
const UnknownClusterLabel = "unknown-cluster"

// WorkerIdentity tells a coordinator apart from its workers.
type WorkerIdentity struct {
	Role    Role
	PID     int
	Ordinal int
}

// ResolveWorker inspects the clustering state of the current process.
//
// lookup reads environment variables and defaults to os.LookupEnv. The result
// is not cached: it is cheap, has no side effects and never changes for the
// life of the process.
func ResolveWorker(lookup func(string) (string, bool)) WorkerIdentity {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	pid := os.Getpid()

	raw, ok := lookup(WorkerIDEnv)
	if !ok {
		return WorkerIdentity{Role: RoleCoordinator, PID: pid}
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return WorkerIdentity{Role: RoleUnknown, PID: pid}
	}
	return WorkerIdentity{Role: RoleWorker, PID: pid, Ordinal: n}
}

// Label returns master-<pid>, worker-<ordinal> or unknown-cluster.
func (w WorkerIdentity) Label() string {
	switch w.Role {
	case RoleCoordinator:
		return "master-" + strconv.Itoa(w.PID)
	case RoleWorker:
		return "worker-" + strconv.Itoa(w.Ordinal)
	default:
		return UnknownClusterLabel
	}
}

// ProcessIdentity identifies one process on one machine.
//
// It is resolved once at startup and passed to the StreamComposer; nothing
// mutates it afterwards.
type ProcessIdentity struct {
	InstanceID string
	Worker     WorkerIdentity
}

// ResolveProcessIdentity combines the instance id and the worker identity.
func ResolveProcessIdentity(ctx context.Context, instance *InstanceResolver, lookup func(string) (string, bool)) ProcessIdentity {
	id := UnavailableInstanceID
	if instance != nil {
		id = instance.Resolve(ctx)
	}
	return ProcessIdentity{
		InstanceID: id,
		Worker:     ResolveWorker(lookup),
	}
}

// Suffix returns instanceId/workerLabel.
func (p ProcessIdentity) Suffix() string {
	id := p.InstanceID
	if id == "" {
		id = UnavailableInstanceID
	}
	return id + "/" + p.Worker.Label()
}
