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

// Command logprobe loads the cloudlog configuration, resolves the process
// identity and writes one record per level to the configured transport.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"cloudlog"
	"cloudlog/cloudwatch"
)

func main() {
	category := flag.String("category", "logprobe", "logger category")
	profile := flag.Bool("profile", false, "wrap the probe records in a timing mark")
	flag.Parse()

	if err := run(*category, *profile); err != nil {
		fmt.Fprintf(os.Stderr, "logprobe: %v\n", err)
		os.Exit(1)
	}
}

func run(category string, profile bool) error {
	cfg, err := cloudlog.LoadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	transport, err := newTransport(ctx, cfg)
	if err != nil {
		return err
	}

	id, err := cloudlog.Setup(ctx, cfg, transport)
	if err != nil {
		transport.Close()
		return err
	}
	defer cloudlog.Shutdown()

	logger := cloudlog.Get(category)
	fmt.Printf("instance: %s\nworker:   %s (%s)\nstream:   %s\n",
		id.InstanceID, id.Worker.Label(), id.Worker.Role, logger.Stream())

	if profile {
		logger.Profile("probe")
	}
	for _, level := range cloudlog.DefaultHierarchy().Levels() {
		logger.Logf(level, "logprobe record at %s", level)
	}
	if profile {
		logger.Profile("probe")
	}
	return nil
}

func newTransport(ctx context.Context, cfg *cloudlog.Config) (cloudlog.Transport, error) {
	if cfg.Transport != cloudlog.TransportCloudWatch {
		return cloudlog.NewConsoleTransport(os.Stdout, cloudlog.ConsoleOptions{
			Async:           cfg.Async,
			ReportTimestamp: true,
		}), nil
	}
	return cloudwatch.New(ctx, cloudwatch.Options{
		Region:          cfg.AWS.Region,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		SessionToken:    cfg.AWS.SessionToken,
		Endpoint:        cfg.AWS.Endpoint,
	})
}
