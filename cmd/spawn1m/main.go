// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command spawn1m drives a ProcessQueue through a fanout load run: a
// submitter goroutine, fed spawn batches through an SPSC pipeline, spawns a
// configurable number of short-lived root actors, each of which returns
// Stop on its first cycle.
package main

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"code.hybscloud.com/atomix"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/rkallos/tcpm"
	"github.com/rkallos/tcpm/metrics"
)

// options holds the flags for the spawn1m command.
type options struct {
	children    int
	processCap  int
	threads     int
	messageCap  int
	verbose     bool
	pipelineCap int

	explicitFlags []string
}

func newOptions() *options {
	return &options{
		children:    1_000_000,
		processCap:  1 << 20,
		threads:     runtime.NumCPU(),
		messageCap:  8,
		pipelineCap: 4096,
	}
}

func (o *options) addFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&o.children, "children", o.children, "number of child actors to spawn")
	cmd.Flags().IntVar(&o.processCap, "process-cap", o.processCap, "ProcessQueue capacity")
	cmd.Flags().IntVar(&o.threads, "threads", o.threads, "worker goroutine count")
	cmd.Flags().IntVar(&o.messageCap, "message-cap", o.messageCap, "per-actor mailbox capacity")
	cmd.Flags().IntVar(&o.pipelineCap, "pipeline-cap", o.pipelineCap, "spawn-request pipeline buffer capacity")
	cmd.Flags().BoolVar(&o.verbose, "verbose", o.verbose, "enable debug logging of spawn/stop events")
}

// complete clamps flag values NewSPSC and NewBoundedQueue would otherwise
// panic on, and records which flags the caller actually set (as opposed
// to defaults) for the startup log line below.
func (o *options) complete(cmd *cobra.Command) {
	if o.pipelineCap < 2 {
		o.pipelineCap = 2
	}
	if o.messageCap < 1 {
		o.messageCap = 1
	}

	var explicit []string
	cmd.Flags().Visit(func(flag *pflag.Flag) {
		explicit = append(explicit, flag.Name)
	})
	o.explicitFlags = explicit
}

// spawnRequest flows across the generator→submitter pipeline stage.
type spawnRequest struct {
	n int
}

func (o *options) run(cmd *cobra.Command) error {
	logger := zap.NewNop()
	if o.verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		logger = l
	}
	defer logger.Sync() //nolint:errcheck

	if len(o.explicitFlags) > 0 {
		logger.Sugar().Infow("overriding default flags", "flags", o.explicitFlags)
	}

	reg := prometheus.NewRegistry()
	hook := metrics.New(reg, "spawn1m", "scheduler")

	pq, err := tcpm.NewProcessQueue(o.processCap, o.threads,
		tcpm.WithLogger(logger),
		tcpm.WithMetrics(hook),
	)
	if err != nil {
		return fmt.Errorf("spawn1m: %w", err)
	}
	defer pq.Release()

	var stopped atomix.Uint64
	childHandler := func(q *tcpm.ProcessQueue, state any, message any) tcpm.ProcessControl {
		stopped.AddAcqRel(1)
		return tcpm.Stop
	}

	pipeline := tcpm.NewSPSC[spawnRequest](o.pipelineCap)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < o.children; {
			req, ok := pipeline.Dequeue()
			if !ok {
				runtime.Gosched()
				continue
			}
			for j := 0; j < req.n; j++ {
				pq.Spawn(tcpm.SpawnParameters{
					Handler:             childHandler,
					MessageCap:          o.messageCap,
					MaxMessagesPerCycle: 1,
				})
			}
			i += req.n
		}
	}()

	const batch = 256
	for remaining := o.children; remaining > 0; {
		n := batch
		if n > remaining {
			n = remaining
		}
		for !pipeline.Enqueue(spawnRequest{n: n}) {
			runtime.Gosched()
		}
		remaining -= n
	}
	<-done

	for pq.ProcCount() > 0 {
		time.Sleep(time.Millisecond)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "spawned and stopped %d actors, live=%d\n", stopped.LoadAcquire(), pq.ProcCount())
	return nil
}

// newCmdSpawn1M builds the root cobra command.
func newCmdSpawn1M() *cobra.Command {
	o := newOptions()

	cmd := &cobra.Command{
		Use:   "spawn1m",
		Short: "Spawn a configurable number of short-lived actors and report on completion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o.complete(cmd)
			return o.run(cmd)
		},
	}

	o.addFlags(cmd)

	return cmd
}

func main() {
	if err := newCmdSpawn1M().Execute(); err != nil {
		os.Exit(1)
	}
}
