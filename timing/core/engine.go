package core

import (
	"fmt"

	"github.com/sarchlab/pipesim/emu"
	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/report"
	"github.com/sarchlab/pipesim/timing/cache"
	"github.com/sarchlab/pipesim/timing/latency"
	"github.com/sarchlab/pipesim/timing/pipeline"
	"github.com/sarchlab/pipesim/timing/sequential"
)

// Engine runs a loaded program to completion.
type Engine interface {
	// Run executes every instruction and returns the engine counters.
	Run() Stats
}

// engineParams is what every engine variant is built from.
type engineParams struct {
	program *insts.Program
	regFile *emu.RegFile
	memory  *emu.Memory
	dcache  *cache.Cache
	timing  *latency.Table
	trace   *report.Trace
}

type engineFactory func(cfg Config, params engineParams) Engine

func factoryFor(cfg Config) engineFactory {
	if cfg.Pipelined {
		return newPipelineEngine
	}
	return newSequentialEngine
}

type pipelineEngine struct {
	pipe *pipeline.Pipeline
}

func newPipelineEngine(cfg Config, params engineParams) Engine {
	opts := []pipeline.PipelineOption{
		pipeline.WithForwarding(cfg.Forwarding),
		pipeline.WithLatencyTable(params.timing),
	}

	if trace := params.trace; trace != nil {
		trace.Header = make([]string, pipeline.NumStages)
		for s := pipeline.Stage(0); s < pipeline.NumStages; s++ {
			trace.Header[s] = s.String()
		}
		opts = append(opts, pipeline.WithCycleObserver(func(snap pipeline.CycleSnapshot) {
			trace.Rows = append(trace.Rows, report.TraceRow{
				Cycle: snap.Cycle,
				Cells: snap.Stages[:],
				Event: snap.Event,
			})
		}))
	}

	params.memory.LoadData(params.program.Data)

	return &pipelineEngine{
		pipe: pipeline.NewPipeline(params.program, params.regFile, params.dcache, opts...),
	}
}

func (e *pipelineEngine) Run() Stats {
	s := e.pipe.Run()
	return Stats{
		Cycles:       s.Cycles,
		Instructions: s.Instructions,
		Stalls:       s.Stalls,
		DataStalls:   s.DataStalls,
		MemStalls:    s.MemStalls,
		ExecStalls:   s.ExecStalls,
		Flushes:      s.Flushes,
		Squashed:     s.Squashed,
		Forwards:     s.Forwards,
	}
}

type sequentialEngine struct {
	engine *sequential.Engine
}

func newSequentialEngine(_ Config, params engineParams) Engine {
	opts := []sequential.Option{
		sequential.WithLatencyTable(params.timing),
	}

	if trace := params.trace; trace != nil {
		trace.Header = []string{"Instruction", "Cycles"}
		opts = append(opts, sequential.WithStepObserver(func(rec sequential.StepRecord) {
			event := ""
			switch {
			case rec.Miss:
				event = "miss"
			case rec.Taken:
				event = "taken"
			}
			trace.Rows = append(trace.Rows, report.TraceRow{
				Cycle: rec.Start,
				Cells: []string{rec.Inst.String(), fmt.Sprint(rec.Cycles)},
				Event: event,
			})
		}))
	}

	return &sequentialEngine{
		engine: sequential.NewEngine(
			params.program, params.regFile, params.memory, params.dcache, opts...),
	}
}

func (e *sequentialEngine) Run() Stats {
	s := e.engine.Run()
	return Stats{
		Cycles:       s.Cycles,
		Instructions: s.Instructions,
		Stalls:       s.Stalls(),
		MemStalls:    s.MemStalls,
		ExecStalls:   s.ExecStalls,
	}
}
