package report

import (
	"encoding/json"
	"io"

	"github.com/sarchlab/pipesim/emu"
	"github.com/sarchlab/pipesim/timing/cache"
)

type jsonGeometry struct {
	Size      int `json:"size"`
	NumSets   int `json:"num_sets"`
	NumWays   int `json:"num_ways"`
	BlockSize int `json:"block_size"`
}

type jsonCache struct {
	Accesses        uint64  `json:"accesses"`
	Hits            uint64  `json:"hits"`
	Misses          uint64  `json:"misses"`
	HitRate         float64 `json:"hit_rate"`
	Evictions       uint64  `json:"evictions"`
	Writebacks      uint64  `json:"writebacks"`
	FlushWritebacks uint64  `json:"flush_writebacks"`
}

type jsonRegister struct {
	Index uint8  `json:"index"`
	Value uint64 `json:"value"`
}

type jsonReport struct {
	Mode       string         `json:"mode"`
	Forwarding string         `json:"forwarding"`
	Geometry   jsonGeometry   `json:"cache_geometry"`
	Stats      Stats          `json:"stats"`
	CPI        float64        `json:"cpi"`
	Cache      jsonCache      `json:"cache"`
	Registers  []jsonRegister `json:"registers,omitempty"`
	Trace      *Trace         `json:"trace,omitempty"`
}

// WriteJSON renders the report as an indented JSON document.
func WriteJSON(w io.Writer, in Input) error {
	doc := jsonReport{
		Mode:       in.Mode,
		Forwarding: in.Forwarding,
		Geometry:   toJSONGeometry(in.Geometry),
		Stats:      in.Stats,
		CPI:        in.Stats.CPI(),
		Cache:      toJSONCache(in.Cache),
		Registers:  toJSONRegisters(in.Registers),
		Trace:      in.Trace,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func toJSONGeometry(g cache.Geometry) jsonGeometry {
	return jsonGeometry{
		Size:      g.Size,
		NumSets:   g.NumSets,
		NumWays:   g.NumWays,
		BlockSize: g.BlockSize,
	}
}

func toJSONCache(s cache.Statistics) jsonCache {
	return jsonCache{
		Accesses:        s.Accesses(),
		Hits:            s.Hits,
		Misses:          s.Misses,
		HitRate:         s.HitRate(),
		Evictions:       s.Evictions,
		Writebacks:      s.Writebacks,
		FlushWritebacks: s.FlushWritebacks,
	}
}

func toJSONRegisters(regs []emu.RegValue) []jsonRegister {
	if regs == nil {
		return nil
	}
	out := make([]jsonRegister, len(regs))
	for i, reg := range regs {
		out[i] = jsonRegister{Index: reg.Index, Value: reg.Value}
	}
	return out
}
