package pipeline

// ForwardSource indicates where a forwarded value should come from.
type ForwardSource int

const (
	// ForwardNone means no forwarding needed - use register file value.
	ForwardNone ForwardSource = iota
	// ForwardFromMEM means forward from the instruction in the MEM stage.
	ForwardFromMEM
	// ForwardFromWB means forward from the instruction that committed in
	// WB this cycle.
	ForwardFromWB
)

func (f ForwardSource) String() string {
	switch f {
	case ForwardFromMEM:
		return "MEM"
	case ForwardFromWB:
		return "WB"
	default:
		return "none"
	}
}

// ForwardingResult contains forwarding decisions for both source operands.
type ForwardingResult struct {
	// ForwardRs specifies the forwarding source for the Rs operand.
	ForwardRs ForwardSource
	// ForwardRt specifies the forwarding source for the Rt operand
	// (second ALU source, branch comparand or store data).
	ForwardRt ForwardSource
}

// StallResult contains stall and flush control signals.
type StallResult struct {
	// StallIF indicates the IF stage should stall (hold current instruction).
	StallIF bool
	// StallID indicates the ID stage should stall.
	StallID bool
	// InsertBubbleEX indicates a bubble should be inserted in EX stage.
	InsertBubbleEX bool
	// FlushIF indicates the IF stage should be flushed (for branch).
	FlushIF bool
	// FlushID indicates the ID stage should be flushed (for branch).
	FlushID bool
}

// HazardUnit detects data hazards and determines forwarding/stall signals.
type HazardUnit struct {
	forwarding bool
}

// NewHazardUnit creates a new hazard detection unit. With forwarding
// disabled, results are only visible through the register file.
func NewHazardUnit(forwarding bool) *HazardUnit {
	return &HazardUnit{forwarding: forwarding}
}

// Forwarding returns true if the bypass network is enabled.
func (h *HazardUnit) Forwarding() bool {
	return h.forwarding
}

// DetectForwarding determines which source operands of the instruction in
// EX are bypassed. mem is the MEM slot after its access completed and
// committed is the slot that WB retired this cycle.
func (h *HazardUnit) DetectForwarding(ex, mem, committed *Slot) ForwardingResult {
	result := ForwardingResult{
		ForwardRs: ForwardNone,
		ForwardRt: ForwardNone,
	}

	if !h.forwarding || !ex.Valid {
		return result
	}

	if ex.UsesRs {
		result.ForwardRs = h.detectForwardForReg(ex.Rs, mem, committed)
	}
	if ex.UsesRt {
		result.ForwardRt = h.detectForwardForReg(ex.Rt, mem, committed)
	}

	return result
}

// detectForwardForReg checks if a specific register needs forwarding.
func (h *HazardUnit) detectForwardForReg(reg uint8, mem, committed *Slot) ForwardSource {
	// Priority: MEM has precedence over WB (more recent value)
	if mem.Writes(reg) {
		return ForwardFromMEM
	}
	if committed.Writes(reg) {
		return ForwardFromWB
	}
	return ForwardNone
}

// DetectDataHazard returns true if the instruction in ID reads a register
// that an instruction in EX or MEM has yet to commit. Only meaningful
// without forwarding; with the bypass network every such value reaches EX
// in time.
func (h *HazardUnit) DetectDataHazard(id, ex, mem *Slot) bool {
	if h.forwarding || !id.Valid {
		return false
	}

	for _, producer := range []*Slot{ex, mem} {
		if id.UsesRs && producer.Writes(id.Rs) {
			return true
		}
		if id.UsesRt && producer.Writes(id.Rt) {
			return true
		}
	}

	return false
}

// ComputeStalls computes stall and flush signals based on hazard conditions.
func (h *HazardUnit) ComputeStalls(dataHazard bool, branchTaken bool) StallResult {
	result := StallResult{}

	// Data hazard: stall IF and ID, insert bubble in EX
	if dataHazard {
		result.StallIF = true
		result.StallID = true
		result.InsertBubbleEX = true
	}

	// Branch taken: flush IF and ID (kill fetched/decoded instructions)
	if branchTaken {
		result.FlushIF = true
		result.FlushID = true
	}

	return result
}

// GetForwardedValue returns the value to use based on forwarding decision.
func (h *HazardUnit) GetForwardedValue(
	forward ForwardSource,
	originalValue uint64,
	mem *Slot,
	committed *Slot,
) uint64 {
	switch forward {
	case ForwardFromMEM:
		return mem.Result()
	case ForwardFromWB:
		return committed.Result()
	default:
		return originalValue
	}
}
