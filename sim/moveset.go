package sim

import "math/rand"

// Move is a directed diffusion step of the atom at From into the empty site To.
type Move struct {
	From, To uint32
}

func (m Move) key() uint64 { return uint64(m.From)<<32 | uint64(m.To) }

// MoveSet holds the currently legal moves with O(1) insert, remove and uniform sampling.
// moves is dense; index maps a packed move to its position in moves.
//
// Thread-safety: NOT thread-safe.
type MoveSet struct {
	moves []Move
	index map[uint64]int
}

// NewMoveSet creates an empty MoveSet sized for about capacity moves.
func NewMoveSet(capacity int) *MoveSet {
	return &MoveSet{
		moves: make([]Move, 0, capacity),
		index: make(map[uint64]int, capacity),
	}
}

// Add inserts (from, to). Adding a present move is a no-op.
func (ms *MoveSet) Add(from, to uint32) {
	m := Move{From: from, To: to}
	k := m.key()
	if _, ok := ms.index[k]; ok {
		return
	}
	ms.index[k] = len(ms.moves)
	ms.moves = append(ms.moves, m)
}

// Remove deletes (from, to) by swapping the last move into its slot.
// Removing an absent move is a no-op.
func (ms *MoveSet) Remove(from, to uint32) {
	k := Move{From: from, To: to}.key()
	i, ok := ms.index[k]
	if !ok {
		return
	}
	last := len(ms.moves) - 1
	if i != last {
		moved := ms.moves[last]
		ms.moves[i] = moved
		ms.index[moved.key()] = i
	}
	ms.moves = ms.moves[:last]
	delete(ms.index, k)
}

// Sample returns a uniformly chosen move. Sampling an empty set panics.
func (ms *MoveSet) Sample(rng *rand.Rand) Move {
	if len(ms.moves) == 0 {
		violate("move set non-empty at sampling", -1, "")
	}
	return ms.moves[rng.Intn(len(ms.moves))]
}

// Len returns the number of moves.
func (ms *MoveSet) Len() int { return len(ms.moves) }

// Contains reports whether (from, to) is present.
func (ms *MoveSet) Contains(from, to uint32) bool {
	_, ok := ms.index[Move{From: from, To: to}.key()]
	return ok
}

// Moves returns the moves in internal order. The slice must not be modified and is
// invalidated by the next Add or Remove.
func (ms *MoveSet) Moves() []Move { return ms.moves }

// Targets appends the distinct target sites of all moves to dst.
func (ms *MoveSet) Targets(dst []uint32) []uint32 {
	seen := make(map[uint32]struct{}, len(ms.moves)/2)
	for _, m := range ms.moves {
		if _, ok := seen[m.To]; ok {
			continue
		}
		seen[m.To] = struct{}{}
		dst = append(dst, m.To)
	}
	return dst
}
