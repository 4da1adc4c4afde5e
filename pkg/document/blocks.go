package document

import (
	"github.com/stateful/labdoc/pkg/document/table"
)

type Direction int

const (
	Up Direction = iota + 1
	Down
)

// Blocks is an ordered document. Its methods never modify the receiver;
// each returns a new slice.
type Blocks []Block

// Clone returns a deep copy of bs.
func (bs Blocks) Clone() Blocks {
	if bs == nil {
		return nil
	}
	result := make(Blocks, len(bs))
	for i, b := range bs {
		result[i] = b.Clone()
	}
	return result
}

// Index returns the position of the block with the given id, or -1.
func (bs Blocks) Index(id string) int {
	for i, b := range bs {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func (bs Blocks) Find(id string) (Block, bool) {
	if i := bs.Index(id); i >= 0 {
		return bs[i].Clone(), true
	}
	return Block{}, false
}

func (bs Blocks) IDs() []string {
	ids := make([]string, len(bs))
	for i, b := range bs {
		ids[i] = b.ID
	}
	return ids
}

// Insert places b after the block afterID. An empty or unknown afterID
// appends.
func (bs Blocks) Insert(afterID string, b Block) Blocks {
	at := len(bs)
	if i := bs.Index(afterID); afterID != "" && i >= 0 {
		at = i + 1
	}
	result := make(Blocks, 0, len(bs)+1)
	result = append(result, bs[:at]...)
	result = append(result, b)
	result = append(result, bs[at:]...)
	return result
}

func (bs Blocks) Append(b Block) Blocks {
	return bs.Insert("", b)
}

// Update applies p to the block id.
func (bs Blocks) Update(id string, p Patch) Blocks {
	i := bs.Index(id)
	if i < 0 {
		return bs
	}
	result := append(Blocks(nil), bs...)
	result[i] = p.Apply(result[i])
	return result
}

func (bs Blocks) Delete(id string) Blocks {
	result := make(Blocks, 0, len(bs))
	for _, b := range bs {
		if b.ID != id {
			result = append(result, b)
		}
	}
	return result
}

// Move moves the block id by one position. Moving past either end is a
// no-op.
func (bs Blocks) Move(id string, dir Direction) Blocks {
	i := bs.Index(id)
	if i < 0 {
		return bs
	}
	j := i - 1
	if dir == Down {
		j = i + 1
	}
	if j < 0 || j >= len(bs) {
		return bs
	}
	return bs.swap(i, j)
}

// Reorder swaps the blocks fromID and toID, as a drop of one block onto
// another does. It is a no-op if the ids are equal or either is missing.
func (bs Blocks) Reorder(fromID, toID string) Blocks {
	if fromID == toID {
		return bs
	}
	i, j := bs.Index(fromID), bs.Index(toID)
	if i < 0 || j < 0 {
		return bs
	}
	return bs.swap(i, j)
}

func (bs Blocks) swap(i, j int) Blocks {
	result := append(Blocks(nil), bs...)
	result[i], result[j] = result[j], result[i]
	return result
}

// Table returns the table payload of block id. Its signature matches
// chart.TableResolver.
func (bs Blocks) Table(id string) (table.Payload, bool) {
	b, ok := bs.Find(id)
	if !ok {
		return table.Payload{}, false
	}
	return b.TablePayload()
}

// Filter returns the blocks for which keep returns true.
func (bs Blocks) Filter(keep func(Block) bool) Blocks {
	var result Blocks
	for _, b := range bs {
		if keep(b) {
			result = append(result, b)
		}
	}
	return result
}
