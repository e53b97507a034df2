package core

import "github.com/cockroachdb/errors"

// IdentifierPool hands out dense ids, reusing released slots before growing.
type IdentifierPool struct {
	owners []interface{}
}

func NewIdentifierPool(capacity int) *IdentifierPool {
	return &IdentifierPool{
		owners: make([]interface{}, 0, capacity),
	}
}

func (p *IdentifierPool) Acquire(owner interface{}) uint32 {
	if owner == nil {
		owner = struct{}{}
	}
	for i := range p.owners {
		// Existing free spot. Take it.
		if p.owners[i] == nil {
			p.owners[i] = owner
			return uint32(i)
		}
	}
	p.owners = append(p.owners, owner)
	return uint32(len(p.owners) - 1)
}

func (p *IdentifierPool) Release(id uint32) error {
	if int(id) >= len(p.owners) {
		return errors.Newf("identifier release: id '%d' out of range (max=%d)", id, len(p.owners))
	}
	if p.owners[id] == nil {
		return errors.Newf("identifier release: id '%d' is not in use", id)
	}
	p.owners[id] = nil
	return nil
}

func (p *IdentifierPool) Owner(id uint32) (interface{}, bool) {
	if int(id) >= len(p.owners) || p.owners[id] == nil {
		return nil, false
	}
	return p.owners[id], true
}
