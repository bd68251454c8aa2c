package pipeline

// CDBSlot is one common data bus broadcast. The slot is free when Tag is
// NoTag.
type CDBSlot struct {
	Tag       Tag
	Value     uint32
	Exception bool
}

// freeCDB returns the first free slot of next's bus, or nil.
func (p *Pipeline) freeCDB() *CDBSlot {
	for i := range p.next.CDB {
		if p.next.CDB[i].Tag == NoTag {
			return &p.next.CDB[i]
		}
	}
	return nil
}

// findCDB returns the broadcast carrying tag, or nil.
func findCDB(cdb []CDBSlot, tag Tag) *CDBSlot {
	if tag == NoTag {
		return nil
	}
	for i := range cdb {
		if cdb[i].Tag == tag {
			return &cdb[i]
		}
	}
	return nil
}
