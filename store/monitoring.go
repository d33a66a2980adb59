package store

type CollectionStats struct {
	Docs      int
	DataSize  int64
	DataAlloc int64
}

func (c *Collection) Stats() (CollectionStats, error) {
	var result CollectionStats
	err := c.store.read(func(tx storageTx) error {
		b := tx.Bucket(c.name)
		if b == nil {
			return nil
		}
		bs := b.Stats()
		result = CollectionStats{
			Docs:      bs.KeyN,
			DataSize:  bs.LeafInuse,
			DataAlloc: bs.BranchAlloc + bs.LeafAlloc,
		}
		return nil
	})
	return result, err
}
