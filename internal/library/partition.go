package library

// Partitions is a library split by status. Each bucket keeps the relative
// order of the source list.
type Partitions struct {
	buckets [5][]TrackedTitle
}

// PartitionByStatus splits list into one bucket per status.
// Titles with an unrecognized status are dropped.
func PartitionByStatus(list []TrackedTitle) Partitions {
	var p Partitions
	for _, t := range list {
		i := t.Status.index()
		if i < 0 {
			continue
		}
		p.buckets[i] = append(p.buckets[i], t)
	}
	return p
}

// Of returns the bucket for s, nil when empty or s is invalid.
func (p Partitions) Of(s Status) []TrackedTitle {
	i := s.index()
	if i < 0 {
		return nil
	}
	return p.buckets[i]
}

// Len returns the number of titles across all buckets.
func (p Partitions) Len() int {
	n := 0
	for _, b := range p.buckets {
		n += len(b)
	}
	return n
}

// Counts returns the size of each bucket.
func (p Partitions) Counts() map[Status]int {
	counts := make(map[Status]int, len(Statuses))
	for i, s := range Statuses {
		counts[s] = len(p.buckets[i])
	}
	return counts
}
