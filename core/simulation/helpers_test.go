package simulation

// scriptedSource replays the given draws, then returns tail forever.
type scriptedSource struct {
	draws []float64
	tail  float64
	used  int
}

func (s *scriptedSource) Float64() float64 {
	if s.used < len(s.draws) {
		v := s.draws[s.used]
		s.used++
		return v
	}
	s.used++
	return s.tail
}
