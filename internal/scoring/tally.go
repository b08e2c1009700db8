package scoring

import (
	"math"
	"sort"
	"strconv"
	"sync"
)

// Tally accumulates rewards for reporting. It is safe for concurrent use.
type Tally struct {
	mu        sync.Mutex
	count     int
	sum       float64
	formatOK  int
	valid     int
	correct   int
	histogram map[string]int
}

func NewTally() *Tally {
	return &Tally{histogram: make(map[string]int)}
}

// Add records one result.
func (t *Tally) Add(r Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count++
	t.sum += r.Score
	if r.FormatOK {
		t.formatOK++
	}
	if r.ValidAction {
		t.valid++
	}
	if r.Correct {
		t.correct++
	}
	t.histogram[Bucket(r.Score)]++
}

// Summary is a snapshot of a Tally.
type Summary struct {
	Count       int            `json:"count"`
	Mean        float64        `json:"mean"`
	FormatRate  float64        `json:"format_rate"`
	ValidRate   float64        `json:"valid_rate"`
	CorrectRate float64        `json:"correct_rate"`
	Histogram   map[string]int `json:"histogram"`
}

func (t *Tally) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := Summary{Count: t.count, Histogram: make(map[string]int, len(t.histogram))}
	for k, v := range t.histogram {
		s.Histogram[k] = v
	}
	if t.count == 0 {
		return s
	}
	n := float64(t.count)
	s.Mean = t.sum / n
	s.FormatRate = float64(t.formatOK) / n
	s.ValidRate = float64(t.valid) / n
	s.CorrectRate = float64(t.correct) / n
	return s
}

// Bucket renders a score rounded to one decimal, so 0.1+0.2 lands in "0.3".
func Bucket(score float64) string {
	return strconv.FormatFloat(math.Round(score*10)/10, 'f', 1, 64)
}

// Buckets returns the histogram keys in ascending order.
func (s Summary) Buckets() []string {
	keys := make([]string, 0, len(s.Histogram))
	for k := range s.Histogram {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
