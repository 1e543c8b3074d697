package metrics

import (
	"reflect"
	"runtime"
	"sync"
	"testing"
)

func TestBasicProvider_Counter_ReusedAndAccumulates(t *testing.T) {
	p := NewBasicProvider()

	c1 := p.Counter(PublishTotal)
	c2 := p.Counter(PublishTotal)

	if reflect.ValueOf(c1).Pointer() != reflect.ValueOf(c2).Pointer() {
		t.Fatalf("expected same counter instance for same name")
	}

	c1.Add(3)
	c2.Add(2)
	if got, ok := p.CounterValue(PublishTotal); !ok || got != 5 {
		t.Fatalf("counter value = (%d, %v); want (5, true)", got, ok)
	}

	// Different name -> different instance, and untouched.
	cOther := p.Counter(PublishFailuresTotal)
	if reflect.ValueOf(cOther).Pointer() == reflect.ValueOf(c1).Pointer() {
		t.Fatalf("expected different counter instance for different name")
	}
	if got, ok := p.CounterValue(PublishFailuresTotal); !ok || got != 0 {
		t.Fatalf("failures counter = (%d, %v); want (0, true)", got, ok)
	}
}

func TestBasicProvider_CounterValue_UnknownNameReturnsFalse(t *testing.T) {
	p := NewBasicProvider()
	if _, ok := p.CounterValue(PublishTotal); ok {
		t.Fatalf("expected no value for a counter never created")
	}
}

func TestBasicProvider_UpDownCounter_ReusedAndMoves(t *testing.T) {
	p := NewBasicProvider()
	u1 := p.UpDownCounter(InflightTasks)
	u2 := p.UpDownCounter(InflightTasks)

	if reflect.ValueOf(u1).Pointer() != reflect.ValueOf(u2).Pointer() {
		t.Fatalf("expected same updown instance for same name")
	}

	u1.Add(+3) // a task's Apply increments inflight
	u2.Add(-1) // its publish goroutine decrements on completion
	u1.Add(+10)
	if got, ok := p.UpDownValue(InflightTasks); !ok || got != 12 {
		t.Fatalf("inflight value = (%d, %v); want (12, true)", got, ok)
	}
}

func TestBasicProvider_Histogram_RecordsResultLatencyStats(t *testing.T) {
	p := NewBasicProvider()
	h := p.Histogram(ResultLatencySecs)

	h.Record(0.1)
	h.Record(0.3)
	h.Record(0.2)

	s, ok := p.HistogramValue(ResultLatencySecs)
	if !ok {
		t.Fatalf("expected a recorded histogram")
	}
	if s.Count != 3 {
		t.Fatalf("count = %d; want 3", s.Count)
	}
	if s.Min != 0.1 || s.Max != 0.3 {
		t.Fatalf("min/max = (%v,%v); want (0.1,0.3)", s.Min, s.Max)
	}
	if s.Sum < 0.59 || s.Sum > 0.61 {
		t.Fatalf("sum = %v; want ~0.6", s.Sum)
	}
	if s.Mean < 0.19 || s.Mean > 0.21 {
		t.Fatalf("mean = %v; want ~0.2", s.Mean)
	}
}

func TestBasicProvider_Concurrent_GetSameInstrument(t *testing.T) {
	p := NewBasicProvider()
	n := 50
	ptrs := make([]uintptr, n)
	wg := sync.WaitGroup{}
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(idx int) {
			defer wg.Done()
			c := p.Counter(PoolOwned)
			ptrs[idx] = reflect.ValueOf(c).Pointer()
		}(i)
	}
	wg.Wait()
	first := ptrs[0]
	for i := 1; i < n; i++ {
		if ptrs[i] != first {
			t.Fatalf("expected same pointer for all retrieved counters; mismatch at %d", i)
		}
	}
}

func TestBasicProvider_Concurrent_CounterAdd(t *testing.T) {
	p := NewBasicProvider()
	c := p.Counter(PublishTotal)

	workers := runtime.NumCPU() * 2
	iters := 1000
	wg := sync.WaitGroup{}
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < iters; i++ {
				c.Add(1)
			}
		}()
	}
	wg.Wait()
	expected := int64(workers * iters)
	if got, ok := p.CounterValue(PublishTotal); !ok || got != expected {
		t.Fatalf("counter = (%d, %v); want (%d, true)", got, ok, expected)
	}
}

func TestBasicProvider_Concurrent_UpDownAdd(t *testing.T) {
	p := NewBasicProvider()
	u := p.UpDownCounter(InflightTasks)

	workers := runtime.NumCPU() * 2
	iters := 1000
	wg := sync.WaitGroup{}
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(id int) {
			defer wg.Done()
			for i := 0; i < iters; i++ {
				if (i+id)%2 == 0 {
					u.Add(+1) // Apply
				} else {
					u.Add(-1) // publish goroutine completes
				}
			}
		}(w)
	}
	wg.Wait()
	// Even distribution; half the operations are +1 and half are -1.
	expected := int64(0)
	if got, ok := p.UpDownValue(InflightTasks); !ok || got != expected {
		t.Fatalf("inflight = (%d, %v); want (%d, true)", got, ok, expected)
	}
}

func TestBasicProvider_Concurrent_HistogramRecord(t *testing.T) {
	p := NewBasicProvider()
	h := p.Histogram(PublishLatencySecs)

	workers := runtime.NumCPU() * 2
	iters := 500
	wg := sync.WaitGroup{}
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(base int) {
			defer wg.Done()
			for i := 0; i < iters; i++ {
				// record a few bounded values
				v := float64((base%10)+i%10) / 100.0
				h.Record(v)
			}
		}(w)
	}
	wg.Wait()
	s, ok := p.HistogramValue(PublishLatencySecs)
	if !ok {
		t.Fatalf("expected a recorded histogram")
	}
	expectedCount := int64(workers * iters)
	if s.Count != expectedCount {
		t.Fatalf("hist count = %d; want %d", s.Count, expectedCount)
	}
	if s.Min < 0.0 || s.Min > 0.09 || s.Max < 0.0 || s.Max > 0.19 {
		t.Fatalf("min/max out of expected range: (%v,%v)", s.Min, s.Max)
	}
}
