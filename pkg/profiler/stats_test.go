package profiler

import (
	"encoding/json"
	"testing"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name   string
		values []int64
		want   Summary
	}{
		{"no values", nil, Empty{}},
		{"one value", []int64{12}, Single{Value: 12}},
		{
			"two values",
			[]int64{4, 8},
			Aggregate{Count: 2, Min: 4, Max: 8, Mean: 6, Median: 6, StdDev: 2, Variance: 4},
		},
		{
			"odd count unsorted",
			[]int64{9, 1, 5},
			Aggregate{Count: 3, Min: 1, Max: 9, Mean: 5, Median: 5, StdDev: 3.265986323710904, Variance: 10.666666666666666},
		},
		{
			"even count median averages middles",
			[]int64{1, 2, 3, 10},
			Aggregate{Count: 4, Min: 1, Max: 10, Mean: 4, Median: 2.5, StdDev: 3.5355339059327378, Variance: 12.5},
		},
		{
			"identical values",
			[]int64{7, 7, 7},
			Aggregate{Count: 3, Min: 7, Max: 7, Mean: 7, Median: 7, StdDev: 0, Variance: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.values)
			if !summariesEqual(got, tt.want) {
				t.Errorf("Summarize(%v) = %#v, want %#v", tt.values, got, tt.want)
			}
		})
	}
}

func summariesEqual(a, b Summary) bool {
	aa, okA := a.(Aggregate)
	bb, okB := b.(Aggregate)
	if !okA || !okB {
		return a == b
	}
	return aa.Count == bb.Count &&
		approxEqual(aa.Min, bb.Min) &&
		approxEqual(aa.Max, bb.Max) &&
		approxEqual(aa.Mean, bb.Mean) &&
		approxEqual(aa.Median, bb.Median) &&
		approxEqual(aa.StdDev, bb.StdDev) &&
		approxEqual(aa.Variance, bb.Variance)
}

func TestSummarize_DoesNotReorderInput(t *testing.T) {
	values := []int64{3, 1, 2}
	Summarize(values)
	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Errorf("input was modified: %v", values)
	}
}

func TestSummaryJSONKeys(t *testing.T) {
	tests := []struct {
		name    string
		summary Summary
		want    string
	}{
		{"empty", Empty{}, `{}`},
		{"single", Single{Value: 5}, `{"value":5}`},
		{
			"aggregate",
			Aggregate{Count: 2, Min: 1, Max: 3, Mean: 2, Median: 2, StdDev: 1, Variance: 1},
			`{"count":2,"min":1,"max":3,"mean":2,"median":2,"stdev":1,"variance":1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.summary)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("Marshal = %s, want %s", data, tt.want)
			}
		})
	}
}
