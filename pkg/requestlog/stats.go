package requestlog

import (
	"math"
	"sort"
)

// topEndpointCount bounds the TopEndpoints list.
const topEndpointCount = 5

// Statistics summarizes the current buffer. It is derived on demand and
// never stored.
type Statistics struct {
	// TotalCount is the number of entries in the buffer.
	TotalCount int `json:"totalCount"`

	// StatusBuckets counts entries per status class ("1xx".."5xx",
	// "other" for anything outside 100-599).
	StatusBuckets map[string]int `json:"statusBuckets"`

	// AvgResponseTimeMs is the mean response time in milliseconds.
	AvgResponseTimeMs float64 `json:"avgResponseTimeMs"`

	// P95ResponseTimeMs is the 95th percentile response time.
	P95ResponseTimeMs float64 `json:"p95ResponseTimeMs"`

	// TopEndpoints lists the most frequently captured endpoints,
	// highest count first.
	TopEndpoints []EndpointCount `json:"topEndpoints"`
}

// EndpointCount is one "METHOD path" frequency bucket.
type EndpointCount struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Count  int    `json:"count"`
}

func computeStats(entries []*Entry) *Statistics {
	stats := &Statistics{
		TotalCount:    len(entries),
		StatusBuckets: make(map[string]int),
	}
	if len(entries) == 0 {
		return stats
	}

	latencies := make([]float64, 0, len(entries))
	type endpointKey struct{ method, path string }
	endpoints := make(map[endpointKey]int)

	for _, e := range entries {
		stats.StatusBuckets[statusBucket(e.Response.StatusCode)]++
		latencies = append(latencies, float64(e.ResponseTimeMs))
		endpoints[endpointKey{e.Request.Method, e.Request.Path}]++
	}

	sort.Float64s(latencies)
	sum := 0.0
	for _, l := range latencies {
		sum += l
	}
	stats.AvgResponseTimeMs = sum / float64(len(latencies))
	stats.P95ResponseTimeMs = percentile(latencies, 0.95)

	ranked := make([]EndpointCount, 0, len(endpoints))
	for k, c := range endpoints {
		ranked = append(ranked, EndpointCount{Method: k.method, Path: k.path, Count: c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		if ranked[i].Path != ranked[j].Path {
			return ranked[i].Path < ranked[j].Path
		}
		return ranked[i].Method < ranked[j].Method
	})
	if len(ranked) > topEndpointCount {
		ranked = ranked[:topEndpointCount]
	}
	stats.TopEndpoints = ranked

	return stats
}

func statusBucket(code int) string {
	switch {
	case code >= 100 && code < 200:
		return "1xx"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "other"
	}
}

// percentile interpolates the p-th percentile of a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	index := p * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}
	fraction := index - float64(lower)
	return sorted[lower]*(1-fraction) + sorted[upper]*fraction
}
