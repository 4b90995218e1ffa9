package result

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSink_AddAndLen(t *testing.T) {
	s := NewSink(4)
	require.Equal(t, 0, s.Len())
	s.Add(ScanResult{Port: 22, Status: Open})
	s.Add(ScanResult{Port: 80, Status: Closed})
	require.Equal(t, 2, s.Len())
}

func TestSink_CountByStatus(t *testing.T) {
	s := NewSink(4)
	s.Add(ScanResult{Port: 22, Status: Open})
	s.Add(ScanResult{Port: 23, Status: Open})
	s.Add(ScanResult{Port: 80, Status: Closed})
	s.Add(ScanResult{Port: 81, Status: Filtered})

	require.Equal(t, 2, s.CountByStatus(Open))
	require.Equal(t, 1, s.CountByStatus(Closed))
	require.Equal(t, 0, s.CountByStatus(Unknown))
}

func TestSink_OpenPorts(t *testing.T) {
	s := NewSink(4)
	s.Add(ScanResult{Port: 443, Status: Closed})
	s.Add(ScanResult{Port: 22, Status: Open})
	s.Add(ScanResult{Port: 80, Status: Open})

	open := s.OpenPorts()
	require.Len(t, open, 2)
	// arrival order preserved
	require.Equal(t, uint16(22), open[0].Port)
	require.Equal(t, uint16(80), open[1].Port)
}

func TestSink_SortedByPort(t *testing.T) {
	s := NewSink(4)
	s.Add(ScanResult{Port: 443})
	s.Add(ScanResult{Port: 22})
	s.Add(ScanResult{Port: 80})

	sorted := s.SortedByPort()
	require.Len(t, sorted, 3)
	for i := 1; i < len(sorted); i++ {
		require.LessOrEqual(t, sorted[i-1].Port, sorted[i].Port)
	}

	// original arrival order in All() is untouched
	require.Equal(t, uint16(443), s.All()[0].Port, "SortedByPort must not mutate arrival order")
}

func TestPortStatus_String(t *testing.T) {
	cases := map[PortStatus]string{
		Open:         "open",
		Closed:       "closed",
		Filtered:     "filtered",
		OpenFiltered: "open|filtered",
		Unknown:      "unknown",
	}
	for status, want := range cases {
		require.Equal(t, want, status.String())
	}
}
