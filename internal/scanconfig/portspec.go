package scanconfig

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParsePortSpec parses a port specification string into a sorted,
// deduplicated slice of ports. Supported forms:
//
//   - single: "22"
//   - list:   "22,80,443"
//   - range:  "1-1024"
//   - mixed:  "22,80,8000-8100"
//
// A reversed range ("10-1") is normalized rather than rejected, to keep
// parse/format a round trip.
func ParsePortSpec(spec string) ([]uint16, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("scanconfig: empty port spec")
	}

	seen := make(map[int]struct{})
	for _, token := range strings.Split(spec, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			return nil, fmt.Errorf("scanconfig: empty token in port spec %q", spec)
		}

		if strings.Contains(token, "-") {
			bounds := strings.SplitN(token, "-", 2)
			if len(bounds) != 2 {
				return nil, fmt.Errorf("scanconfig: invalid range token %q", token)
			}
			start, err := strconv.Atoi(strings.TrimSpace(bounds[0]))
			if err != nil {
				return nil, fmt.Errorf("scanconfig: invalid range start %q: %w", token, err)
			}
			end, err := strconv.Atoi(strings.TrimSpace(bounds[1]))
			if err != nil {
				return nil, fmt.Errorf("scanconfig: invalid range end %q: %w", token, err)
			}
			if start < MinPort || end < MinPort || start > MaxPort || end > MaxPort {
				return nil, fmt.Errorf("scanconfig: port numbers must be in %d..%d: %q", MinPort, MaxPort, token)
			}
			if start > end {
				start, end = end, start
			}
			for p := start; p <= end; p++ {
				seen[p] = struct{}{}
			}
			continue
		}

		v, err := strconv.Atoi(token)
		if err != nil {
			return nil, fmt.Errorf("scanconfig: invalid port token %q: %w", token, err)
		}
		if v < MinPort || v > MaxPort {
			return nil, fmt.Errorf("scanconfig: port numbers must be in %d..%d: %d", MinPort, MaxPort, v)
		}
		seen[v] = struct{}{}
	}

	ports := make([]int, 0, len(seen))
	for p := range seen {
		ports = append(ports, p)
	}
	sort.Ints(ports)

	out := make([]uint16, len(ports))
	for i, p := range ports {
		out[i] = uint16(p)
	}
	return out, nil
}

// FormatPortSpec serializes a sorted port slice back into the most
// compact comma-separated/range form it can, used for round-tripping and
// by config file persistence.
func FormatPortSpec(ports []uint16) string {
	if len(ports) == 0 {
		return ""
	}
	sorted := append([]uint16(nil), ports...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var parts []string
	i := 0
	for i < len(sorted) {
		start := sorted[i]
		end := start
		j := i + 1
		for j < len(sorted) && sorted[j] == end+1 {
			end = sorted[j]
			j++
		}
		if start == end {
			parts = append(parts, strconv.Itoa(int(start)))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", start, end))
		}
		i = j
	}
	return strings.Join(parts, ",")
}
