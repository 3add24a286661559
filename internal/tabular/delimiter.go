package tabular

import "strings"

// delimiterCandidates in preference order for ties.
var delimiterCandidates = []rune{',', ';', '\t', '|'}

// sampleLines is how many non-blank lines are inspected.
const sampleLines = 10

// DetectDelimiter picks the delimiter whose count per line is most consistent
// with the header line over the first lines of text. Ties go to the higher
// header count, then to candidate order. Defaults to a comma.
func DetectDelimiter(text string) rune {
	lines := sample(text, sampleLines)
	if len(lines) == 0 {
		return ','
	}

	best := ','
	bestMatches, bestCount := -1, 0
	for _, c := range delimiterCandidates {
		headerCount := countOutsideQuotes(lines[0], c)
		if headerCount == 0 {
			continue
		}

		matches := 0
		for _, line := range lines[1:] {
			if countOutsideQuotes(line, c) == headerCount {
				matches++
			}
		}

		if matches > bestMatches || (matches == bestMatches && headerCount > bestCount) {
			best, bestMatches, bestCount = c, matches, headerCount
		}
	}
	return best
}

// sample returns up to n non-blank lines.
func sample(text string, n int) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == n {
			break
		}
	}
	return lines
}

// countOutsideQuotes counts c in line, ignoring double-quoted sections.
func countOutsideQuotes(line string, c rune) int {
	inQuotes := false
	count := 0
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == c && !inQuotes:
			count++
		}
	}
	return count
}
