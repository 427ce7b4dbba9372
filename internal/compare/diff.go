package compare

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Styles for added and removed diff lines, matching the palette used by
// the styled loggers.
var (
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")) // Red
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))  // Green
)

// ColorEnabled reports whether the terminal can render the styled diff.
func ColorEnabled() bool {
	return lipgloss.ColorProfile() != termenv.Ascii
}

// lineOp is one line of a computed diff tagged with its origin: ' ' for
// context, '-' for a line only in the expected text, '+' for a line only
// in the actual text. The text keeps its trailing newline when it has one.
type lineOp struct {
	tag  byte
	text string
}

// hunk is a contiguous group of diff lines sharing context, with 1-based
// starting line numbers and line counts on each side.
type hunk struct {
	aStart, aLines int
	bStart, bLines int
	ops            []lineOp
}

// diffLines compares two texts line by line and groups the differences
// into hunks with the given number of context lines. Equal texts produce
// no hunks.
func diffLines(expected, actual string, context int) []hunk {
	if expected == actual {
		return nil
	}

	// Line-mode diff: map each distinct line to a character, diff the
	// character strings, then rehydrate the lines.
	dmp := diffmatchpatch.New()
	chars1, chars2, lines := dmp.DiffLinesToChars(expected, actual)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(chars1, chars2, false), lines)

	var ops []lineOp
	for _, d := range diffs {
		var tag byte
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			tag = ' '
		case diffmatchpatch.DiffDelete:
			tag = '-'
		case diffmatchpatch.DiffInsert:
			tag = '+'
		}
		for _, line := range splitKeepEnds(d.Text) {
			ops = append(ops, lineOp{tag: tag, text: line})
		}
	}
	return groupHunks(ops, context)
}

// groupHunks collects the changed lines into hunks, merging changes whose
// shared context would overlap.
func groupHunks(ops []lineOp, context int) []hunk {
	type span struct{ start, end int }

	var runs []span
	for i := 0; i < len(ops); {
		if ops[i].tag == ' ' {
			i++
			continue
		}
		j := i
		for j < len(ops) && ops[j].tag != ' ' {
			j++
		}
		runs = append(runs, span{i, j})
		i = j
	}
	if len(runs) == 0 {
		return nil
	}

	var groups []span
	current := runs[0]
	for _, r := range runs[1:] {
		if r.start-current.end <= 2*context {
			current.end = r.end
		} else {
			groups = append(groups, current)
			current = r
		}
	}
	groups = append(groups, current)

	var hunks []hunk
	for _, g := range groups {
		start := g.start - context
		if start < 0 {
			start = 0
		}
		end := g.end + context
		if end > len(ops) {
			end = len(ops)
		}

		h := hunk{aStart: 1, bStart: 1}
		for _, op := range ops[:start] {
			if op.tag != '+' {
				h.aStart++
			}
			if op.tag != '-' {
				h.bStart++
			}
		}
		for _, op := range ops[start:end] {
			if op.tag != '+' {
				h.aLines++
			}
			if op.tag != '-' {
				h.bLines++
			}
			h.ops = append(h.ops, op)
		}
		hunks = append(hunks, h)
	}
	return hunks
}

// printDiff writes the hunks to Out in unified diff format, with the
// expected file on the minus side and the actual output on the plus side.
func (c *Comparator) printDiff(hunks []hunk) {
	w := c.out()
	fmt.Fprintln(w, "--- expected")
	fmt.Fprintln(w, "+++ actual")
	for _, h := range hunks {
		fmt.Fprintf(w, "@@ -%s +%s @@\n", spanLabel(h.aStart, h.aLines), spanLabel(h.bStart, h.bLines))
		for _, op := range h.ops {
			c.printOp(w, op)
		}
	}
}

// spanLabel renders one side of a hunk header. A count of one omits the
// count; a count of zero points at the line before the hunk.
func spanLabel(start, lines int) string {
	if lines == 1 {
		return strconv.Itoa(start)
	}
	if lines == 0 {
		start--
	}
	return fmt.Sprintf("%d,%d", start, lines)
}

func (c *Comparator) printOp(w io.Writer, op lineOp) {
	text := string(op.tag) + strings.TrimSuffix(op.text, "\n")
	if c.Color {
		switch op.tag {
		case '-':
			text = removedStyle.Render(text)
		case '+':
			text = addedStyle.Render(text)
		}
	}
	fmt.Fprintln(w, text)
	if !strings.HasSuffix(op.text, "\n") {
		fmt.Fprintln(w, `\ No newline at end of file`)
	}
}

// normalizeNewlines translates CRLF and bare CR line endings to LF.
func normalizeNewlines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

// splitKeepEnds splits text into lines keeping each line's trailing
// newline, so a missing final newline stays visible to the comparison.
func splitKeepEnds(text string) []string {
	var lines []string
	for len(text) > 0 {
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			lines = append(lines, text)
			break
		}
		lines = append(lines, text[:i+1])
		text = text[i+1:]
	}
	return lines
}
