package vm

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Severity ranks a lint issue.
type Severity int

const (
	SeverityError Severity = iota + 1
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// Issue is a problem found by Check. Line and Column are zero-based.
type Issue struct {
	Line     int
	Column   int
	Severity Severity
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%d:%d: %s: %s", i.Line+1, i.Column+1, i.Severity, i.Message)
}

// Check inspects program source without running it. Cells are data as well
// as code, so only problems that are certain to matter are errors.
func Check(lines []string) []Issue {
	if len(lines) == 0 {
		return []Issue{{Severity: SeverityError, Message: "program is empty"}}
	}

	var issues []Issue
	hasQuit := false
	for y, line := range lines {
		if n := utf8.RuneCountInString(line); n > Width {
			issues = append(issues, Issue{
				Line:     y,
				Column:   Width,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("line is %d columns wide; columns past %d are ignored", n, Width),
			})
		}
		x := 0
		for _, r := range line {
			if x >= Width {
				break
			}
			if r == 'q' {
				hasQuit = true
			}
			if !IsPrintable(int(r), false) {
				issues = append(issues, Issue{
					Line:     y,
					Column:   x,
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("character %s is not executable", ToPrintable(int(r), true)),
				})
			}
			x++
		}
	}

	if issue, ok := checkOrigin(lines[0]); ok {
		issues = append(issues, issue)
	}
	if !hasQuit {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Message:  `program contains no "q" and cannot finish normally`,
		})
	}
	return issues
}

// checkOrigin verifies that the first instruction gives the pointer a
// direction. Anything else stops with "no direction" after one step.
func checkOrigin(first string) (Issue, bool) {
	r, _ := utf8.DecodeRuneInString(first)
	if first == "" {
		r = Space
	}
	ins, ok := Decode(int(r))
	if ok {
		switch ins {
		case InsLeft, InsRight, InsUp, InsDown,
			InsJumpLeft, InsJumpRight, InsJumpUp, InsJumpDown, InsQuit:
			return Issue{}, false
		case InsDirective:
			if strings.HasPrefix(first, "#!") {
				return Issue{}, false
			}
		}
	}
	return Issue{
		Severity: SeverityError,
		Message:  fmt.Sprintf("program starts with %q; the first instruction must set a direction", ToPrintable(int(r), true)),
	}, true
}
