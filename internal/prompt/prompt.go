// Package prompt provides the interactive input primitives the workflow is
// built from. Every primitive reads from an injected reader and writes to an
// injected writer, so tests drive them with scripted input instead of a
// terminal.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Prompter wraps an input source and output sink for interactive prompts.
type Prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// New creates a Prompter reading from in and writing to out.
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{scanner: bufio.NewScanner(in), out: out}
}

// Printf writes formatted output to the prompter's sink.
func (p *Prompter) Printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

// Println writes a line to the prompter's sink.
func (p *Prompter) Println(args ...any) {
	fmt.Fprintln(p.out, args...)
}

// readLine returns the next input line. io.EOF is reported when the source
// is exhausted, which the workflow treats like an operator interrupt.
func (p *Prompter) readLine() (string, error) {
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return p.scanner.Text(), nil
}

// Line prompts until the trimmed input satisfies valid. The invalid message
// is shown on each rejection. A nil valid accepts anything, including empty.
func (p *Prompter) Line(label, invalid string, valid func(string) bool) (string, error) {
	for {
		fmt.Fprintf(p.out, "%s\n   → ", label)
		line, err := p.readLine()
		if err != nil {
			return "", err
		}
		line = strings.TrimSpace(line)
		if valid == nil || valid(line) {
			return line, nil
		}
		fmt.Fprintf(p.out, "   ✗ %s\n", invalid)
	}
}

// MultiLine captures free text terminated by two consecutive empty lines.
// Trailing empty lines are stripped from the result. Source exhaustion
// before the terminator is reported as io.EOF, like the other primitives.
func (p *Prompter) MultiLine(label string) (string, error) {
	fmt.Fprintf(p.out, "%s\n", label)
	fmt.Fprintln(p.out, "   (Entrée pour un saut de ligne, deux fois Entrée pour valider)")

	var lines []string
	consecutiveEmpty := 0
	for {
		fmt.Fprint(p.out, "   ")
		line, err := p.readLine()
		if err != nil {
			return "", err
		}
		if line == "" {
			consecutiveEmpty++
			if consecutiveEmpty >= 2 {
				break
			}
			lines = append(lines, "")
			continue
		}
		consecutiveEmpty = 0
		lines = append(lines, line)
	}

	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n"), nil
}

// Confirm asks a yes/no question. Only an explicit affirmative answer
// returns true; anything else, including an empty line, is a no.
func (p *Prompter) Confirm(question string) (bool, error) {
	fmt.Fprintf(p.out, "%s (o/N): ", question)
	line, err := p.readLine()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "o", "oui", "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Select shows a numbered list and returns the chosen zero-based index. An
// empty entry skips the selection and returns -1. Out-of-range or
// non-numeric entries re-prompt.
func (p *Prompter) Select(label string, items []string) (int, error) {
	for i, item := range items {
		fmt.Fprintf(p.out, "   %d. %s\n", i+1, item)
	}
	for {
		fmt.Fprintf(p.out, "\n→ %s (numéro) ou Entrée pour ignorer: ", label)
		line, err := p.readLine()
		if err != nil {
			return -1, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return -1, nil
		}
		choice, err := strconv.Atoi(line)
		if err != nil || choice < 1 || choice > len(items) {
			fmt.Fprintf(p.out, "   ✗ Choix invalide (1-%d)\n", len(items))
			continue
		}
		return choice - 1, nil
	}
}
