package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Prompter reads interactive answers from the same reader the REPL uses, so
// mid-operation prompts (PIN entry, transfer confirmation) consume the next
// input line instead of racing the command loop.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func NewPrompter(in *bufio.Reader, out io.Writer) *Prompter {
	return &Prompter{in: in, out: out}
}

func (p *Prompter) PromptPIN(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.readLine()
	if err != nil {
		return "", err
	}
	return line, nil
}

// Confirm asks a yes/no question. Only "y" or "yes" (case-insensitive)
// counts as affirmative; anything else is a refusal, not an error.
func (p *Prompter) Confirm(question string) (bool, error) {
	fmt.Fprintf(p.out, "%s [y/n]: ", question)
	line, err := p.readLine()
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(line)
	return answer == "y" || answer == "yes", nil
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
