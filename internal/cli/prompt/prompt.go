package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrAborted is returned when input ends before an answer was given.
var ErrAborted = errors.New("prompt: input closed")

// Prompter reads answers from a line reader, masking secrets when the input
// is a terminal.
type Prompter struct {
	reader *bufio.Reader
	out    io.Writer
	fd     int
	tty    bool
}

func New(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{reader: bufio.NewReader(in), out: out, fd: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
		p.tty = true
	}
	return p
}

// Interactive reports whether input is a terminal.
func (p *Prompter) Interactive() bool { return p.tty }

// Line reads one trimmed line. Empty answers are allowed.
func (p *Prompter) Line(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrAborted
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Required asks until a non-empty answer is given.
func (p *Prompter) Required(label string) (string, error) {
	for {
		v, err := p.Line(label)
		if err != nil {
			return "", err
		}
		if v != "" {
			return v, nil
		}
		fmt.Fprintf(p.out, "%s cannot be empty.\n", label)
	}
}

// Secret reads without echo on a terminal and falls back to a plain line.
func (p *Prompter) Secret(label string) (string, error) {
	if !p.tty {
		return p.Line(label)
	}
	fmt.Fprintf(p.out, "%s: ", label)
	b, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		line, lerr := p.reader.ReadString('\n')
		if lerr != nil {
			return "", lerr
		}
		b = []byte(line)
	}
	return strings.TrimSpace(string(b)), nil
}

// NewSecret asks for a secret twice and repeats until both match.
func (p *Prompter) NewSecret(label string, valid func(string) error) (string, error) {
	for {
		v, err := p.Secret(label)
		if err != nil {
			return "", err
		}
		if valid != nil {
			if verr := valid(v); verr != nil {
				fmt.Fprintln(p.out, verr.Error())
				continue
			}
		}
		confirm, err := p.Secret("Confirm " + strings.ToLower(label[:1]) + label[1:])
		if err != nil {
			return "", err
		}
		if v != confirm {
			fmt.Fprintln(p.out, "Entries do not match. Please try again.")
			continue
		}
		return v, nil
	}
}

// Confirm asks a yes/no question; anything but y/yes is no.
func (p *Prompter) Confirm(label string) (bool, error) {
	v, err := p.Line(label + " [y/N]")
	if err != nil {
		return false, err
	}
	v = strings.ToLower(v)
	return v == "y" || v == "yes", nil
}

// Mask hides all but the first and last character of s.
func Mask(s string) string {
	r := []rune(s)
	if len(r) <= 2 {
		return strings.Repeat("*", len(r))
	}
	return string(r[0]) + strings.Repeat("*", len(r)-2) + string(r[len(r)-1])
}
