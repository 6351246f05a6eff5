package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Sternrassler/gitdata/pkg/query"
)

// linePrompter asks for the data source on the console.
type linePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// Choose implements query.Prompter. End of input counts as exit.
func (p *linePrompter) Choose(cachedAt *time.Time) (query.Choice, error) {
	prompt := "Read from API (a) or exit (x)? "
	if cachedAt != nil {
		fmt.Fprintf(p.out, "Cached data found -->> %s\n", cachedAt.Local().Format("2006-01-02 15:04:05"))
		prompt = "Read from API (a), cache (c) or exit (x)? "
	} else {
		fmt.Fprintln(p.out, "Cached data not available.")
	}
	fmt.Fprint(p.out, prompt)

	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	if answer == "" {
		return query.ChoiceExit, nil
	}
	return query.Choice(answer[:1]), nil
}
