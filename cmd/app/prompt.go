package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"

	"github-cv-curator/internal/adapter/github"
)

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// prompter asks for the inputs the command line did not provide.
type prompter struct {
	in  io.ReadCloser
	out io.WriteCloser
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: io.NopCloser(in), out: nopWriteCloser{out}}
}

func (p *prompter) run(prompt promptui.Prompt) (string, error) {
	prompt.Stdin = p.in
	prompt.Stdout = p.out
	answer, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("prompt %q: %w", prompt.Label, err)
	}
	return strings.TrimSpace(answer), nil
}

func (p *prompter) target() (string, error) {
	return p.run(promptui.Prompt{
		Label:    "GitHub username or URL",
		Validate: validateTarget,
	})
}

func (p *prompter) count(current int) (int, error) {
	answer, err := p.run(promptui.Prompt{
		Label:    "Number of projects",
		Default:  strconv.Itoa(current),
		Validate: validateCount,
	})
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(answer)
}

// jobDescription accepts the text itself or a path to a file holding it.
func (p *prompter) jobDescription() (string, error) {
	answer, err := p.run(promptui.Prompt{
		Label: "Job description (text or file path)",
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("job description is empty")
			}
			return nil
		},
	})
	if err != nil {
		return "", err
	}
	if info, statErr := os.Stat(answer); statErr == nil && !info.IsDir() {
		return readJobDescription("", answer)
	}
	return answer, nil
}

func validateTarget(s string) error {
	_, err := github.ParseTarget(s)
	return err
}

func validateCount(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return errors.New("enter a whole number")
	}
	if n <= 0 {
		return errors.New("count must be positive")
	}
	return nil
}
