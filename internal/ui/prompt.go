package ui

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/shopspring/decimal"

	"github.com/notexe/proofpal/internal/purchase"
	"github.com/notexe/proofpal/internal/tracker"
)

// ErrAborted is returned when the user interrupts a prompt.
var ErrAborted = errors.New("aborted")

type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

// Prompter asks for the fields of a new purchase one line at a time.
type Prompter struct {
	rl       lineReader
	complete func(items []string)
	out      io.Writer
	close    func() error
}

// PurchaseDefaults pre-fills the questions of AskPurchase.
type PurchaseDefaults struct {
	Today          time.Time
	ReturnDays     int
	WarrantyMonths int
	Stores         []string
	Categories     []string
}

// NewPrompter opens a readline session on the terminal. Close it when
// done.
func NewPrompter() (*Prompter, error) {
	rl, err := readline.NewEx(&readline.Config{
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		FuncFilterInputRune: func(r rune) (rune, bool) {
			if r == readline.CharCtrlZ {
				return r, false
			}
			return r, true
		},
	})
	if err != nil {
		return nil, err
	}

	p := &Prompter{
		rl:    rl,
		out:   rl.Stderr(),
		close: rl.Close,
		complete: func(items []string) {
			pcs := make([]readline.PrefixCompleterInterface, 0, len(items))
			for _, it := range items {
				pcs = append(pcs, readline.PcItem(it))
			}
			rl.Config.AutoComplete = readline.NewPrefixCompleter(pcs...)
		},
	}
	return p, nil
}

// Close ends the readline session.
func (p *Prompter) Close() error {
	if p.close == nil {
		return nil
	}
	return p.close()
}

// AskPurchase walks through every field. Empty answers keep the default
// shown in brackets; invalid answers are asked again.
func (p *Prompter) AskPurchase(d PurchaseDefaults) (tracker.Input, error) {
	var in tracker.Input
	var err error

	if in.Label, err = p.ask("Label", "", nil, required); err != nil {
		return in, err
	}
	if in.Store, err = p.ask("Store", "", d.Stores, nil); err != nil {
		return in, err
	}
	if in.Category, err = p.ask("Category", "", d.Categories, nil); err != nil {
		return in, err
	}

	amount, err := p.ask("Amount", "0", nil, func(s string) error {
		_, err := decimal.NewFromString(s)
		return err
	})
	if err != nil {
		return in, err
	}
	in.Amount = decimal.RequireFromString(amount)

	date, err := p.ask("Purchase date", d.Today.Format(time.DateOnly), nil, func(s string) error {
		_, err := purchase.ParseDate(s)
		return err
	})
	if err != nil {
		return in, err
	}
	in.PurchaseDate, _ = purchase.ParseDate(date)

	if in.ReturnDays, err = p.askInt("Return window (days)", d.ReturnDays); err != nil {
		return in, err
	}
	months, err := p.askInt("Warranty (months)", d.WarrantyMonths)
	if err != nil {
		return in, err
	}
	in.WarrantyDays = purchase.MonthsToDays(in.PurchaseDate, months)

	if in.Notes, err = p.ask("Notes", "", nil, nil); err != nil {
		return in, err
	}
	return in, nil
}

func required(s string) error {
	if s == "" {
		return errors.New("required")
	}
	return nil
}

func (p *Prompter) askInt(question string, def int) (int, error) {
	answer, err := p.ask(question, strconv.Itoa(def), nil, func(s string) error {
		n, err := strconv.Atoi(s)
		if err == nil && n < 0 {
			return errors.New("must not be negative")
		}
		return err
	})
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(answer)
}

func (p *Prompter) ask(question, def string, suggestions []string, check func(string) error) (string, error) {
	if p.complete != nil {
		p.complete(suggestions)
	}

	prompt := question + ": "
	if def != "" {
		prompt = fmt.Sprintf("%s [%s]: ", question, def)
	}
	p.rl.SetPrompt(prompt)

	for {
		line, err := p.rl.Readline()
		if err != nil {
			if err == io.EOF || err == readline.ErrInterrupt {
				return "", ErrAborted
			}
			return "", err
		}

		answer := strings.TrimSpace(line)
		if answer == "" {
			answer = def
		}
		if check == nil {
			return answer, nil
		}
		if err := check(answer); err != nil {
			if p.out != nil {
				fmt.Fprintf(p.out, "  invalid %s: %v\n", strings.ToLower(question), err)
			}
			continue
		}
		return answer, nil
	}
}
