package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/lox/holdemtables/poker"
)

type EvalCmd struct {
	Hands []string `arg:"" help:"Hole cards per player, e.g. 'AcKd' 'QhJs', or whole 5 or 7 card hands without --board"`
	Board string   `short:"b" help:"Five community cards, e.g. 'Td7s8h2c3d'"`
}

type evalResult struct {
	Hand  []poker.Card
	Best  poker.BestHand
	Place int
}

func (cmd *EvalCmd) Run() error {
	results, err := evaluate(cmd.Hands, cmd.Board)
	if err != nil {
		return err
	}
	return printResults(os.Stdout, results)
}

// evaluate ranks each hand's best five cards, with the board when one is
// given. Place 1 is the winner; equal hands share a place.
func evaluate(hands []string, board string) ([]evalResult, error) {
	boardCards, err := poker.ParseCards(board)
	if err != nil {
		return nil, fmt.Errorf("error parsing board: %w", err)
	}
	if len(boardCards) != 0 && len(boardCards) != 5 {
		return nil, fmt.Errorf("board needs 5 cards, got %d", len(boardCards))
	}

	seen := make(map[poker.Card]bool)
	for _, c := range boardCards {
		seen[c] = true
	}

	results := make([]evalResult, 0, len(hands))
	for _, h := range hands {
		hole, err := poker.ParseCards(h)
		if err != nil {
			return nil, fmt.Errorf("error parsing hand %q: %w", h, err)
		}
		if len(boardCards) > 0 && len(hole) != 2 {
			return nil, fmt.Errorf("hand %q needs 2 cards, got %d", h, len(hole))
		}
		for _, c := range hole {
			if seen[c] {
				return nil, fmt.Errorf("card %s dealt twice", c)
			}
			seen[c] = true
		}

		best, err := bestHand(append(slices.Clone(hole), boardCards...))
		if err != nil {
			return nil, fmt.Errorf("hand %q: %w", h, err)
		}
		results = append(results, evalResult{Hand: hole, Best: best})
	}

	for i := range results {
		results[i].Place = 1
		for j := range results {
			if results[j].Best.Rank > results[i].Best.Rank {
				results[i].Place++
			}
		}
	}
	return results, nil
}

func bestHand(cards []poker.Card) (poker.BestHand, error) {
	if len(cards) == 5 {
		rank, err := poker.EvaluateHand(cards)
		return poker.BestHand{Cards: cards, Rank: rank}, err
	}
	return poker.FindBestHand(cards)
}

func printResults(w io.Writer, results []evalResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PLACE\tHAND\tBEST FIVE\tRANK")
	for _, r := range results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.Place, poker.FormatCards(r.Hand), poker.FormatCards(r.Best.Cards), r.Best.Name())
	}
	return tw.Flush()
}
