package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Adjenz/perplexity-glpi-ticket/cmd"
	"github.com/Adjenz/perplexity-glpi-ticket/internal/workflow"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if errors.Is(err, workflow.ErrInterrupted) {
			fmt.Fprintln(os.Stderr, "\n⏹ Interrompu par l'opérateur")
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "Erreur:", err)
		os.Exit(1)
	}
}
