package reformulate

import (
	"context"
	"io"
	"strings"

	"github.com/Adjenz/perplexity-glpi-ticket/internal/prompt"
)

// Editor drives the interactive instruction-template menu behind the
// instructions subcommand.
type Editor struct {
	store   *InstructionStore
	gateway *Gateway
	prompt  *prompt.Prompter
}

// NewEditor creates an editor over store. gateway may be nil when the
// rewrite backend is not configured; the test menu entry then reports that
// instead of calling out.
func NewEditor(store *InstructionStore, gateway *Gateway, prompter *prompt.Prompter) *Editor {
	return &Editor{store: store, gateway: gateway, prompt: prompter}
}

// Run loops over the instruction menu until the operator exits.
func (e *Editor) Run(ctx context.Context) error {
	e.prompt.Println("\n=== CONFIGURATION DES INSTRUCTIONS DE REFORMULATION ===")
	for {
		e.prompt.Println("\n1. Modifier l'instruction de DESCRIPTION")
		e.prompt.Println("2. Modifier l'instruction de SOLUTION")
		e.prompt.Println("3. Tester les instructions actuelles")
		e.prompt.Println("4. Restaurer les instructions par défaut")
		e.prompt.Println("5. Afficher les instructions actuelles")
		e.prompt.Println("6. Quitter")

		choice, err := e.prompt.Line("\nVotre choix (1-6):", "choix invalide", func(s string) bool {
			return s == "1" || s == "2" || s == "3" || s == "4" || s == "5" || s == "6"
		})
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		switch choice {
		case "1":
			err = e.edit(FieldDescription)
		case "2":
			err = e.edit(FieldSolution)
		case "3":
			err = e.test(ctx)
		case "4":
			err = e.restore()
		case "5":
			e.show()
		case "6":
			return nil
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

func (e *Editor) edit(kind FieldKind) error {
	current, _ := e.store.Get(kind)
	e.prompt.Printf("\nInstruction actuelle (%s):\n%s\n", kind, current)

	text, err := e.prompt.MultiLine("\nNouvelle instruction:")
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		e.prompt.Println("Instruction vide, modification annulée")
		return nil
	}
	if err := e.store.Set(kind, text); err != nil {
		return err
	}
	e.prompt.Printf("Instruction %s mise à jour et sauvegardée\n", kind)
	return nil
}

func (e *Editor) test(ctx context.Context) error {
	if e.gateway == nil {
		e.prompt.Println("Clé API Perplexity non configurée, test impossible")
		return nil
	}
	for _, kind := range e.store.Kinds() {
		text, err := e.prompt.Line(
			"\nTexte de "+string(kind)+" à tester (vide pour passer):", "", nil)
		if err != nil {
			return err
		}
		if text == "" {
			continue
		}
		rewritten, err := e.gateway.Rewrite(ctx, text, kind)
		if err != nil {
			return err
		}
		e.prompt.Printf("\nRésultat: %s\n", rewritten)
	}
	return nil
}

func (e *Editor) restore() error {
	confirmed, err := e.prompt.Confirm("Restaurer les instructions par défaut ?")
	if err != nil {
		return err
	}
	if !confirmed {
		e.prompt.Println("Restauration annulée")
		return nil
	}
	if err := e.store.RestoreDefaults(); err != nil {
		return err
	}
	e.prompt.Println("Instructions restaurées par défaut")
	return nil
}

func (e *Editor) show() {
	for _, kind := range e.store.Kinds() {
		text, _ := e.store.Get(kind)
		e.prompt.Printf("\n--- %s ---\n%s\n", strings.ToUpper(string(kind)), text)
	}
}
