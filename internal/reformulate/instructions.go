package reformulate

import (
	"encoding/json"
	"os"

	"go.uber.org/zap"
)

// FieldKind identifies which free-text field a rewrite instruction applies
// to.
type FieldKind string

const (
	FieldDescription FieldKind = "description"
	FieldSolution    FieldKind = "solution"
)

// DefaultInstructionsFile is where edited instruction profiles persist
// between runs.
const DefaultInstructionsFile = "instructions_reformulation.json"

var defaultInstructions = map[FieldKind]string{
	FieldDescription: `Tu es un expert en support informatique. Reformule UNIQUEMENT le texte fourni de façon professionnelle.
RÈGLES STRICTES :
- Utilise SEULEMENT les informations présentes dans le texte original
- NE PAS inventer, ajouter ou imaginer d'informations supplémentaires
- NE PAS créer de détails techniques qui ne sont pas mentionnés
- NE PAS inclure les coordonnées du client (nom, téléphone, email, société)
- Garde EXACTEMENT le même niveau de détail que l'original
- Si le texte est court, la reformulation doit rester courte
- Si le texte est vague, la reformulation doit rester vague
- Style direct et professionnel
- Maximum 3 lignes
- Pas de formules de politesse
- Commence directement par le problème`,

	FieldSolution: `Tu es un expert en support informatique. Reformule UNIQUEMENT cette solution de façon professionnelle.
RÈGLES ULTRA-STRICTES :
- Utilise SEULEMENT et EXCLUSIVEMENT les informations présentes dans le texte original
- NE PAS inventer, ajouter, imaginer ou déduire d'informations supplémentaires
- NE PAS créer de détails, étapes ou procédures qui ne sont pas explicitement mentionnés
- NE PAS suggérer de bonnes pratiques ou d'améliorations non mentionnées
- Si le texte dit "pas encore définie", reformule en gardant cette notion d'indéfini
- Si le texte est vague ou incomplet, la reformulation DOIT rester vague ou incomplète
- Garde EXACTEMENT le même niveau de détail et de précision que l'original
- Style direct et professionnel
- Maximum 2 lignes
- Pas de formules de politesse
- Commence directement par l'action ou l'état décrit`,
}

// InstructionStore holds the per-field rewrite instruction profiles,
// persisted as a JSON file. Fields missing from the file fall back to the
// built-in defaults.
type InstructionStore struct {
	path         string
	logger       *zap.Logger
	instructions map[FieldKind]string
}

// NewInstructionStore loads the profiles from path, merging defaults for
// any missing field. A missing or unreadable file yields the defaults.
func NewInstructionStore(path string, logger *zap.Logger) *InstructionStore {
	store := &InstructionStore{path: path, logger: logger}
	store.instructions = store.load()
	return store
}

// Get returns the instruction for kind. The second return is false for an
// unknown field kind.
func (s *InstructionStore) Get(kind FieldKind) (string, bool) {
	text, ok := s.instructions[kind]
	return text, ok
}

// Set replaces the instruction for kind and persists the store.
func (s *InstructionStore) Set(kind FieldKind, text string) error {
	s.instructions[kind] = text
	return s.save()
}

// RestoreDefaults resets every profile to the built-in text and persists
// the store.
func (s *InstructionStore) RestoreDefaults() error {
	s.instructions = make(map[FieldKind]string, len(defaultInstructions))
	for kind, text := range defaultInstructions {
		s.instructions[kind] = text
	}
	return s.save()
}

// Kinds returns the known field kinds in a fixed presentation order.
func (s *InstructionStore) Kinds() []FieldKind {
	return []FieldKind{FieldDescription, FieldSolution}
}

func (s *InstructionStore) load() map[FieldKind]string {
	merged := make(map[FieldKind]string, len(defaultInstructions))
	for kind, text := range defaultInstructions {
		merged[kind] = text
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("lecture des instructions", zap.String("path", s.path), zap.Error(err))
		}
		return merged
	}

	var fromFile map[FieldKind]string
	if err := json.Unmarshal(data, &fromFile); err != nil {
		s.logger.Warn("instructions illisibles, utilisation des valeurs par défaut",
			zap.String("path", s.path), zap.Error(err))
		return merged
	}
	for kind, text := range fromFile {
		merged[kind] = text
	}
	return merged
}

func (s *InstructionStore) save() error {
	data, err := json.MarshalIndent(s.instructions, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		s.logger.Error("sauvegarde des instructions", zap.String("path", s.path), zap.Error(err))
		return err
	}
	s.logger.Info("instructions sauvegardées", zap.String("path", s.path))
	return nil
}
