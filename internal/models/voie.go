package models

// VoieRecord is a normalized voie record as produced by the feed
type VoieRecord struct {
	ID          string `json:"hid" yaml:"hid"`
	DateAjout   string `json:"dateAjout,omitempty" yaml:"dateAjout,omitempty"`
	Libelle     string `json:"libelle,omitempty" yaml:"libelle,omitempty"`
	TypeVoie    string `json:"typeVoie,omitempty" yaml:"typeVoie,omitempty"`
	CodeCommune string `json:"codeCommune" yaml:"codeCommune"`
	CodeRivoli  string `json:"codeRivoli,omitempty" yaml:"codeRivoli,omitempty"`
}

// PredecessorState tells whether a voie's predecessor has been decided
type PredecessorState int

const (
	// PredecessorUnresolved is the state of a voie created in the current batch
	// that no linker has decided on yet.
	PredecessorUnresolved PredecessorState = iota
	// PredecessorNone marks a voie settled as having no predecessor.
	PredecessorNone
	// PredecessorResolved marks a voie whose label history continues another voie.
	PredecessorResolved
)

func (s PredecessorState) String() string {
	switch s {
	case PredecessorNone:
		return "none"
	case PredecessorResolved:
		return "resolved"
	default:
		return "unresolved"
	}
}

// Predecessor is a non-owning link to another voie of the same index.
// ID is only meaningful when State is PredecessorResolved.
type Predecessor struct {
	State PredecessorState
	ID    string
}

// NoPredecessor returns the settled "no predecessor" value
func NoPredecessor() Predecessor {
	return Predecessor{State: PredecessorNone}
}

// ResolvedTo returns a link to the voie with the given id
func ResolvedTo(id string) Predecessor {
	return Predecessor{State: PredecessorResolved, ID: id}
}

// IsResolved reports whether the link points at another voie
func (p Predecessor) IsResolved() bool {
	return p.State == PredecessorResolved
}

// IsSettled reports whether the predecessor has been decided either way
func (p Predecessor) IsSettled() bool {
	return p.State != PredecessorUnresolved
}

// Voie is the indexed entity for one voie id
type Voie struct {
	ID          string
	DateAjout   string
	Libelle     []string // labels in observation order, may contain repeats
	TypeVoie    string
	CodeCommune string
	CodeFantoir string
	Predecessor Predecessor
}

// NewVoie creates a voie from its first observed record, with an unresolved predecessor
func NewVoie(rec VoieRecord) *Voie {
	v := &Voie{
		ID:          rec.ID,
		DateAjout:   rec.DateAjout,
		Libelle:     []string{},
		TypeVoie:    rec.TypeVoie,
		CodeCommune: rec.CodeCommune,
		CodeFantoir: rec.CodeRivoli,
	}
	if rec.Libelle != "" {
		v.Libelle = append(v.Libelle, rec.Libelle)
	}
	return v
}

// LatestLibelle returns the most recently observed label, or "" if none
func (v *Voie) LatestLibelle() string {
	if len(v.Libelle) == 0 {
		return ""
	}
	return v.Libelle[len(v.Libelle)-1]
}

// Clone returns a copy that shares nothing mutable with v
func (v *Voie) Clone() *Voie {
	c := *v
	c.Libelle = append([]string{}, v.Libelle...)
	return &c
}
