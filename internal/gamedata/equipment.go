package gamedata

import (
	"github.com/andreyvit/docmodel"
	"github.com/google/uuid"
)

const (
	equipmentID = iota
	equipmentRefID
	equipmentAtk
	equipmentDef
	equipmentHP
)

// Equipment is stored in Player.Equipments under its ID.
type Equipment struct {
	docmodel.MapValueModel[string]

	id    string
	refID int
	atk   int
	def   int
	hp    int
}

func newEquipment() *Equipment {
	e := &Equipment{}
	e.Init(
		docmodel.ScalarField("id", "id", &e.id, docmodel.String),
		docmodel.ScalarField("rid", "refId", &e.refID, docmodel.Int),
		docmodel.ScalarField("atk", "atk", &e.atk, docmodel.Int),
		docmodel.ScalarField("def", "def", &e.def, docmodel.Int),
		docmodel.ScalarField("hp", "hp", &e.hp, docmodel.Int),
	)
	return e
}

// NewEquipment creates an equipment with a fresh ID that is written whole on
// the next flush.
func NewEquipment(refID int) *Equipment {
	e := newEquipment()
	e.SetID(uuid.NewString())
	e.SetRefID(refID)
	e.SetFullUpdate(true)
	return e
}

// NewEquipmentWithID creates an empty equipment with the given ID.
func NewEquipmentWithID(id string) *Equipment {
	e := newEquipment()
	e.SetID(id)
	return e
}

func (e *Equipment) ID() string { return e.id }

func (e *Equipment) SetID(v string) {
	docmodel.Set(e, equipmentID, &e.id, v)
}

func (e *Equipment) RefID() int { return e.refID }

func (e *Equipment) SetRefID(v int) {
	docmodel.Set(e, equipmentRefID, &e.refID, v)
}

func (e *Equipment) Atk() int { return e.atk }

func (e *Equipment) SetAtk(v int) {
	docmodel.Set(e, equipmentAtk, &e.atk, v)
}

func (e *Equipment) Def() int { return e.def }

func (e *Equipment) SetDef(v int) {
	docmodel.Set(e, equipmentDef, &e.def, v)
}

func (e *Equipment) HP() int { return e.hp }

func (e *Equipment) SetHP(v int) {
	docmodel.Set(e, equipmentHP, &e.hp, v)
}
