// Package gamedata defines the sample player document used by tests and
// examples.
package gamedata

import (
	"time"

	"github.com/andreyvit/docmodel"
)

const (
	playerUID = iota
	playerWallet
	playerEquipments
	playerItems
	playerCash
	playerUpdateVersion
	playerCreateTime
	playerUpdateTime
)

// Player is the root document of the "players" collection.
type Player struct {
	docmodel.RootModel

	uid           int
	wallet        *Wallet
	equipments    *docmodel.ModelMap[string, *Equipment]
	items         *docmodel.ScalarMap[int, int]
	cash          *CashInfo
	updateVersion int
	createTime    time.Time
	updateTime    time.Time
}

func NewPlayer() *Player {
	p := &Player{}
	p.wallet = newWallet(p)
	p.equipments = docmodel.NewModelMap(p, "eqm", docmodel.StringKeys, newEquipment)
	p.items = docmodel.NewScalarMap(p, "itm", docmodel.IntKeys, docmodel.Int)
	p.cash = newCashInfo(p)
	p.Init(
		docmodel.ScalarField("_id", "uid", &p.uid, docmodel.Int),
		docmodel.NodeField("wt", "wallet", p.wallet),
		docmodel.NodeField("eqm", "equipments", p.equipments),
		docmodel.NodeField("itm", "items", p.items),
		docmodel.NodeField("cs", "cash", p.cash),
		docmodel.ScalarField("_uv", "updateVersion", &p.updateVersion, docmodel.Int),
		docmodel.ScalarField("_ct", "createTime", &p.createTime, docmodel.DateTime),
		docmodel.ScalarField("_ut", "updateTime", &p.updateTime, docmodel.DateTime),
	)
	return p
}

func (p *Player) UID() int { return p.uid }

func (p *Player) SetUID(uid int) {
	docmodel.Set(p, playerUID, &p.uid, uid)
}

func (p *Player) Wallet() *Wallet { return p.wallet }

func (p *Player) Equipments() *docmodel.ModelMap[string, *Equipment] { return p.equipments }

func (p *Player) Items() *docmodel.ScalarMap[int, int] { return p.items }

func (p *Player) Cash() *CashInfo { return p.cash }

func (p *Player) UpdateVersion() int { return p.updateVersion }

func (p *Player) CreateTime() time.Time { return p.createTime }

func (p *Player) SetCreateTime(t time.Time) {
	docmodel.SetValue(p, playerCreateTime, &p.createTime, t, docmodel.DateTime)
}

func (p *Player) UpdateTime() time.Time { return p.updateTime }

func (p *Player) SetUpdateTime(t time.Time) {
	docmodel.SetValue(p, playerUpdateTime, &p.updateTime, t, docmodel.DateTime)
}

// Touch bumps the update version and time if anything changed.
func (p *Player) Touch(now time.Time) {
	if !p.IsDirty() {
		return
	}
	p.updateVersion++
	p.MarkField(playerUpdateVersion)
	p.SetUpdateTime(now)
}
