package gamedata

import (
	"time"

	"github.com/andreyvit/docmodel"
)

const (
	cashStages = iota
	cashCards
	cashOrderIDs
	cashTestDate
	cashTestDateMap
)

type CashInfo struct {
	docmodel.ObjectModel

	stages      *docmodel.ScalarMap[int, int]
	cards       *docmodel.ListModel[int]
	orderIDs    *docmodel.ListModel[int]
	testDate    time.Time
	testDateMap *docmodel.ScalarMap[int, time.Time]
}

func newCashInfo(parent docmodel.Node) *CashInfo {
	c := &CashInfo{}
	c.stages = docmodel.NewScalarMap(c, "stg", docmodel.IntKeys, docmodel.Int)
	c.cards = docmodel.NewListModel(c, "cs", docmodel.Int)
	c.orderIDs = docmodel.NewListModel(c, "ois", docmodel.Int)
	c.testDateMap = docmodel.NewScalarMap(c, "tdm", docmodel.IntKeys, docmodel.Date)
	c.Init(parent, "cs",
		docmodel.NodeField("stg", "stages", c.stages),
		docmodel.NodeField("cs", "cards", c.cards),
		docmodel.NodeField("ois", "orderIds", c.orderIDs),
		docmodel.ScalarField("tsd", "testDate", &c.testDate, docmodel.Date),
		docmodel.NodeField("tdm", "testDateMap", c.testDateMap),
	)
	return c
}

func (c *CashInfo) Stages() *docmodel.ScalarMap[int, int] { return c.stages }

func (c *CashInfo) Cards() *docmodel.ListModel[int] { return c.cards }

func (c *CashInfo) OrderIDs() *docmodel.ListModel[int] { return c.orderIDs }

func (c *CashInfo) TestDate() time.Time { return c.testDate }

// SetTestDate sets the date; the zero time removes it.
func (c *CashInfo) SetTestDate(d time.Time) {
	docmodel.SetValue(c, cashTestDate, &c.testDate, d, docmodel.Date)
}

func (c *CashInfo) TestDateMap() *docmodel.ScalarMap[int, time.Time] { return c.testDateMap }
