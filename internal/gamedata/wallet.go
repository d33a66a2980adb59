package gamedata

import "github.com/andreyvit/docmodel"

const (
	walletCoinTotal = iota
	walletCoinUsed
	walletDiamond
	walletAd
)

type Wallet struct {
	docmodel.ObjectModel

	coinTotal int64
	coinUsed  int64
	diamond   int64
	ad        int
}

func newWallet(parent docmodel.Node) *Wallet {
	w := &Wallet{}
	w.Init(parent, "wt",
		docmodel.ScalarField("ct", "coinTotal", &w.coinTotal, docmodel.Int64),
		docmodel.ScalarField("cu", "coinUsed", &w.coinUsed, docmodel.Int64),
		docmodel.ScalarField("d", "diamond", &w.diamond, docmodel.Int64),
		docmodel.ScalarField("ad", "ad", &w.ad, docmodel.Int),
	)
	return w
}

// Coin is the spendable balance.
func (w *Wallet) Coin() int64 { return w.coinTotal - w.coinUsed }

func (w *Wallet) CoinTotal() int64 { return w.coinTotal }

func (w *Wallet) SetCoinTotal(v int64) {
	docmodel.Set(w, walletCoinTotal, &w.coinTotal, v)
}

func (w *Wallet) CoinUsed() int64 { return w.coinUsed }

func (w *Wallet) SetCoinUsed(v int64) {
	docmodel.Set(w, walletCoinUsed, &w.coinUsed, v)
}

func (w *Wallet) Diamond() int64 { return w.diamond }

func (w *Wallet) SetDiamond(v int64) {
	docmodel.Set(w, walletDiamond, &w.diamond, v)
}

func (w *Wallet) Ad() int { return w.ad }

func (w *Wallet) SetAd(v int) {
	docmodel.Set(w, walletAd, &w.ad, v)
}

func (w *Wallet) IncreaseAd() int {
	w.ad++
	w.MarkField(walletAd)
	return w.ad
}
