package fee

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/expresscouriers/checkout/internal/domain"
)

// TipKind tags a TipSelection
type TipKind int

const (
	TipNone TipKind = iota
	TipPercent
	TipCustom
)

// TipSelection is one user action on the tip controls
type TipSelection struct {
	Kind    TipKind
	Percent float64
	// Custom is the raw text of the custom amount input
	Custom string
}

// Percent selects a percentage tip button
func Percent(p float64) TipSelection {
	return TipSelection{Kind: TipPercent, Percent: p}
}

// Custom enters an explicit tip amount
func Custom(raw string) TipSelection {
	return TipSelection{Kind: TipCustom, Custom: raw}
}

// TipSelector holds the tip controls' state across selections.
// A percentage and a custom amount are mutually exclusive.
type TipSelector struct {
	activePercent float64
	hasPercent    bool
	custom        float64
}

// Resolve applies sel and returns the resulting tip. Percentages are taken of baseFee.
// Selecting the already active percentage toggles the tip back to zero.
func (s *TipSelector) Resolve(sel TipSelection, baseFee float64) float64 {
	switch sel.Kind {
	case TipPercent:
		s.custom = 0
		if s.hasPercent && s.activePercent == sel.Percent {
			s.hasPercent = false
			s.activePercent = 0
			return 0
		}
		s.hasPercent = true
		s.activePercent = sel.Percent
	case TipCustom:
		s.hasPercent = false
		s.activePercent = 0
		s.custom = ParseAmount(sel.Custom)
	default:
		s.hasPercent = false
		s.activePercent = 0
		s.custom = 0
	}
	return s.Amount(baseFee)
}

// Amount returns the current tip for baseFee without changing the selection
func (s *TipSelector) Amount(baseFee float64) float64 {
	if s.hasPercent {
		return baseFee * s.activePercent / 100
	}
	return s.custom
}

// ActivePercent returns the selected percentage, if any
func (s *TipSelector) ActivePercent() (float64, bool) {
	return s.activePercent, s.hasPercent
}

// ParseAmount reads a currency amount typed by the customer. Anything that is not a
// finite, non-negative number reads as zero.
func ParseAmount(raw string) float64 {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "$"))
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// FormatMoney renders an amount with two decimals
func FormatMoney(amount float64) string {
	return fmt.Sprintf("%.2f", domain.Round2(amount))
}
